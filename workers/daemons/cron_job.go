package daemons

import (
	"github.com/jasonlvhit/gocron"

	"github.com/zentex/zentex/config"
	"github.com/zentex/zentex/jobs"
	"github.com/zentex/zentex/jobs/cron"
)

// Worker is a long-running daemon process.
type Worker interface {
	Start()
}

type CronJob struct {
	Scheduler *gocron.Scheduler
	Jobs      []jobs.Job
}

func NewCronJob() *CronJob {
	return &CronJob{
		Scheduler: gocron.NewScheduler(),
		Jobs:      []jobs.Job{&cron.MarketPriceJob{}},
	}
}

func (c *CronJob) Stop() {
	c.Scheduler.Clear()
}

func (c *CronJob) Start() {
	for _, job := range c.Jobs {
		c.Scheduler.Every(5).Seconds().Do(c.run, job)
	}

	<-c.Scheduler.Start()
}

func (c *CronJob) run(job jobs.Job) {
	if err := job.Process(); err != nil {
		config.Logger.Errorf("[cron] job failed: %v", err)
	}
}
