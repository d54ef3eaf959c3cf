package jobs

// Job is a unit of periodic work driven by the cron daemon.
type Job interface {
	Process() error
}
