package main

import (
	"fmt"
	"os"

	"github.com/zentex/zentex/config"
	"github.com/zentex/zentex/workers/daemons"
)

func CreateWorker(id string) daemons.Worker {
	switch id {
	case "cron_job":
		return daemons.NewCronJob()
	default:
		return nil
	}
}

func main() {
	if err := config.InitializeConfig(); err != nil {
		fmt.Println(err.Error())
		return
	}

	for _, id := range os.Args[1:] {
		fmt.Println("Start zentex-daemon: " + id)

		worker := CreateWorker(id)
		if worker == nil {
			config.Logger.Errorf("Unknown worker: %s", id)
			return
		}

		worker.Start()
	}
}
