package main

import (
	"fmt"
	"os"

	"github.com/zentex/zentex/config"
	"github.com/zentex/zentex/mq_client"
	"github.com/zentex/zentex/workers/engines"
)

func CreateWorker(id string) engines.Worker {
	switch id {
	case "matching":
		return engines.NewMatchingWorker()
	case "order_processor":
		return engines.NewOrderProcessorWorker()
	case "trade_executor":
		return engines.NewTradeExecutorWorker()
	case "depth_cache":
		return engines.NewDepthCacheWorker()
	default:
		return nil
	}
}

func main() {
	if err := config.InitializeConfig(); err != nil {
		fmt.Println(err.Error())
		return
	}
	if err := mq_client.Connect(); err != nil {
		fmt.Println(err.Error())
		return
	}

	channel := mq_client.GetChannel()

	for _, id := range os.Args[1:] {
		fmt.Println("Start zentex-engine: " + id)

		worker := CreateWorker(id)
		if worker == nil {
			config.Logger.Errorf("Unknown worker: %s", id)
			return
		}

		if prefetch := mq_client.GetPrefetchCount(id); prefetch > 0 {
			channel.Qos(prefetch, 0, false)
		}

		bindingQueue := mq_client.GetBindingQueue(id)
		exchangeID := mq_client.GetBindingExchangeId(id)
		exchangeName, exchangeKind := mq_client.GetExchange(exchangeID)
		routingKey := mq_client.GetRoutingKey(id)

		if err := channel.ExchangeDeclare(exchangeName, exchangeKind, bindingQueue.Durable, false, false, false, nil); err != nil {
			config.Logger.Errorf("Exchange Declare: %v", err)
			return
		}
		if _, err := channel.QueueDeclare(bindingQueue.Name, bindingQueue.Durable, false, false, false, nil); err != nil {
			config.Logger.Errorf("Queue Declare: %v", err)
			return
		}
		if err := channel.QueueBind(bindingQueue.Name, routingKey, exchangeName, false, nil); err != nil {
			config.Logger.Errorf("Queue Bind: %v", err)
			return
		}

		deliveries, err := channel.Consume(bindingQueue.Name, id, false, false, false, false, nil)
		if err != nil {
			config.Logger.Errorf("Consume: %v", err)
			return
		}

		for delivery := range deliveries {
			if err := worker.Process(delivery.Body); err != nil {
				config.Logger.Errorf("Worker error: %v", err)
				delivery.Nack(false, true)
			} else {
				delivery.Ack(false)
			}
		}
	}
}
