package mq_client

import (
	"os"
	"reflect"

	amqp "github.com/rabbitmq/amqp091-go"
	"gopkg.in/yaml.v2"
)

var AMQPCfg *MQClientConfig

func CreateAMQP() (*amqp.Connection, error) {
	if err := LoadConfig(); err != nil {
		return nil, err
	}

	username := os.Getenv("RABBITMQ_USERNAME")
	password := os.Getenv("RABBITMQ_PASSWORD")
	host := os.Getenv("RABBITMQ_HOST")
	port := os.Getenv("RABBITMQ_PORT")

	connection, err := amqp.Dial("amqp://" + username + ":" + password + "@" + host + ":" + port)
	if err != nil {
		return nil, err
	}

	return connection, nil
}

func LoadConfig() error {
	buf, err := os.ReadFile("config/amqp.yml")
	if err != nil {
		return err
	}

	c := &MQClientConfig{}

	if err := yaml.Unmarshal(buf, c); err != nil {
		return err
	}

	AMQPCfg = c

	return nil
}

func GetPrefetchCount(channel string) int {
	c := FindElementStruct(&AMQPCfg.Channel, "yaml", channel)

	if c != nil {
		return c.(Channel).Prefetch
	}

	return 0
}

func GetBindingExchangeId(id string) string {
	binding := FindElementStruct(&AMQPCfg.Binding, "yaml", id)

	if binding != nil {
		return binding.(Binding).Exchange
	}

	return ""
}

func GetBindingQueue(id string) Queue {
	queueID := FindElementStruct(&AMQPCfg.Binding, "yaml", id).(Binding).Queue
	queue := FindElementStruct(&AMQPCfg.Queue, "yaml", queueID).(Queue)

	return queue
}

func GetRoutingKey(id string) string {
	return GetBindingQueue(id).Name
}

func GetExchange(id string) (string, string) {
	exchange := FindElementStruct(&AMQPCfg.Exchange, "yaml", id).(Exchange)

	return exchange.Name, exchange.Type
}

func FindElementStruct(i interface{}, tagName string, tagValue string) interface{} {
	e := reflect.ValueOf(i).Elem()

	for i := 0; i < e.NumField(); i++ {
		valueField := e.Field(i)
		typeField := e.Type().Field(i)

		if tagValue == typeField.Tag.Get(tagName) {
			return valueField.Interface()
		}
	}

	return nil
}
