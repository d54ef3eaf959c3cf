package mq_client

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

var AMQPChannel *amqp.Channel
var Connection *amqp.Connection

func Connect() error {
	cn, err := CreateAMQP()
	if err != nil {
		return err
	}

	Connection = cn

	return nil
}

func GetChannel() *amqp.Channel {
	if AMQPChannel != nil {
		return AMQPChannel
	}

	channel, _ := Connection.Channel()

	AMQPChannel = channel

	return AMQPChannel
}

func Publish(eid string, queue Queue, payload []byte, routingKey string) error {
	exchangeName, exchangeKind := GetExchange(eid)

	if err := GetChannel().ExchangeDeclare(exchangeName, exchangeKind, queue.Durable, false, false, false, nil); err != nil {
		return err
	}

	return GetChannel().Publish(
		exchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			Headers:      amqp.Table{},
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	)
}

// Enqueue routes a payload to the queue bound under id in
// config/amqp.yml.
func Enqueue(id string, payload []byte) error {
	eid := GetBindingExchangeId(id)
	routingKey := GetRoutingKey(id)
	queue := GetBindingQueue(id)

	return Publish(eid, queue, payload, routingKey)
}

// EnqueueEvent publishes a member-facing event on the topic exchange
// with a kind.subject.event routing key.
func EnqueueEvent(kind string, id string, event string, payload []byte) error {
	routingKey := kind + "." + id + "." + event

	exchangeName, exchangeKind := GetExchange("events")

	if err := GetChannel().ExchangeDeclare(exchangeName, exchangeKind, false, false, false, false, nil); err != nil {
		return err
	}

	return GetChannel().Publish(
		exchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			Headers:      amqp.Table{},
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	)
}

// Broker adapts the package-level queue functions to the publisher
// interface the workers accept.
type Broker struct{}

func (Broker) Enqueue(id string, payload []byte) error {
	return Enqueue(id, payload)
}

func (Broker) EnqueueEvent(kind string, id string, event string, payload []byte) error {
	return EnqueueEvent(kind, id, event, payload)
}
