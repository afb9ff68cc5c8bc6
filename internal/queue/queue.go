package queue

import (
	"encoding/json"
	"log"

	"github.com/streadway/amqp"
)

// DrainQueueName carries "drain now" nudges from the scheduler to the
// delivery worker. The message body only says why; draining reads the
// actual work from the database.
const DrainQueueName = "delivery_drain"

type drainNudge struct {
	Reason string `json:"reason"`
}

// Publisher pushes drain nudges onto RabbitMQ.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := declareDrainQueue(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch}, nil
}

func (p *Publisher) PublishDrain() error {
	body, _ := json.Marshal(drainNudge{Reason: "fanout"})
	return p.ch.Publish(
		"",
		DrainQueueName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (p *Publisher) Close() {
	p.ch.Close()
	p.conn.Close()
}

// Consumer receives drain nudges on the worker side.
type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewConsumer(url string) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := declareDrainQueue(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Consumer{conn: conn, ch: ch}, nil
}

// Consume calls handler for every nudge, acking after the handler returns.
// Blocks until the channel closes.
func (c *Consumer) Consume(handler func()) error {
	msgs, err := c.ch.Consume(
		DrainQueueName,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	for d := range msgs {
		var nudge drainNudge
		if err := json.Unmarshal(d.Body, &nudge); err != nil {
			log.Println("⚠️ invalid drain nudge:", err)
			d.Ack(false)
			continue
		}
		handler()
		d.Ack(false)
	}
	return nil
}

func (c *Consumer) Close() {
	c.ch.Close()
	c.conn.Close()
}

func declareDrainQueue(ch *amqp.Channel) (amqp.Queue, error) {
	return ch.QueueDeclare(
		DrainQueueName, // name
		true,           // durable
		false,          // delete when unused
		false,          // exclusive
		false,          // no-wait
		nil,            // arguments
	)
}
