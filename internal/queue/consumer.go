package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// ChangeHandler reacts to one backend change notification.
type ChangeHandler func(ChangeEvent)

// Consumer listens on the change queue and hands each notification to a
// handler.  It reconnects with exponential backoff until its context ends.
type Consumer struct {
	url        string
	queue      string
	handle     ChangeHandler
	log        logrus.FieldLogger
	maxBackoff time.Duration
}

func NewConsumer(url, queue string, handle ChangeHandler, log logrus.FieldLogger) *Consumer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Consumer{
		url:        url,
		queue:      queue,
		handle:     handle,
		log:        log.WithFields(logrus.Fields{"component": "change-consumer", "queue": queue}),
		maxBackoff: 30 * time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("dial broker failed; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, c.maxBackoff)
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.log.Info("change consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(d.Body); err != nil {
				c.log.WithError(err).Warn("reject change message")
				_ = d.Nack(false, false) // never requeue a malformed message
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message body and dispatches it.
func (c *Consumer) Handle(body []byte) error {
	ev, err := DecodeChange(body)
	if err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{"entity": ev.Entity, "id": ev.ID, "action": ev.Action}).Debug("change received")
	if c.handle != nil {
		c.handle(ev)
	}
	return nil
}

func nextBackoff(cur, limit time.Duration) time.Duration {
	if cur*2 > limit {
		return limit
	}
	return cur * 2
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
