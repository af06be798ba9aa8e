// Package service holds the portal's cross-repository workflows: message
// dispatch and publishing jobs to the broker.
package service

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/src-portal/internal/logger"
    "github.com/iliyamo/src-portal/internal/queue"
)

// ErrPublisherClosed is returned after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// AMQPPublisher keeps one broker connection and channel open and redials
// lazily after a failure.  Messages are persistent JSON on the default
// exchange with the queue name as routing key.
type AMQPPublisher struct {
    url    string
    queues []string
    log    *logger.Logger

    mu     sync.Mutex
    conn   *amqp.Connection
    ch     *amqp.Channel
    closed bool
}

// NewAMQPPublisher does not dial; the first Publish does.
func NewAMQPPublisher(url string, queues []string, log *logger.Logger) *AMQPPublisher {
    return &AMQPPublisher{url: url, queues: queues, log: log}
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
    if p.closed {
        return nil, ErrPublisherClosed
    }
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, fmt.Errorf("rabbitmq dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("rabbitmq channel: %w", err)
    }
    // durable so queued jobs survive a broker restart
    for _, q := range p.queues {
        if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
            _ = ch.Close()
            _ = conn.Close()
            return nil, fmt.Errorf("rabbitmq declare %s: %w", q, err)
        }
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *AMQPPublisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

// Publish sends job to queueName.
func (p *AMQPPublisher) Publish(ctx context.Context, queueName string, job queue.DeliveryJob) error {
    body, err := json.Marshal(job)
    if err != nil {
        return err
    }

    p.mu.Lock()
    defer p.mu.Unlock()
    ch, err := p.channel()
    if err != nil {
        p.log.Warn().Err(err).Str("queue", queueName).Msg("publish: no channel")
        return err
    }
    err = ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    job.ID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    })
    if err != nil {
        p.reset()
        p.log.Warn().Err(err).Str("queue", queueName).Msg("publish failed")
        return fmt.Errorf("rabbitmq publish: %w", err)
    }
    return nil
}

// Close shuts the connection.  Publish fails afterwards.
func (p *AMQPPublisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.closed = true
    p.reset()
    return nil
}
