package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/src-portal/internal/logger"
)

// OutboxConsumer drains the email and SMS queues into an append-only log
// file.  The file stands in for the real gateways.
type OutboxConsumer struct {
    URL     string
    Queues  []string
    LogPath string
    Log     *logger.Logger

    mu sync.Mutex // serialises writes to LogPath
}

// Run connects, consumes and reconnects with exponential backoff (1s to
// 30s) until ctx is cancelled.
func (o *OutboxConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(o.URL)
        if err != nil {
            o.Log.Warn().Err(err).Dur("retry_in", backoff).Msg("outbox: dial broker failed")
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = o.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        o.Log.Warn().Err(err).Msg("outbox: consume loop ended, reconnecting")
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (o *OutboxConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        o.Log.Warn().Err(err).Msg("outbox: set QoS failed")
    }

    merged := make(chan amqp.Delivery)
    done := make(chan struct{})
    defer close(done)
    var wg sync.WaitGroup
    for _, q := range o.Queues {
        if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", q, err)
        }
        msgs, err := ch.Consume(q, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", q, err)
        }
        wg.Add(1)
        go func(in <-chan amqp.Delivery) {
            defer wg.Done()
            for d := range in {
                select {
                case merged <- d:
                case <-done:
                    return
                }
            }
        }(msgs)
    }
    go func() { wg.Wait(); close(merged) }()

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-merged:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := o.Handle(d.Body); err != nil {
                o.Log.Error().Err(err).Str("queue", d.RoutingKey).Msg("outbox: handle message failed")
                _ = d.Nack(false, false) // drop rather than requeue in a tight loop
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// Handle decodes one job and appends it to the outbox log.
func (o *OutboxConsumer) Handle(body []byte) error {
    var job DeliveryJob
    if err := json.Unmarshal(body, &job); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if job.Channel != ChannelEmail && job.Channel != ChannelSMS {
        return fmt.Errorf("unknown channel %q", job.Channel)
    }

    o.mu.Lock()
    defer o.mu.Unlock()
    if err := os.MkdirAll(filepath.Dir(o.LogPath), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(o.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open outbox log: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(FormatLine(job)); err != nil {
        return fmt.Errorf("write outbox log: %w", err)
    }
    return nil
}

// FormatLine renders a job as one log line.
func FormatLine(job DeliveryJob) string {
    body := strings.ReplaceAll(job.Body, "\n", `\n`)
    return fmt.Sprintf("[%s] %s | id=%s | user_id=%d | to=%q | subject=%q | body=%q\n",
        job.CreatedAt.UTC().Format(time.RFC3339), strings.ToUpper(job.Channel), job.ID, job.UserID, job.To, job.Subject, body)
}
