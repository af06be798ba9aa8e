package service

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/src-portal/internal/authz"
    "github.com/iliyamo/src-portal/internal/logger"
    "github.com/iliyamo/src-portal/internal/model"
    "github.com/iliyamo/src-portal/internal/queue"
    "github.com/iliyamo/src-portal/internal/settings"
)

// Message channels.
const (
    ChannelInApp = "in_app"
    ChannelEmail = queue.ChannelEmail
    ChannelSMS   = queue.ChannelSMS
)

// AudienceAll addresses every active user.
const AudienceAll = "all"

var (
    ErrBadAudience    = errors.New("unknown audience")
    ErrNoChannels     = errors.New("no channel selected")
    ErrUnknownChannel = errors.New("unknown channel")
    ErrEmptyMessage   = errors.New("subject and body are required")
)

type Recipients interface {
    ListActive(ctx context.Context, role model.Role) ([]model.User, error)
}

type Inbox interface {
    Create(ctx context.Context, userIDs []uint64, subject, body string) error
}

type Publisher interface {
    Publish(ctx context.Context, queueName string, job queue.DeliveryJob) error
}

type FlagReader interface {
    Enabled(ctx context.Context, name string) (bool, error)
}

// Message is a broadcast request from a sender.
type Message struct {
    Audience string   `json:"audience" form:"audience"`
    Channels []string `json:"channels" form:"channels"`
    Subject  string   `json:"subject" form:"subject"`
    Body     string   `json:"body" form:"body"`
    SenderID uint64   `json:"-" form:"-"`
}

// Report summarises what Dispatch did.  Jobs handed to the broker are
// counted as published; nothing beyond that is tracked.
type Report struct {
    Recipients     int            `json:"recipients"`
    InApp          int            `json:"in_app"`
    Published      map[string]int `json:"published"`
    Failed         map[string]int `json:"failed"`
    MissingAddress map[string]int `json:"missing_address"`
    Skipped        []string       `json:"skipped"`
}

// Dispatcher resolves an audience and fans a message out to the selected
// channels.  Email and SMS are each gated by a feature flag.
type Dispatcher struct {
    Users      Recipients
    Inbox      Inbox
    Pub        Publisher
    Flags      FlagReader
    EmailQueue string
    SMSQueue   string
    Log        *logger.Logger
    Now        func() time.Time
}

// Validate normalises m in place and checks it.
func (m *Message) Validate() error {
    m.Subject = strings.TrimSpace(m.Subject)
    m.Body = strings.TrimSpace(m.Body)
    if m.Subject == "" || m.Body == "" {
        return ErrEmptyMessage
    }
    seen := map[string]bool{}
    var chans []string
    for _, c := range m.Channels {
        c = strings.ToLower(strings.TrimSpace(c))
        switch c {
        case ChannelInApp, ChannelEmail, ChannelSMS:
        case "":
            continue
        default:
            return fmt.Errorf("%w: %s", ErrUnknownChannel, c)
        }
        if !seen[c] {
            seen[c] = true
            chans = append(chans, c)
        }
    }
    if len(chans) == 0 {
        return ErrNoChannels
    }
    m.Channels = chans
    return nil
}

func (d *Dispatcher) audience(ctx context.Context, name string) ([]model.User, error) {
    name = strings.TrimSpace(name)
    if strings.EqualFold(name, AudienceAll) {
        return d.Users.ListActive(ctx, "")
    }
    role, ok := authz.ParseRole(name)
    if !ok {
        return nil, fmt.Errorf("%w: %q", ErrBadAudience, name)
    }
    return d.Users.ListActive(ctx, role)
}

// Dispatch sends m.  Validation and audience errors are returned before
// anything is written.  Per-recipient publish failures are counted in the
// report, not returned.
func (d *Dispatcher) Dispatch(ctx context.Context, m Message) (Report, error) {
    rep := Report{
        Published:      map[string]int{},
        Failed:         map[string]int{},
        MissingAddress: map[string]int{},
        Skipped:        []string{},
    }
    if err := m.Validate(); err != nil {
        return rep, err
    }
    users, err := d.audience(ctx, m.Audience)
    if err != nil {
        return rep, err
    }
    rep.Recipients = len(users)
    if len(users) == 0 {
        return rep, nil
    }

    for _, ch := range m.Channels {
        switch ch {
        case ChannelInApp:
            ids := make([]uint64, len(users))
            for i, u := range users {
                ids[i] = u.ID
            }
            if err := d.Inbox.Create(ctx, ids, m.Subject, m.Body); err != nil {
                return rep, fmt.Errorf("store notifications: %w", err)
            }
            rep.InApp = len(ids)
        case ChannelEmail:
            d.external(ctx, &rep, m, users, ch, settings.EnableEmail, d.EmailQueue, func(u model.User) string { return u.Email })
        case ChannelSMS:
            d.external(ctx, &rep, m, users, ch, settings.EnableSMS, d.SMSQueue, func(u model.User) string { return u.Phone })
        }
    }
    return rep, nil
}

func (d *Dispatcher) external(ctx context.Context, rep *Report, m Message, users []model.User,
    ch, flag, queueName string, addr func(model.User) string) {
    on, err := d.Flags.Enabled(ctx, flag)
    if err != nil {
        d.Log.Warn().Err(err).Str("flag", flag).Msg("dispatch: flag unreadable, skipping channel")
    }
    if err != nil || !on {
        rep.Skipped = append(rep.Skipped, ch)
        return
    }
    now := time.Now().UTC()
    if d.Now != nil {
        now = d.Now()
    }
    for _, u := range users {
        to := strings.TrimSpace(addr(u))
        if to == "" {
            rep.MissingAddress[ch]++
            continue
        }
        job := queue.DeliveryJob{
            ID:        uuid.NewString(),
            Channel:   ch,
            UserID:    u.ID,
            To:        to,
            Subject:   m.Subject,
            Body:      m.Body,
            SenderID:  m.SenderID,
            CreatedAt: now,
        }
        if err := d.Pub.Publish(ctx, queueName, job); err != nil {
            rep.Failed[ch]++
            continue
        }
        rep.Published[ch]++
    }
}

// SendEmail publishes a single email job, used for password reset links.
// It honours enable_email.
func (d *Dispatcher) SendEmail(ctx context.Context, u model.User, subject, body string) error {
    on, err := d.Flags.Enabled(ctx, settings.EnableEmail)
    if err != nil {
        return err
    }
    if !on {
        return fmt.Errorf("email channel disabled")
    }
    if strings.TrimSpace(u.Email) == "" {
        return fmt.Errorf("user %d has no email", u.ID)
    }
    return d.Pub.Publish(ctx, d.EmailQueue, queue.DeliveryJob{
        ID:        uuid.NewString(),
        Channel:   ChannelEmail,
        UserID:    u.ID,
        To:        u.Email,
        Subject:   subject,
        Body:      body,
        CreatedAt: time.Now().UTC(),
    })
}
