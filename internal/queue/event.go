// Package queue defines the message payloads exchanged over the broker and
// the consumer that drains them.
package queue

import "time"

// Channels a DeliveryJob can target.
const (
    ChannelEmail = "email"
    ChannelSMS   = "sms"
)

// DeliveryJob is one outbound message to one recipient on one channel.
// The portal publishes it and forgets it; delivery is the sink's concern.
type DeliveryJob struct {
    ID        string    `json:"id"`
    Channel   string    `json:"channel"`
    UserID    uint64    `json:"user_id"`
    To        string    `json:"to"` // email address or phone number
    Subject   string    `json:"subject,omitempty"`
    Body      string    `json:"body"`
    SenderID  uint64    `json:"sender_id,omitempty"`
    CreatedAt time.Time `json:"created_at"`
}
