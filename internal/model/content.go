package model

import "time"

// Minutes represents a row in the `minutes` table.
type Minutes struct {
    ID          uint64
    Title       string
    MeetingDate time.Time
    Body        string
    CreatedBy   uint64
    CreatedAt   time.Time
    UpdatedAt   time.Time
}

// Notification is an in-app message delivered to a single user.
type Notification struct {
    ID        uint64     `json:"id"`
    UserID    uint64     `json:"user_id"`
    Subject   string     `json:"subject"`
    Body      string     `json:"body"`
    ReadAt    *time.Time `json:"read_at,omitempty"`
    CreatedAt time.Time  `json:"created_at"`
}

// ChatMessage is a public chat line.  IDs are monotonic; clients poll for
// rows with an id greater than the last one they saw.
type ChatMessage struct {
    ID        uint64    `json:"id"`
    UserID    uint64    `json:"user_id"`
    Username  string    `json:"username"`
    Body      string    `json:"body"`
    CreatedAt time.Time `json:"created_at"`
}

// SenateMember represents a row in the `senate_members` table.  UserID is
// zero for members without a portal account.
type SenateMember struct {
    ID        uint64
    UserID    uint64
    Name      string
    Faculty   string
    Position  string
    TermStart time.Time
    TermEnd   time.Time
}

// Setting is a named value in the `settings` table.
type Setting struct {
    Name  string
    Value string
}
