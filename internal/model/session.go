package model

import "time"

// Session binds a browser to a User.  Sessions live in the session store
// (Redis or memory), never in MySQL.  The token is the opaque identifier
// carried by the browser cookie.
type Session struct {
    Token               string    `json:"token"`
    UserID              uint64    `json:"user_id"`
    CreatedAt           time.Time `json:"created_at"`
    LastSeenAt          time.Time `json:"last_seen_at"`
    ForcePasswordChange bool      `json:"force_password_change"`
    PasswordExpired     bool      `json:"password_expired"`
}

// SessionFlags are the transient password-state flags captured at login.
type SessionFlags struct {
    ForcePasswordChange bool
    PasswordExpired     bool
}
