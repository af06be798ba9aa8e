package model

import "time"

// ElectionStatus is the lifecycle state of an election.
type ElectionStatus string

const (
    ElectionDraft  ElectionStatus = "draft"
    ElectionOpen   ElectionStatus = "open"
    ElectionClosed ElectionStatus = "closed"
)

// Election represents a row in the `elections` table.
type Election struct {
    ID        uint64
    Title     string
    OpensAt   time.Time
    ClosesAt  time.Time
    Status    ElectionStatus
    CreatedAt time.Time
}

// AcceptsCandidates reports whether candidate registration is open at t.
func (e Election) AcceptsCandidates(t time.Time) bool {
    return e.Status == ElectionOpen && !t.Before(e.OpensAt) && t.Before(e.ClosesAt)
}

// CandidateStatus is the vetting state of a candidate registration.
type CandidateStatus string

const (
    CandidatePending  CandidateStatus = "pending"
    CandidateApproved CandidateStatus = "approved"
    CandidateRejected CandidateStatus = "rejected"
)

// Candidate represents a row in the `candidates` table.  Username is filled
// from a join for display.
type Candidate struct {
    ID         uint64
    ElectionID uint64
    UserID     uint64
    Username   string
    Position   string
    Manifesto  string
    Status     CandidateStatus
    CreatedAt  time.Time
}
