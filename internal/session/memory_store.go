package session

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/src-portal/internal/model"
)

// MemoryStore keeps sessions in process memory.  It is used when Redis is
// unavailable at startup and in tests.  Sessions do not survive restarts.
type MemoryStore struct {
	opts Options
	now  func() time.Time

	mu     sync.Mutex
	byTok  map[string]*model.Session
	byUser map[uint64]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		opts:   opts.withDefaults(),
		now:    func() time.Time { return time.Now().UTC() },
		byTok:  make(map[string]*model.Session),
		byUser: make(map[uint64]string),
	}
}

func (m *MemoryStore) Create(_ context.Context, userID uint64, flags model.SessionFlags) (string, error) {
	tok, err := newToken()
	if err != nil {
		return "", err
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.byUser[userID]; ok {
		delete(m.byTok, old)
	}
	m.byTok[tok] = &model.Session{
		Token:               tok,
		UserID:              userID,
		CreatedAt:           now,
		LastSeenAt:          now,
		ForcePasswordChange: flags.ForcePasswordChange,
		PasswordExpired:     flags.PasswordExpired,
	}
	m.byUser[userID] = tok
	return tok, nil
}

func (m *MemoryStore) Get(_ context.Context, token string) (*model.Session, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byTok[token]
	if !ok {
		return nil, ErrNotFound
	}
	if now.Sub(s.LastSeenAt) >= m.opts.IdleTimeout || m.opts.expired(s, now) {
		m.removeLocked(s)
		return nil, ErrNotFound
	}
	s.LastSeenAt = now
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Update(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byTok[s.Token]
	if !ok || cur.UserID != s.UserID {
		return ErrNotFound
	}
	cur.ForcePasswordChange = s.ForcePasswordChange
	cur.PasswordExpired = s.PasswordExpired
	return nil
}

func (m *MemoryStore) Destroy(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byTok[token]; ok {
		m.removeLocked(s)
	}
	return nil
}

func (m *MemoryStore) DestroyAllForUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tok, ok := m.byUser[userID]; ok {
		delete(m.byTok, tok)
		delete(m.byUser, userID)
	}
	return nil
}

func (m *MemoryStore) removeLocked(s *model.Session) {
	delete(m.byTok, s.Token)
	if m.byUser[s.UserID] == s.Token {
		delete(m.byUser, s.UserID)
	}
}
