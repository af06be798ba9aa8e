// Package settings reads and writes the portal's named settings, most of
// which are boolean feature flags.
package settings

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/iliyamo/src-portal/internal/model"
	"github.com/iliyamo/src-portal/internal/repository"
)

// Known feature flags.
const (
	EnableMinutes    = "enable_minutes"
	EnablePublicChat = "enable_public_chat"
	EnableElections  = "enable_elections"
	EnableSMS        = "enable_sms"
	EnableEmail      = "enable_email"
)

// Defaults holds the value each known flag takes when its row is missing
// or unparseable.
var Defaults = map[string]bool{
	EnableMinutes:    true,
	EnablePublicChat: true,
	EnableElections:  true,
	EnableSMS:        false,
	EnableEmail:      true,
}

// Flags returns the known flag names in sorted order.
func Flags() []string {
	out := make([]string, 0, len(Defaults))
	for k := range Defaults {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Store is the persistence behind Service; *repository.SettingRepo
// satisfies it.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
	All(ctx context.Context) ([]model.Setting, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service { return &Service{store: store} }

// GetSetting returns the stored value of name, or def when it is missing
// or cannot be read.
func (s *Service) GetSetting(ctx context.Context, name, def string) string {
	v, err := s.store.Get(ctx, name)
	if err != nil {
		return def
	}
	return v
}

// Enabled reports whether flag name is on.  A missing row or an
// unrecognised value yields the registered default (false for unknown
// flags).  Storage errors other than a missing row are returned so the
// caller can fail closed.
func (s *Service) Enabled(ctx context.Context, name string) (bool, error) {
	def := Defaults[name]
	v, err := s.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return def, nil
		}
		return false, err
	}
	if b, ok := ParseBool(v); ok {
		return b, nil
	}
	return def, nil
}

// Set stores value under name.
func (s *Service) Set(ctx context.Context, name, value string) error {
	return s.store.Set(ctx, name, strings.TrimSpace(value))
}

// SetFlag stores a boolean flag as "1" or "0".
func (s *Service) SetFlag(ctx context.Context, name string, on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	return s.store.Set(ctx, name, v)
}

// All returns every stored setting.
func (s *Service) All(ctx context.Context) ([]model.Setting, error) {
	return s.store.All(ctx)
}

// FlagStates returns the effective value of every known flag.
func (s *Service) FlagStates(ctx context.Context) (map[string]bool, error) {
	rows, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(Defaults))
	for k, v := range Defaults {
		out[k] = v
	}
	for _, r := range rows {
		if _, known := Defaults[r.Name]; !known {
			continue
		}
		if b, ok := ParseBool(r.Value); ok {
			out[r.Name] = b
		}
	}
	return out, nil
}

// ParseBool accepts 1/true/yes/on and 0/false/no/off, case-insensitively.
func ParseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
