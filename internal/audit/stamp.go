// Package audit owns the who/when stamps carried by every persisted entity
// and the structured audit event log.
package audit

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Fields carries the creation and modification stamps shared by every
// persisted entity. Creation stamps are written once and never change.
type Fields struct {
	RegisteredBy string     `json:"registered_by"`
	RegisteredAt time.Time  `json:"registered_at"`
	ModifiedBy   *string    `json:"modified_by,omitempty"`
	ModifiedAt   *time.Time `json:"modified_at,omitempty"`
}

// Stamper writes stamps in a fixed IANA time zone.
type Stamper struct {
	loc *time.Location
	now func() time.Time
}

type StamperOption func(*Stamper)

// WithClock overrides the time source, for tests.
func WithClock(fn func() time.Time) StamperOption {
	return func(s *Stamper) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewStamper(zone string, opts ...StamperOption) (*Stamper, error) {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return nil, errors.New("audit: time zone is required")
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("audit: load time zone %q: %w", zone, err)
	}
	s := &Stamper{loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Now returns the current time in the stamp zone.
func (s *Stamper) Now() time.Time {
	return s.now().In(s.loc)
}

// StampCreate records who created the entity and when. Fields that already
// carry a creation stamp are left untouched.
func (s *Stamper) StampCreate(f *Fields, actorDocument string) {
	if f.RegisteredBy != "" || !f.RegisteredAt.IsZero() {
		return
	}
	f.RegisteredBy = actorDocument
	f.RegisteredAt = s.Now()
}

// StampModify records the latest modification. Safe to call any number of
// times; each call refreshes the stamp.
func (s *Stamper) StampModify(f *Fields, actorDocument string) {
	now := s.Now()
	f.ModifiedBy = &actorDocument
	f.ModifiedAt = &now
}
