// Package session holds per-subject conversation state and the Store
// contract the conversation engine reads and writes it through.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store.Lookup for a subject with no stored session.
var ErrNotFound = errors.New("session: not found")

type Mode string

const (
	ModeBot          Mode = "BOT"
	ModeHumanHandoff Mode = "HUMAN_HANDOFF"
)

type State string

const (
	StateNew      State = "NEW"
	StateMenu     State = "MENU"
	StateBrowsing State = "BROWSING"
)

// Session is the conversation snapshot for one subject. While State is
// StateBrowsing, ActiveCategory names the category being browsed.
// ActiveCategory outlives browsing: returning to the category menu keeps it.
type Session struct {
	SubjectID      string    `json:"subject_id"`
	Mode           Mode      `json:"mode"`
	State          State     `json:"state"`
	ActiveCategory string    `json:"active_category,omitempty"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// New returns the first-contact session for subjectID.
func New(subjectID string, now time.Time) Session {
	return Session{
		SubjectID:      subjectID,
		Mode:           ModeBot,
		State:          StateNew,
		LastActivityAt: now,
	}
}

func (s Session) HandedOff() bool {
	return s.Mode == ModeHumanHandoff
}

// Browsing reports the category being browsed, if any.
func (s Session) Browsing() (string, bool) {
	if s.State != StateBrowsing || s.ActiveCategory == "" {
		return "", false
	}
	return s.ActiveCategory, true
}

// Store persists sessions. GetOrCreate returns the stored session with
// LastActivityAt set to now, or a fresh one when none exists; it does not
// write. Lookup returns the stored session as is, or ErrNotFound. Callers
// serialize GetOrCreate/Put pairs per subject (see Locker).
type Store interface {
	GetOrCreate(ctx context.Context, subjectID string, now time.Time) (Session, error)
	Lookup(ctx context.Context, subjectID string) (Session, error)
	Put(ctx context.Context, s Session) error
	Delete(ctx context.Context, subjectID string) error
}
