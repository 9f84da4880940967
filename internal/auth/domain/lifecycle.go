package domain

import "time"

// Lifecycle is the soft-delete state shared by principals, sessions, reset
// tokens and comments. Active is the enable switch; DeletedAt is set once
// and never cleared.
type Lifecycle struct {
	Active    bool
	DeletedAt *time.Time
}

// NewLifecycle returns the state of a freshly created record.
func NewLifecycle() Lifecycle {
	return Lifecycle{Active: true}
}

// LifecycleState lets every type embedding Lifecycle satisfy Lived.
func (l Lifecycle) LifecycleState() Lifecycle { return l }

// Deleted reports whether the record has been soft-deleted.
func (l Lifecycle) Deleted() bool { return l.DeletedAt != nil }

// SoftDelete marks the record removed at t. Repeated calls keep the first instant.
func (l *Lifecycle) SoftDelete(t time.Time) {
	l.Active = false
	if l.DeletedAt == nil {
		t = t.UTC()
		l.DeletedAt = &t
	}
}

// Lived is implemented by anything carrying a Lifecycle.
type Lived interface {
	LifecycleState() Lifecycle
}

// IsLive reports whether e is active and not soft-deleted.
func IsLive(e Lived) bool {
	l := e.LifecycleState()
	return l.Active && l.DeletedAt == nil
}
