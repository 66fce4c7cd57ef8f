// Package notify models the transient banner shown after a form submission.
package notify

import "time"

// Severity of a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// DefaultTTL is how long a notification stays visible unless closed.
const DefaultTTL = 6 * time.Second

// Notification is the outcome banner of a form. The zero value is hidden.
type Notification struct {
	Visible   bool      `json:"visible"`
	Message   string    `json:"message,omitempty"`
	Severity  Severity  `json:"severity,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Success returns a visible success notification expiring ttl after now.
func Success(msg string, now time.Time, ttl time.Duration) Notification {
	return Notification{Visible: true, Message: msg, Severity: SeveritySuccess, ExpiresAt: now.Add(ttl)}
}

// Failure returns a visible error notification expiring ttl after now.
func Failure(msg string, now time.Time, ttl time.Duration) Notification {
	return Notification{Visible: true, Message: msg, Severity: SeverityError, ExpiresAt: now.Add(ttl)}
}

// At returns n as seen at now: hidden once it has expired.
func (n Notification) At(now time.Time) Notification {
	if n.Visible && !n.ExpiresAt.IsZero() && !now.Before(n.ExpiresAt) {
		return Notification{}
	}
	return n
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time
