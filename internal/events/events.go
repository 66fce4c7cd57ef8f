// Package events publishes account lifecycle events to NATS.
//
// Events never carry credentials or a full email address. Publishing is
// best effort: callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Event types. The subject is "<prefix>.<type>".
const (
	TypeRegistrationSucceeded = "registration.succeeded"
	TypeLoginSucceeded        = "login.succeeded"
)

// Event is the published message body.
type Event struct {
	Type        string    `json:"type"`
	UserType    string    `json:"user_type,omitempty"`
	EmailDomain string    `json:"email_domain,omitempty"`
	Community   string    `json:"community,omitempty"`
	At          time.Time `json:"at"`
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// EmailDomain returns the part of email after the last '@', lowercased.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// NATSPublisher publishes events as JSON on a NATS connection.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	owned  bool
}

// Connect dials url and returns a publisher that owns the connection.
func Connect(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("portal"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	p := NewNATSPublisher(nc, prefix)
	p.owned = true
	return p, nil
}

// NewNATSPublisher wraps an existing connection. Close leaves it open.
func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: nc, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(ev.Type), data); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}
	return nil
}

// Close drains the connection if the publisher opened it.
func (p *NATSPublisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.conn.Drain()
}
