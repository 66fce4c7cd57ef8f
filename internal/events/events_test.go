package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestNATSServer starts an embedded NATS server on a random port.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

func TestNATSPublisher_Publish(t *testing.T) {
	server := startTestNATSServer(t)

	sub, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer sub.Close()

	msgs := make(chan *nats.Msg, 1)
	_, err = sub.ChanSubscribe("portal.registration.succeeded", msgs)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	pub, err := Connect(server.ClientURL(), "portal")
	require.NoError(t, err)
	defer pub.Close()

	err = pub.Publish(context.Background(), Event{
		Type:        TypeRegistrationSucceeded,
		UserType:    "admin",
		EmailDomain: EmailDomain("Jane@Maple.org"),
		Community:   "Maple Grove",
	})
	require.NoError(t, err)

	select {
	case msg := <-msgs:
		var ev Event
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		assert.Equal(t, TypeRegistrationSucceeded, ev.Type)
		assert.Equal(t, "admin", ev.UserType)
		assert.Equal(t, "maple.org", ev.EmailDomain)
		assert.Equal(t, "Maple Grove", ev.Community)
		assert.False(t, ev.At.IsZero())
		assert.NotContains(t, string(msg.Data), "Jane@")
	case <-time.After(5 * time.Second):
		t.Fatal("event not received")
	}
}

func TestNATSPublisher_CanceledContext(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	pub := NewNATSPublisher(nc, "portal.")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, pub.Publish(ctx, Event{Type: TypeLoginSucceeded}), context.Canceled)

	// Borrowed connections stay open.
	require.NoError(t, pub.Close())
	assert.True(t, nc.IsConnected())
}

func TestNATSPublisher_Subject(t *testing.T) {
	assert.Equal(t, "portal.login.succeeded", NewNATSPublisher(nil, "portal").Subject(TypeLoginSucceeded))
	assert.Equal(t, "portal.login.succeeded", NewNATSPublisher(nil, "portal.").Subject(TypeLoginSucceeded))
	assert.Equal(t, "login.succeeded", NewNATSPublisher(nil, "").Subject(TypeLoginSucceeded))
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: TypeLoginSucceeded}))
}

func TestEmailDomain(t *testing.T) {
	tests := map[string]string{
		"jane@maple.org":  "maple.org",
		"a@b@Example.COM": "example.com",
		"no-at":           "",
		"trailing@":       "",
		"":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, EmailDomain(in), in)
	}
}
