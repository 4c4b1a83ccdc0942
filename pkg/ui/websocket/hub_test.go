package websocket

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

type fakeSender struct {
	lock     sync.Mutex
	commands []Command
	sends    int
}

func (s *fakeSender) Send(command, purpose string, time float64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.commands = append(s.commands, Command{command, purpose, time})
	s.sends++
	return nil
}

func (s *fakeSender) sent() ([]Command, int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Command(nil), s.commands...), s.sends
}

type portFunc func() string

func (f portFunc) Port() string { return f() }

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	conn, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(portFunc(func() string { return "/dev/ttyACM0" }), nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	var ev Event
	require.NoError(t, websocket.JSON.Receive(conn, &ev))
	assert.Equal(t, Event{Port: "/dev/ttyACM0"}, ev)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	hub.ChangeConnectedState(true)
	hub.ChangeHandReadyState(true)
	hub.ChangeHandReadyState(true)
	require.NoError(t, websocket.JSON.Receive(conn, &ev))
	assert.Equal(t, Event{Connected: true, Port: "/dev/ttyACM0"}, ev)
	require.NoError(t, websocket.JSON.Receive(conn, &ev))
	assert.Equal(t, Event{Connected: true, HandReady: true, Port: "/dev/ttyACM0"}, ev)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubCommands(t *testing.T) {
	sender := &fakeSender{}
	hub := NewHub(nil, sender)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	var ev Event
	require.NoError(t, websocket.JSON.Receive(conn, &ev))
	require.NoError(t, websocket.JSON.Send(conn, Command{Command: "F", Purpose: "grip", Time: 1.5}))
	require.Eventually(t, func() bool {
		_, sends := sender.sent()
		return sends == 1
	}, time.Second, 5*time.Millisecond)
	commands, _ := sender.sent()
	assert.Equal(t, []Command{{Command: "F", Purpose: "grip", Time: 1.5}}, commands)
}

func TestHubStalledClient(t *testing.T) {
	large := strings.Repeat("x", 32<<20)
	hub := NewHub(portFunc(func() string { return large }), nil)
	hub.WriteTimeout = 50 * time.Millisecond
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	// the client never reads, so the first event can't be flushed.
	dial(t, srv)

	done := make(chan struct{})
	go func() {
		hub.ChangeConnectedState(true)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("state change blocked by a stalled client")
	}
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}
