// Package websocket broadcasts link state to browser user interfaces and
// accepts commands from them.
package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/handlink/pkg/framework"
	"github.com/robotalks/handlink/pkg/ui"
)

// Event is sent to clients when the link state changes.
type Event struct {
	Connected bool   `json:"connected"`
	HandReady bool   `json:"hand_ready"`
	Port      string `json:"port,omitempty"`
}

// Command is received from clients.
type Command struct {
	Command string  `json:"command"`
	Purpose string  `json:"purpose"`
	Time    float64 `json:"time"`
}

// PortSource reports the selected port. *link.Link implements it.
type PortSource interface {
	Port() string
}

// DefaultWriteTimeout bounds sending an event to one client.
const DefaultWriteTimeout = time.Second

// Hub keeps track of connected clients.
type Hub struct {
	ui.Tracker

	Ports        PortSource
	Commands     ui.Commander
	WriteTimeout time.Duration

	lock  sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates a Hub. ports and commands may be nil.
func NewHub(ports PortSource, commands ui.Commander) *Hub {
	h := &Hub{
		Ports:        ports,
		Commands:     commands,
		WriteTimeout: DefaultWriteTimeout,
		conns:        make(map[*websocket.Conn]struct{}),
	}
	h.OnChange = h.broadcast
	return h
}

// Handler returns the http.Handler serving websocket clients.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.conns)
}

func (h *Hub) event(state ui.State) Event {
	ev := Event{Connected: state.Connected, HandReady: state.HandReady}
	if h.Ports != nil {
		ev.Port = h.Ports.Port()
	}
	return ev
}

func (h *Hub) serve(conn *websocket.Conn) {
	defer conn.Close()
	h.lock.Lock()
	h.conns[conn] = struct{}{}
	err := h.send(conn, h.event(h.State()))
	h.lock.Unlock()
	defer func() {
		h.lock.Lock()
		delete(h.conns, conn)
		h.lock.Unlock()
	}()
	if err != nil {
		glog.V(1).Infof("websocket %s: %v", conn.Request().RemoteAddr, err)
		return
	}
	for {
		var cmd Command
		if err := websocket.JSON.Receive(conn, &cmd); err != nil {
			glog.V(1).Infof("websocket %s closed: %v", conn.Request().RemoteAddr, err)
			return
		}
		if h.Commands == nil {
			continue
		}
		if err := h.Commands.Send(cmd.Command, cmd.Purpose, cmd.Time); err != nil {
			glog.Warningf("websocket command %q: %v", cmd.Command, err)
		}
	}
}

func (h *Hub) broadcast(state ui.State) {
	ev := h.event(state)
	h.lock.Lock()
	defer h.lock.Unlock()
	for conn := range h.conns {
		if err := h.send(conn, ev); err != nil {
			glog.V(1).Infof("websocket %s: %v", conn.Request().RemoteAddr, err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// send writes ev to a client. It runs with h.lock held, so a stalled
// client may hold up others for at most WriteTimeout.
func (h *Hub) send(conn *websocket.Conn, ev Event) error {
	timeout := h.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	conn.SetWriteDeadline(time.Now().Add(timeout))
	return websocket.JSON.Send(conn, ev)
}

func (h *Hub) closeAll() {
	h.lock.Lock()
	defer h.lock.Unlock()
	for conn := range h.conns {
		conn.Close()
	}
}

// Server serves a Hub over HTTP at path /ws.
type Server struct {
	Addr string
	Hub  *Hub
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.Hub.Handler())
	srv := &http.Server{Addr: s.Addr, Handler: mux}
	glog.Infof("websocket listening on %s", s.Addr)
	return fx.RunWithContextCancel(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		s.Hub.closeAll()
	}, srv.ListenAndServe)
}
