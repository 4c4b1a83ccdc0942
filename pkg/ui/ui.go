// Package ui bridges link notifications to user interfaces.
package ui

import (
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/handlink/pkg/link"
)

// State is what a user interface displays about the link.
type State struct {
	Connected bool
	HandReady bool
}

// Sender accepts commands for the peripheral. *link.Link implements it.
type Sender interface {
	UpdateStream(command, purpose string, time float64)
	SendStream() error
}

// Commander delivers one command to the peripheral.
type Commander interface {
	Send(command, purpose string, time float64) error
}

// Funcs adapts funcs to link.Callbacks. Nil funcs are skipped.
type Funcs struct {
	Connected func(bool)
	HandReady func(bool)
}

// ChangeConnectedState implements link.Callbacks.
func (f Funcs) ChangeConnectedState(v bool) {
	if f.Connected != nil {
		f.Connected(v)
	}
}

// ChangeHandReadyState implements link.Callbacks.
func (f Funcs) ChangeHandReadyState(v bool) {
	if f.HandReady != nil {
		f.HandReady(v)
	}
}

// Mux dispatches notifications to multiple callbacks in order.
type Mux struct {
	Callbacks []link.Callbacks
}

// Add adds more callbacks.
func (m *Mux) Add(cbs ...link.Callbacks) *Mux {
	m.Callbacks = append(m.Callbacks, cbs...)
	return m
}

// ChangeConnectedState implements link.Callbacks.
func (m *Mux) ChangeConnectedState(v bool) {
	for _, cb := range m.Callbacks {
		cb.ChangeConnectedState(v)
	}
}

// ChangeHandReadyState implements link.Callbacks.
func (m *Mux) ChangeHandReadyState(v bool) {
	for _, cb := range m.Callbacks {
		cb.ChangeHandReadyState(v)
	}
}

// Tracker folds repeated notifications into state changes.
// OnChange is called with the new state only when it differs from the
// previous one. The first notification always counts as a change.
type Tracker struct {
	OnChange func(State)

	lock  sync.Mutex
	state State
	valid bool
}

// ChangeConnectedState implements link.Callbacks.
func (t *Tracker) ChangeConnectedState(v bool) {
	t.update(func(s *State) { s.Connected = v })
}

// ChangeHandReadyState implements link.Callbacks.
func (t *Tracker) ChangeHandReadyState(v bool) {
	t.update(func(s *State) { s.HandReady = v })
}

// State returns the current state.
func (t *Tracker) State() State {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.state
}

func (t *Tracker) update(fn func(*State)) {
	t.lock.Lock()
	state := t.state
	fn(&state)
	changed := !t.valid || state != t.state
	t.state, t.valid = state, true
	t.lock.Unlock()
	if changed && t.OnChange != nil {
		t.OnChange(state)
	}
}

// Logger logs state changes.
type Logger struct {
	Tracker
}

// NewLogger creates a Logger.
func NewLogger() *Logger {
	l := &Logger{}
	l.OnChange = func(s State) {
		glog.Infof("hand connected=%v ready=%v", s.Connected, s.HandReady)
	}
	return l
}
