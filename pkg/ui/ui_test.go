package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMuxOrder(t *testing.T) {
	var calls []string
	m := &Mux{}
	m.Add(Funcs{
		Connected: func(v bool) { calls = append(calls, "a.connected") },
	}, Funcs{
		Connected: func(v bool) { calls = append(calls, "b.connected") },
		HandReady: func(v bool) { calls = append(calls, "b.ready") },
	})
	m.ChangeConnectedState(true)
	m.ChangeHandReadyState(true)
	assert.Equal(t, []string{"a.connected", "b.connected", "b.ready"}, calls)
}

func TestTrackerFoldsRepeats(t *testing.T) {
	var changes []State
	tr := &Tracker{OnChange: func(s State) { changes = append(changes, s) }}

	tr.ChangeConnectedState(false)
	tr.ChangeHandReadyState(false)
	tr.ChangeConnectedState(false)
	tr.ChangeHandReadyState(false)
	assert.Equal(t, []State{{}}, changes)

	tr.ChangeConnectedState(true)
	tr.ChangeHandReadyState(true)
	tr.ChangeConnectedState(true)
	assert.Equal(t, []State{{}, {Connected: true}, {Connected: true, HandReady: true}}, changes)
	assert.Equal(t, State{Connected: true, HandReady: true}, tr.State())
}

func TestLogger(t *testing.T) {
	l := NewLogger()
	l.ChangeConnectedState(true)
	assert.True(t, l.State().Connected)
	assert.False(t, l.State().HandReady)
}
