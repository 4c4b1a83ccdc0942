package link

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/handlink/pkg/framework"
)

// Callbacks receives link notifications for the user interface.
type Callbacks interface {
	// ChangeConnectedState reports whether the link is connected.
	ChangeConnectedState(connected bool)
	// ChangeHandReadyState reports whether the peripheral is ready.
	ChangeHandReadyState(ready bool)
}

type nopCallbacks struct{}

func (nopCallbacks) ChangeConnectedState(bool) {}
func (nopCallbacks) ChangeHandReadyState(bool) {}

// Monitor periodically probes the link and reports its health.
//
// Positive notifications are sent once when the link becomes connected.
// Negative notifications are sent on every cycle while the link is down.
type Monitor struct {
	Link     *Link
	UI       Callbacks
	Interval time.Duration

	connected atomic.Bool

	lock   sync.Mutex
	cancel func()
	doneCh chan error
}

// NewMonitor creates a Monitor polling at the link's poll interval.
func NewMonitor(link *Link, ui Callbacks) *Monitor {
	if ui == nil {
		ui = nopCallbacks{}
	}
	return &Monitor{Link: link, UI: ui, Interval: link.conf.PollInterval}
}

// Cycle runs a single health check.
func (m *Monitor) Cycle() {
	found := m.Link.Probe()
	switch {
	case found && m.Link.IsOpen():
		if !m.connected.Swap(true) {
			glog.Infof("peripheral ready on %s", m.Link.Port())
			m.UI.ChangeConnectedState(true)
			m.UI.ChangeHandReadyState(true)
		}
	case found:
		m.connected.Store(false)
		m.UI.ChangeConnectedState(false)
	default:
		if m.connected.Swap(false) {
			glog.Info("peripheral disconnected")
		}
		m.UI.ChangeConnectedState(false)
		m.UI.ChangeHandReadyState(false)
	}
}

// Connected returns the state as of the last cycle.
func (m *Monitor) Connected() bool {
	return m.connected.Load()
}

// Run implements framework.Runnable. It probes immediately and then every
// Interval until ctx is done. The link is closed before Run returns.
func (m *Monitor) Run(ctx context.Context) error {
	loop := fx.NewLoop()
	if m.Interval > 0 {
		loop.Interval = m.Interval
	}
	loop.AddController(fx.ControlFunc(func(fx.ControlContext) error {
		m.Cycle()
		return nil
	}))
	err := loop.Run(ctx)
	if cerr := m.Link.Close(); cerr != nil {
		glog.Warningf("close link: %v", cerr)
	}
	glog.Info("monitor stopped")
	return err
}

// Start runs the monitor in background. It's a no-op if already started.
func (m *Monitor) Start() {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel, m.doneCh = cancel, make(chan error, 1)
	go func(doneCh chan error) {
		doneCh <- m.Run(ctx)
	}(m.doneCh)
}

// Stop stops the background monitor and waits for it to exit.
func (m *Monitor) Stop() error {
	m.lock.Lock()
	cancel, doneCh := m.cancel, m.doneCh
	m.cancel, m.doneCh = nil, nil
	m.lock.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	err := <-doneCh
	glog.Info("monitor joined")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
