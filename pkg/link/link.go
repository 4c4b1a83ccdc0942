package link

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/sony/gobreaker/v2"

	"github.com/robotalks/handlink/pkg/link/comm"
	"github.com/robotalks/handlink/pkg/link/device"
)

// State is the connection state of a Link.
type State int

// States.
const (
	StateIdle State = iota
	StateSearching
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Status is the link status as seen by the user interface.
type Status int

// Statuses.
const (
	StatusDisconnected Status = iota
	StatusPortFound
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusPortFound:
		return "port-found"
	case StatusConnected:
		return "connected"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// PortLister lists the port IDs of candidate peripherals in order.
type PortLister interface {
	ListCandidatePorts() ([]string, error)
}

// Link owns the single connection to the peripheral.
//
// All methods are safe for concurrent use. The connection handle, the
// selected port and the inbound line buffer are guarded by one mutex so
// the monitor and command senders never observe a half-closed handle.
// The state is readable without the mutex, so StateConnecting is visible
// while connect attempts hold it.
type Link struct {
	conf    Config
	lister  PortLister
	opener  device.Opener
	breaker *gobreaker.CircuitBreaker[device.Port]
	sleep   func(time.Duration)

	lock   sync.Mutex
	port   device.Port
	target string
	reader *comm.LineReader

	state  atomic.Int32
	record atomic.Pointer[comm.Record]
}

// New creates a Link. conf is expected to be validated.
func New(conf Config, lister PortLister, opener device.Opener) *Link {
	l := &Link{
		conf:   conf,
		lister: lister,
		opener: opener,
		sleep:  time.Sleep,
	}
	l.breaker = gobreaker.NewCircuitBreaker[device.Port](gobreaker.Settings{
		Name:        "connect",
		MaxRequests: 1,
		Timeout:     conf.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= conf.Breaker.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// an absent peripheral is not a connect failure.
			return err == nil || errors.Is(err, ErrLinkUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			glog.Infof("%s breaker %s -> %s", name, from, to)
		},
	})
	return l
}

// Probe searches for the peripheral and makes sure a connection to it is
// open. It returns true when a candidate port is present, even if
// connecting to it failed.
func (l *Link) Probe() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	if !l.selectTargetLocked() {
		return false
	}
	if l.port == nil {
		if err := l.connectLocked(); err != nil {
			glog.Errorf("connect %s: %v", l.target, err)
		}
	}
	return true
}

// Connect opens the connection to the selected peripheral. It's a no-op
// if the connection is already open.
func (l *Link) Connect() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.port != nil {
		return nil
	}
	return l.connectLocked()
}

// Close closes the connection and forgets the selected port.
func (l *Link) Close() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	err := l.closeLocked()
	l.target = ""
	l.state.Store(int32(StateIdle))
	return err
}

// IsOpen indicates the connection is open.
func (l *Link) IsOpen() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.port != nil
}

// Port returns the selected port ID, empty if none.
func (l *Link) Port() string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.target
}

// State returns the connection state.
func (l *Link) State() State {
	return State(l.state.Load())
}

// Status returns the user facing status.
func (l *Link) Status() Status {
	l.lock.Lock()
	defer l.lock.Unlock()
	switch {
	case l.port != nil:
		return StatusConnected
	case l.target != "":
		return StatusPortFound
	}
	return StatusDisconnected
}

// UpdateStream replaces the outbound record.
func (l *Link) UpdateStream(command, purpose string, timeOnLetter float64) {
	l.record.Store(&comm.Record{Command: command, Purpose: purpose, Time: timeOnLetter})
}

// Record returns the current outbound record.
func (l *Link) Record() (comm.Record, bool) {
	if rec := l.record.Load(); rec != nil {
		return *rec, true
	}
	return comm.Record{}, false
}

// SendStream writes the current outbound record to the peripheral.
func (l *Link) SendStream() error {
	rec := l.record.Load()
	if rec == nil {
		return ErrNoRecord
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.port == nil {
		glog.Warningf("write failed, no connection: %s", rec)
		return ErrNoLink
	}
	if _, err := rec.WriteTo(l.port); err != nil {
		if device.IsTransportFault(err) {
			glog.Warningf("peripheral lost on %s while writing: %v", l.target, err)
			l.closeLocked()
		}
		return &TransportError{Op: "write", Port: l.target, Err: err}
	}
	glog.V(1).Infof("%s on port %s", rec, l.target)
	return nil
}

// ReadStatus reads one status line from the peripheral. On a transport
// fault the connection is re-established and the read retried once.
// The returned status is comm.StatusNone whenever err is not nil.
func (l *Link) ReadStatus() (string, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	status, err := l.readLocked()
	var terr *TransportError
	if err == nil || !errors.As(err, &terr) || !device.IsTransportFault(terr.Err) {
		return status, err
	}
	glog.Warningf("peripheral lost on %s while reading: %v, reconnecting", l.target, terr.Err)
	l.closeLocked()
	if err = l.connectLocked(); err != nil {
		return comm.StatusNone, err
	}
	return l.readLocked()
}

// ReadStream is ReadStatus with errors logged and folded into
// comm.StatusNone.
func (l *Link) ReadStream() string {
	status, err := l.ReadStatus()
	if err != nil && !errors.Is(err, comm.ErrNoLine) {
		glog.V(1).Infof("read status: %v", err)
	}
	return status
}

func (l *Link) readLocked() (string, error) {
	if l.port == nil {
		return comm.StatusNone, ErrNoLink
	}
	line, err := l.reader.ReadLine()
	switch {
	case err == nil:
	case errors.Is(err, comm.ErrNoLine), errors.Is(err, comm.ErrLineTooLong):
		return comm.StatusNone, err
	default:
		return comm.StatusNone, &TransportError{Op: "read", Port: l.target, Err: err}
	}
	glog.V(2).Infof("received %q from %s", line, l.target)
	return comm.ParseStatus(line)
}

// selectTargetLocked refreshes the selected port from enumeration. It
// returns false if no candidate is present.
func (l *Link) selectTargetLocked() bool {
	ids, err := l.lister.ListCandidatePorts()
	if err != nil {
		// keep the current selection, the device may still be there.
		glog.Errorf("list ports: %v", err)
		return l.target != ""
	}
	if len(ids) == 0 {
		if l.port != nil {
			glog.Warningf("peripheral lost on %s", l.target)
			l.closeLocked()
		}
		l.target = ""
		l.state.Store(int32(StateSearching))
		return false
	}
	selected := ids[0]
	if selected == l.target {
		return true
	}
	if len(ids) > 1 {
		glog.Infof("%d peripherals found %v, using %s", len(ids), ids, selected)
	} else {
		glog.Infof("peripheral found on %s", selected)
	}
	if l.port != nil {
		glog.Infof("switching from %s to %s", l.target, selected)
		l.closeLocked()
	}
	l.target = selected
	return true
}

func (l *Link) connectLocked() error {
	port, err := l.breaker.Execute(l.openWithRetryLocked)
	if err != nil {
		l.state.Store(int32(StateSearching))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return err
	}
	l.port = port
	l.reader = comm.NewLineReader(port)
	l.state.Store(int32(StateConnected))
	glog.Infof("connected to %s", l.target)
	return nil
}

func (l *Link) openWithRetryLocked() (device.Port, error) {
	l.state.Store(int32(StateConnecting))
	if l.target == "" && !l.selectTargetLocked() {
		return nil, ErrLinkUnavailable
	}
	conf := device.OpenConfig{BaudRate: l.conf.BaudRate, ReadTimeout: l.conf.ReadTimeout}
	backoff := l.conf.ConnectBackoff
	var lastErr error
	attempt := 1
	for ; ; attempt++ {
		port, err := l.opener.Open(l.target, conf)
		if err == nil {
			return port, nil
		}
		lastErr = err
		glog.Warningf("connect %s attempt %d/%d: %v", l.target, attempt, l.conf.ConnectAttempts, err)
		if attempt >= l.conf.ConnectAttempts {
			break
		}
		l.sleep(backoff)
		if backoff *= 2; backoff > MaxConnectBackoff {
			backoff = MaxConnectBackoff
		}
		if !l.selectTargetLocked() {
			return nil, &ConnectError{Port: "", Attempts: attempt, Err: ErrLinkUnavailable}
		}
	}
	return nil, &ConnectError{Port: l.target, Attempts: attempt, Err: lastErr}
}

func (l *Link) closeLocked() error {
	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port, l.reader = nil, nil
	l.state.Store(int32(StateSearching))
	if err != nil {
		glog.Warningf("close %s: %v", l.target, err)
	}
	return err
}
