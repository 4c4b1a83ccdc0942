package link

import (
	"bytes"
	"os"
	"sync"
	"time"

	"github.com/robotalks/handlink/pkg/link/device"
)

type fakePort struct {
	id string

	lock     sync.Mutex
	in       bytes.Buffer
	out      bytes.Buffer
	readErr  error
	writeErr error
	closed   bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	switch {
	case p.closed:
		return 0, os.ErrClosed
	case p.readErr != nil:
		return 0, p.readErr
	case p.in.Len() == 0:
		return 0, nil
	}
	return p.in.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	switch {
	case p.closed:
		return 0, os.ErrClosed
	case p.writeErr != nil:
		return 0, p.writeErr
	}
	return p.out.Write(b)
}

func (p *fakePort) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.closed {
		return os.ErrClosed
	}
	p.closed = true
	return nil
}

func (p *fakePort) feed(s string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.in.WriteString(s)
}

func (p *fakePort) fail(err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.readErr = err
	p.writeErr = err
}

func (p *fakePort) written() string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.out.String()
}

func (p *fakePort) isClosed() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.closed
}

// fakeDevices is both the PortLister and the device.Opener.
type fakeDevices struct {
	lock     sync.Mutex
	ids      []string
	listErr  error
	openErr  error
	greeting string
	portErr  error
	opens    map[string]int
	ports    []*fakePort
}

func newFakeDevices(ids ...string) *fakeDevices {
	return &fakeDevices{ids: ids, opens: make(map[string]int)}
}

func (d *fakeDevices) set(ids ...string) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.ids = ids
}

func (d *fakeDevices) failOpen(err error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.openErr = err
}

func (d *fakeDevices) ListCandidatePorts() ([]string, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.listErr != nil {
		return nil, d.listErr
	}
	return append([]string(nil), d.ids...), nil
}

func (d *fakeDevices) failList(err error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.listErr = err
}

func (d *fakeDevices) Open(id string, conf device.OpenConfig) (device.Port, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.opens[id]++
	if d.openErr != nil {
		return nil, d.openErr
	}
	p := &fakePort{id: id, readErr: d.portErr, writeErr: d.portErr}
	p.in.WriteString(d.greeting)
	d.ports = append(d.ports, p)
	return p, nil
}

func (d *fakeDevices) openCount(id string) int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.opens[id]
}

func (d *fakeDevices) totalOpens() (n int) {
	d.lock.Lock()
	defer d.lock.Unlock()
	for _, c := range d.opens {
		n += c
	}
	return
}

func (d *fakeDevices) lastPort() *fakePort {
	d.lock.Lock()
	defer d.lock.Unlock()
	if len(d.ports) == 0 {
		return nil
	}
	return d.ports[len(d.ports)-1]
}

func testConfig() Config {
	conf := *NewConfig()
	conf.PollInterval = 10 * time.Millisecond
	conf.ConnectBackoff = time.Millisecond
	return conf
}

func newTestLink(d *fakeDevices) *Link {
	return newTestLinkWith(testConfig(), d)
}

func newTestLinkWith(conf Config, d *fakeDevices) *Link {
	l := New(conf, d, d)
	l.sleep = func(time.Duration) {}
	return l
}
