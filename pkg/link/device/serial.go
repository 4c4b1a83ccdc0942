package device

import (
	"fmt"
	"path/filepath"

	"github.com/golang/glog"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// SystemEnumerator enumerates serial ports using the OS facilities.
type SystemEnumerator struct{}

// Enumerate implements Enumerator.
func (SystemEnumerator) Enumerate() ([]Descriptor, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	res := make([]Descriptor, 0, len(ports))
	for _, p := range ports {
		res = append(res, describe(p))
	}
	return res, nil
}

func describe(p *enumerator.PortDetails) Descriptor {
	d := Descriptor{ID: p.Name, Description: p.Product}
	if d.Description == "" {
		d.Description = filepath.Base(p.Name)
	}
	return d
}

// SerialOpener opens serial ports in 8N1 mode.
type SerialOpener struct{}

// Open implements Opener.
func (SerialOpener) Open(id string, conf OpenConfig) (Port, error) {
	if conf.ReadTimeout <= 0 {
		return nil, fmt.Errorf("open %s: read timeout must be finite and positive", id)
	}
	mode := &serial.Mode{
		BaudRate: conf.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(id, mode)
	if err != nil {
		return nil, err
	}
	if err = port.SetReadTimeout(conf.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", id, err)
	}
	glog.V(2).Infof("opened %s at %d baud", id, conf.BaudRate)
	return port, nil
}
