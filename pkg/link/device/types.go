package device

import (
	"errors"
	"io"
	"time"
)

// ErrUnsupportedPlatform indicates no enumeration strategy exists for the OS.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Descriptor identifies a serial device as reported by the OS.
type Descriptor struct {
	// ID is the port name used to open the device, e.g. /dev/ttyACM0 or COM3.
	ID string
	// Description is a human readable description, usually the USB product.
	Description string
}

// Enumerator lists all serial devices visible to the OS.
type Enumerator interface {
	Enumerate() ([]Descriptor, error)
}

// EnumerateFunc is the func form of Enumerator.
type EnumerateFunc func() ([]Descriptor, error)

// Enumerate implements Enumerator.
func (f EnumerateFunc) Enumerate() ([]Descriptor, error) {
	return f()
}

// Port is an open byte stream to a device.
type Port interface {
	io.ReadWriteCloser
}

// OpenConfig defines how a port is opened.
type OpenConfig struct {
	BaudRate int
	// ReadTimeout bounds a single Read. It must be finite.
	ReadTimeout time.Duration
}

// Opener opens a port by its ID.
type Opener interface {
	Open(id string, conf OpenConfig) (Port, error)
}

// OpenFunc is the func form of Opener.
type OpenFunc func(id string, conf OpenConfig) (Port, error)

// Open implements Opener.
func (f OpenFunc) Open(id string, conf OpenConfig) (Port, error) {
	return f(id, conf)
}
