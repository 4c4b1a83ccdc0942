package device

import (
	"errors"
	"io"
	"os"
	"syscall"

	"go.bug.st/serial"
)

var faultCodes = map[serial.PortErrorCode]bool{
	serial.PortClosed:        true,
	serial.PortNotFound:      true,
	serial.InvalidSerialPort: true,
	serial.PortBusy:          true,
	serial.PermissionDenied:  true,
}

var faultErrors = []error{
	io.EOF,
	io.ErrUnexpectedEOF,
	io.ErrClosedPipe,
	os.ErrNotExist,
	os.ErrClosed,
	os.ErrPermission,
	syscall.EIO,
	syscall.ENXIO,
	syscall.ENODEV,
	syscall.EBADF,
}

// IsTransportFault reports whether err is any of the faults which mean the
// port is unusable and must be reopened: device vanished, port closed,
// permission lost or an I/O error on the line.
func IsTransportFault(err error) bool {
	if err == nil {
		return false
	}
	var portErr *serial.PortError
	if errors.As(err, &portErr) && faultCodes[portErr.Code()] {
		return true
	}
	for _, target := range faultErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
