//go:build linux

package device

import (
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
)

func TestSerialOpenerOverPTY(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	port, err := SerialOpener{}.Open(slave.Name(), OpenConfig{
		BaudRate:    9600,
		ReadTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Skipf("pseudo terminal not usable as serial port: %v", err)
	}
	t.Cleanup(func() { port.Close() })

	_, err = master.Write([]byte("ping\n"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	var got []byte
	deadline := time.Now().Add(time.Second)
	for len(got) < 5 && time.Now().Before(deadline) {
		n, err := port.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	require.Equal(t, "ping\n", string(got))

	_, err = port.Write([]byte("pong"))
	require.NoError(t, err)
	out := make([]byte, 4)
	n, err := master.Read(out)
	require.NoError(t, err)
	require.Equal(t, "pong", string(out[:n]))
}

func TestSerialOpenerRejectsInfiniteTimeout(t *testing.T) {
	_, err := SerialOpener{}.Open("/dev/null", OpenConfig{BaudRate: 9600})
	require.Error(t, err)
}
