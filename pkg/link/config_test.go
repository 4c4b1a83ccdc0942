package link

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/handlink/pkg/link/device"
)

func TestDefaultConfigValid(t *testing.T) {
	conf := NewConfig()
	require.NoError(t, conf.Validate())
	assert.Equal(t, 9600, conf.BaudRate)
	assert.Equal(t, 500*time.Millisecond, conf.PollInterval)
	assert.Equal(t, 3, conf.ConnectAttempts)
}

func TestLoadConfig(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "handlink.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(`
baud_rate: 115200
poll_interval: 250ms
signatures:
  darwin:
    field: description
    substring: Arduino
breaker:
  max_failures: 2
`), 0644))
	conf, err := LoadConfig(fn)
	require.NoError(t, err)
	assert.Equal(t, 115200, conf.BaudRate)
	assert.Equal(t, 250*time.Millisecond, conf.PollInterval)
	assert.Equal(t, 100*time.Millisecond, conf.ReadTimeout)
	assert.Equal(t, uint32(2), conf.Breaker.MaxFailures)
	assert.Equal(t, 5*time.Second, conf.Breaker.Timeout)
	assert.Equal(t, device.Signature{Field: device.FieldDescription, Substring: "Arduino"}, conf.Signatures["darwin"])
}

func TestLoadConfigInvalid(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
	}{
		{"zero baud", "baud_rate: 0"},
		{"zero timeout", "read_timeout: 0s"},
		{"no attempts", "connect_attempts: 0"},
		{"bad signature", "signatures: {linux: {field: serial, substring: x}}"},
		{"not yaml", "baud_rate: [1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fn := filepath.Join(t.TempDir(), "handlink.yaml")
			require.NoError(t, os.WriteFile(fn, []byte(tc.yaml), 0644))
			_, err := LoadConfig(fn)
			assert.Error(t, err)
		})
	}
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSignatureFlag(t *testing.T) {
	saved := defaultConfig.Signatures
	defer func() { defaultConfig.Signatures = saved }()
	defaultConfig.Signatures = nil

	var f signatureFlag
	assert.Error(t, f.Set("serial:x"))
	assert.Error(t, f.Set("description"))
	require.NoError(t, f.Set("description:Mega"))
	assert.Equal(t, "description:Mega", f.String())
	assert.Equal(t, "Mega", NewConfig().Signatures[runtime.GOOS].Substring)
}
