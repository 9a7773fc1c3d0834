package serialio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaultsBaudAndSamples(t *testing.T) {
	port, baud, samples, err := parseConfig("port=/dev/ttyUSB0")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", port)
	assert.Equal(t, 115200, baud)
	assert.Equal(t, defaultMaxSamples, samples)
}

func TestParseConfigOverridesBaudAndSamples(t *testing.T) {
	port, baud, samples, err := parseConfig("port=/dev/ttyACM0,baud=921600,samples=64")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", port)
	assert.Equal(t, 921600, baud)
	assert.Equal(t, 64, samples)
}

func TestParseConfigMissingPortErrors(t *testing.T) {
	_, _, _, err := parseConfig("baud=9600")
	assert.Error(t, err)
}

func TestParseConfigInvalidBaudErrors(t *testing.T) {
	_, _, _, err := parseConfig("port=/dev/ttyUSB0,baud=fast")
	assert.Error(t, err)
}

func TestDeviceHasErrorAndResetWithoutOpenPort(t *testing.T) {
	d := New()
	assert.False(t, d.HasError(0))
	d.hasError = true
	assert.True(t, d.HasError(0))
	d.Reset(0)
	assert.False(t, d.HasError(0))
}

func TestWriteWithoutAcquiredChannelFails(t *testing.T) {
	d := New()
	assert.False(t, d.Write(0, 1, 2.0), "no port opened and channel never acquired")
}
