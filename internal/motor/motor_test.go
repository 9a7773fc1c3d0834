package motor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arobi-robotics/robotd/internal/config"
	"github.com/arobi-robotics/robotd/internal/signalio/dummy"
)

func newTestMotor(t *testing.T) (*Motor, *dummy.Device) {
	t.Helper()
	m, err := New("test-motor", config.MotorConfig{
		Interface:  config.InterfaceConfig{Type: "dummy", Channel: 3},
		OutputGain: config.GainConfig{Multiplier: 2, Divisor: 1},
	}, "")
	require.NoError(t, err)

	dev, ok := m.device.(*dummy.Device)
	require.True(t, ok)
	return m, dev
}

func TestWriteControlAppliesGain(t *testing.T) {
	m, dev := newTestMotor(t)
	defer m.Close()

	m.WriteControl(1.5)
	v, ok := dev.LastWrite(3)
	require.True(t, ok)
	assert.InDelta(t, 3.0, v, 1e-9)
}

func TestOffsetSuppressesDeviceWrites(t *testing.T) {
	m, dev := newTestMotor(t)
	defer m.Close()

	m.SetOffset(true)
	beforeCount := dev.WriteCount(3)

	m.WriteControl(5.0)
	assert.Equal(t, beforeCount, dev.WriteCount(3), "no device write must occur while offsetting")
}

func TestOffsetCaptureOnlyOnOnToOffTransition(t *testing.T) {
	m, _ := newTestMotor(t)
	defer m.Close()

	// OFF -> ON: no reference sensor configured, offset stays 0.
	m.SetOffset(true)
	assert.Equal(t, 0.0, m.outputOffset)

	// ON -> OFF with no reference: still 0 since reference is nil.
	m.SetOffset(false)
	assert.Equal(t, 0.0, m.outputOffset)
}

func TestDefaultGainIsIdentity(t *testing.T) {
	m, err := New("identity", config.MotorConfig{
		Interface: config.InterfaceConfig{Type: "dummy", Channel: 0},
	}, "")
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 1.0, m.gain)
}
