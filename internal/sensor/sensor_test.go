package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arobi-robotics/robotd/internal/config"
	_ "github.com/arobi-robotics/robotd/internal/signalio/dummy"
)

func dummyInput() config.InputConfig {
	return config.InputConfig{
		Interface: config.InterfaceConfig{Type: "dummy", Channel: 0},
	}
}

func TestDefaultOutputIsFirstInput(t *testing.T) {
	s, err := New("test-sensor", config.SensorConfig{
		Inputs: []config.InputConfig{dummyInput()},
	}, "")
	require.NoError(t, err)
	defer s.Close()

	// dummy input with no samples reads 0 in MEASUREMENT phase.
	s.SetMeasurement()
	assert.Equal(t, 0.0, s.Update())
}

func TestCombinesMultipleInputsWithExpression(t *testing.T) {
	s, err := New("combine", config.SensorConfig{
		Inputs: []config.InputConfig{dummyInput(), dummyInput()},
		Output: "in0 + in1",
	}, "")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 0.0, s.Update())
}

func TestHasErrorIsOrOverInputs(t *testing.T) {
	s, err := New("err-check", config.SensorConfig{
		Inputs: []config.InputConfig{dummyInput(), dummyInput()},
	}, "")
	require.NoError(t, err)
	defer s.Close()

	assert.False(t, s.HasError())
}

func TestRejectsEmptyInputs(t *testing.T) {
	_, err := New("empty", config.SensorConfig{}, "")
	assert.Error(t, err)
}

func TestRejectsInvalidOutputExpression(t *testing.T) {
	_, err := New("bad-expr", config.SensorConfig{
		Inputs: []config.InputConfig{dummyInput()},
		Output: "in0 +",
	}, "")
	assert.Error(t, err)
}
