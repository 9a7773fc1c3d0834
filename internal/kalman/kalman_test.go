package kalman

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvergesToConstantPositionMeasurement(t *testing.T) {
	f, err := New([]Measurement{{Variable: Position, Deviation: 0.1}})
	require.NoError(t, err)

	const dt = 0.01
	for i := 0; i < 200; i++ {
		f.SetTransitionFactor(Position, Velocity, dt)
		f.SetTransitionFactor(Position, Acceleration, dt*dt/2)
		f.SetTransitionFactor(Velocity, Acceleration, dt)
		f.SetMeasure(0, 5.0)
		f.Predict()
		state, err := f.Update()
		require.NoError(t, err)
		_ = state
	}

	state, err := f.Update()
	require.NoError(t, err)
	assert.InDelta(t, 5.0, state.Position, 0.05)
}

func TestRejectsInvalidVariable(t *testing.T) {
	_, err := New([]Measurement{{Variable: Variable(99)}})
	assert.Error(t, err)
}

func TestZeroSensorsPredictOnly(t *testing.T) {
	f, err := New(nil)
	require.NoError(t, err)

	f.SetTransitionFactor(Position, Velocity, 0.01)
	state := f.Predict()
	assert.Equal(t, 0.0, state.Position)

	state, err = f.Update()
	require.NoError(t, err)
	assert.Equal(t, 0.0, state.Position)
}

func TestResetRestoresIdentityTransition(t *testing.T) {
	f, err := New([]Measurement{{Variable: Velocity, Deviation: 1}})
	require.NoError(t, err)

	f.SetTransitionFactor(Position, Velocity, 0.5)
	f.Reset()

	f.SetMeasure(0, 3.0)
	state := f.Predict()
	assert.Equal(t, 0.0, state.Position, "transition coupling must be cleared by Reset")
}
