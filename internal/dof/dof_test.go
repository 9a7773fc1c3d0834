package dof

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arobi-robotics/robotd/internal/kalman"
)

func TestSetMotionStatePreservesPassthroughFields(t *testing.T) {
	v := Variables{Inertia: 1, Stiffness: 2, Damping: 3}
	v.SetMotionState(kalman.State{Position: 10, Velocity: 20, Acceleration: 30, Force: 40})

	assert.Equal(t, 10.0, v.Position)
	assert.Equal(t, 20.0, v.Velocity)
	assert.Equal(t, 30.0, v.Acceleration)
	assert.Equal(t, 40.0, v.Force)
	assert.Equal(t, 1.0, v.Inertia)
	assert.Equal(t, 2.0, v.Stiffness)
	assert.Equal(t, 3.0, v.Damping)
}

func TestGetSelectsMotionVariable(t *testing.T) {
	v := Variables{Position: 1, Velocity: 2, Acceleration: 3, Force: 4}
	assert.Equal(t, 1.0, v.Get(kalman.Position))
	assert.Equal(t, 2.0, v.Get(kalman.Velocity))
	assert.Equal(t, 3.0, v.Get(kalman.Acceleration))
	assert.Equal(t, 4.0, v.Get(kalman.Force))
}
