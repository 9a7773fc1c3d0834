package simplejoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arobi-robotics/robotd/internal/control"
	"github.com/arobi-robotics/robotd/internal/dof"
)

func TestNewParsesGains(t *testing.T) {
	p, err := New("1.5 0.2 0.05")
	require.NoError(t, err)
	c := p.(*Controller)
	assert.Equal(t, 1.5, c.positionGain)
	assert.Equal(t, 0.2, c.forceGain)
	assert.Equal(t, 0.05, c.forceIntGain)
}

func TestNewRejectsWrongGainCount(t *testing.T) {
	_, err := New("1.0 2.0")
	assert.Error(t, err)
}

func TestPassiveStateLeavesVelocitySetpointUnchanged(t *testing.T) {
	p, err := New("1 1 1")
	require.NoError(t, err)
	c := p.(*Controller)

	jointMeasures := []dof.Variables{{}}
	axisMeasures := []dof.Variables{{}}
	jointSetpoints := []dof.Variables{{}}
	axisSetpoints := []dof.Variables{{Force: 2.0}}

	c.RunControlStep(jointMeasures, axisMeasures, jointSetpoints, axisSetpoints, 0.01)

	assert.Equal(t, 0.0, axisSetpoints[0].Velocity)
	assert.Equal(t, 2.0, jointSetpoints[0].Force, "in PASSIVE, total force setpoint passes through unmodified")
}

func TestSetControlStateResetsVelocityNotForceError(t *testing.T) {
	p, err := New("1 1 1")
	require.NoError(t, err)
	c := p.(*Controller)

	c.velocitySetpoint = 5
	c.lastForceError = 3
	c.SetControlState(control.StateOperation)

	assert.Equal(t, 0.0, c.velocitySetpoint)
	assert.Equal(t, 3.0, c.lastForceError, "lastForceError must survive a control-state transition")
}
