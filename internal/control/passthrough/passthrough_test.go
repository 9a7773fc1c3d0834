package passthrough

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arobi-robotics/robotd/internal/control"
	"github.com/arobi-robotics/robotd/internal/dof"
)

func TestRegisteredAsDummy(t *testing.T) {
	p, err := control.New("dummy", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"angle"}, p.JointNames())
}

func TestAppliesStiffnessForceLaw(t *testing.T) {
	c := &Controller{}
	jointMeasures := []dof.Variables{{Position: 1.0}}
	axisMeasures := []dof.Variables{{}}
	jointSetpoints := []dof.Variables{{}}
	axisSetpoints := []dof.Variables{{Position: 1.5, Stiffness: 10}}

	c.RunControlStep(jointMeasures, axisMeasures, jointSetpoints, axisSetpoints, 0.01)

	assert.Equal(t, 1.0, axisMeasures[0].Position)
	assert.InDelta(t, 5.0, jointSetpoints[0].Force, 1e-9) // 10 * (1.5 - 1.0)
}
