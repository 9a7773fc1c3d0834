// Package passthrough implements the built-in "dummy" robot control
// plugin: a single joint mapped 1:1 onto a single axis, with a simple
// stiffness-proportional force law. It mirrors the original firmware's
// reference dummy.c plugin, used as a smoke-test controller and as a
// template for real joint/axis coordinate transforms.
package passthrough

import (
	"github.com/arobi-robotics/robotd/internal/control"
	"github.com/arobi-robotics/robotd/internal/dof"
)

func init() {
	control.Register("dummy", func(config string) (control.Plugin, error) {
		return &Controller{}, nil
	})
}

// Controller is the dummy passthrough plugin: one degree of freedom
// named "angle" on both the joint and axis side.
type Controller struct{}

func (c *Controller) JointNames() []string { return []string{"angle"} }
func (c *Controller) AxisNames() []string  { return []string{"angle"} }

func (c *Controller) JointsChanged() []bool { return []bool{true} }
func (c *Controller) AxesChanged() []bool   { return []bool{true} }

func (c *Controller) SetControlState(state control.State) {}

// RunControlStep copies joint measures straight through to the axis
// measures, copies axis setpoints straight through to the joint
// setpoints, and then overrides the joint force setpoint with a
// stiffness-proportional position error term.
func (c *Controller) RunControlStep(jointMeasures, axisMeasures []dof.Variables, jointSetpoints, axisSetpoints []dof.Variables, timeDelta float64) {
	if len(jointMeasures) == 0 || len(axisMeasures) == 0 || len(jointSetpoints) == 0 || len(axisSetpoints) == 0 {
		return
	}

	axisMeasures[0].Position = jointMeasures[0].Position
	axisMeasures[0].Velocity = jointMeasures[0].Velocity
	axisMeasures[0].Acceleration = jointMeasures[0].Acceleration
	axisMeasures[0].Force = jointMeasures[0].Force
	axisMeasures[0].Stiffness = jointMeasures[0].Stiffness
	axisMeasures[0].Damping = jointMeasures[0].Damping

	jointSetpoints[0].Position = axisSetpoints[0].Position
	jointSetpoints[0].Velocity = axisSetpoints[0].Velocity
	jointSetpoints[0].Acceleration = axisSetpoints[0].Acceleration
	jointSetpoints[0].Force = axisSetpoints[0].Force
	jointSetpoints[0].Stiffness = axisSetpoints[0].Stiffness
	jointSetpoints[0].Damping = axisSetpoints[0].Damping

	stiffness := jointSetpoints[0].Stiffness
	positionError := jointSetpoints[0].Position - jointMeasures[0].Position
	jointSetpoints[0].Force = stiffness * positionError
}
