// Package dualmotor implements the built-in "dual_motor" robot control
// plugin: two independent joint/axis pairs, each driven by the same
// stiffness/damping force law, matching the original firmware's
// dual_motor.c.
package dualmotor

import (
	"github.com/arobi-robotics/robotd/internal/control"
	"github.com/arobi-robotics/robotd/internal/dof"
)

func init() {
	control.Register("dual_motor", func(config string) (control.Plugin, error) {
		return &Controller{}, nil
	})
}

// Controller drives two degrees of freedom, "angle1" and "angle2", each
// on both the joint and axis side.
type Controller struct{}

func (c *Controller) JointNames() []string { return []string{"angle1", "angle2"} }
func (c *Controller) AxisNames() []string  { return []string{"angle1", "angle2"} }

func (c *Controller) JointsChanged() []bool { return []bool{true, true} }
func (c *Controller) AxesChanged() []bool   { return []bool{true, true} }

func (c *Controller) SetControlState(state control.State) {}

// RunControlStep runs controlJoint independently for each of the two
// joints. Axis position/velocity setpoints are cleared first, matching
// the original's disabled cross-joint coupling.
func (c *Controller) RunControlStep(jointMeasures, axisMeasures []dof.Variables, jointSetpoints, axisSetpoints []dof.Variables, timeDelta float64) {
	if len(jointMeasures) < 2 || len(axisMeasures) < 2 || len(jointSetpoints) < 2 || len(axisSetpoints) < 2 {
		return
	}

	axisSetpoints[0].Position = 0
	axisSetpoints[1].Position = 0
	axisSetpoints[0].Velocity = 0
	axisSetpoints[1].Velocity = 0

	controlJoint(&jointMeasures[0], &axisMeasures[0], &jointSetpoints[0], &axisSetpoints[0])
	controlJoint(&jointMeasures[1], &axisMeasures[1], &jointSetpoints[1], &axisSetpoints[1])
}

// controlJoint copies joint measures to axis measures, axis setpoints to
// joint setpoints, then adds a stiffness/damping force term on top of
// the joint force setpoint.
func controlJoint(jointMeasures, axisMeasures, jointSetpoints, axisSetpoints *dof.Variables) {
	axisMeasures.Position = jointMeasures.Position
	axisMeasures.Velocity = jointMeasures.Velocity
	axisMeasures.Acceleration = jointMeasures.Acceleration
	axisMeasures.Force = jointMeasures.Force
	axisMeasures.Stiffness = jointMeasures.Stiffness
	axisMeasures.Damping = jointMeasures.Damping

	jointSetpoints.Velocity = axisSetpoints.Velocity
	jointSetpoints.Position = axisSetpoints.Position
	jointSetpoints.Acceleration = axisSetpoints.Acceleration
	jointSetpoints.Force = axisSetpoints.Force
	jointSetpoints.Stiffness = axisSetpoints.Stiffness
	jointSetpoints.Damping = axisSetpoints.Damping

	positionError := jointSetpoints.Position - jointMeasures.Position
	velocityError := jointSetpoints.Velocity - jointMeasures.Velocity

	controlForce := jointSetpoints.Stiffness*positionError - jointSetpoints.Damping*velocityError
	dampingForce := jointSetpoints.Damping * jointMeasures.Velocity
	jointSetpoints.Force += controlForce - dampingForce
}
