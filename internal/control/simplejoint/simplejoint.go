// Package simplejoint implements the built-in "simple_joint" robot
// control plugin: a single joint/axis pair driven by a
// position-to-force proportional outer loop feeding a force-to-velocity
// PI inner loop, matching the original firmware's simple_joint.c.
package simplejoint

import (
	"math"
	"strconv"
	"strings"

	"github.com/arobi-robotics/robotd/internal/control"
	"github.com/arobi-robotics/robotd/internal/dof"
	"github.com/arobi-robotics/robotd/pkg/errs"
)

func init() {
	control.Register("simple_joint", New)
}

// Controller is the simple joint-space force/velocity controller.
type Controller struct {
	positionGain float64
	forceGain    float64
	forceIntGain float64

	state control.State

	lastForceError   float64
	velocitySetpoint float64
	runningTime      float64
}

// New parses "<positionGain> <forceGain> <forceIntegralGain>" and builds
// a Controller.
func New(config string) (control.Plugin, error) {
	fields := strings.Fields(config)
	if len(fields) != 3 {
		return nil, errs.Configuration("simple_joint", "expected 3 space-separated gains, got %q", config)
	}

	gains := make([]float64, 3)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errs.Configuration("simple_joint", "gain %d %q: %v", i, f, err)
		}
		gains[i] = v
	}

	return &Controller{
		positionGain: gains[0],
		forceGain:    gains[1],
		forceIntGain: gains[2],
	}, nil
}

func (c *Controller) JointNames() []string { return []string{"angle"} }
func (c *Controller) AxisNames() []string  { return []string{"angle"} }

func (c *Controller) JointsChanged() []bool { return []bool{true} }
func (c *Controller) AxesChanged() []bool   { return []bool{true} }

// SetControlState transitions the controller's state and clears the
// velocity setpoint and running-time accumulators (but, matching the
// original firmware exactly, not the force-error history).
func (c *Controller) SetControlState(state control.State) {
	c.state = state
	c.velocitySetpoint = 0
	c.runningTime = 0
}

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
	axisMeasures[0].Inertia = jointMeasures[0].Inertia

	c.runningTime += timeDelta

	totalForceSetpoint := axisSetpoints[0].Force

	if c.state == control.StateOperation || c.state == control.StateCalibration {
		if c.state == control.StateCalibration {
			axisSetpoints[0].Force = 2 * math.Sin(2*math.Pi*c.runningTime/4)
		}

		positionError := axisSetpoints[0].Position - axisMeasures[0].Position
		if c.state == control.StateOperation {
			totalForceSetpoint += c.positionGain * positionError
		}

		forceError := totalForceSetpoint - axisMeasures[0].Force
		c.velocitySetpoint += c.forceGain*(forceError-c.lastForceError) + c.forceIntGain*timeDelta*forceError
		axisSetpoints[0].Velocity = c.velocitySetpoint
		c.lastForceError = forceError
	}

	jointSetpoints[0].Position = axisSetpoints[0].Position
	jointSetpoints[0].Velocity = axisSetpoints[0].Velocity
	jointSetpoints[0].Acceleration = axisSetpoints[0].Acceleration
	jointSetpoints[0].Force = totalForceSetpoint
	jointSetpoints[0].Stiffness = axisSetpoints[0].Stiffness
	jointSetpoints[0].Damping = axisSetpoints[0].Damping
	jointSetpoints[0].Inertia = axisSetpoints[0].Inertia
}
