// Package dof defines the shared degree-of-freedom control variables
// record: the seven scalars robot control plugins and the network wire
// codec exchange for every joint and axis, in the exact field order of
// the wire format.
package dof

import "github.com/arobi-robotics/robotd/internal/kalman"

// Variables is one degree-of-freedom's full control-variable record.
// Field order matches the wire codec exactly: position, velocity,
// force, acceleration, inertia, stiffness, damping.
type Variables struct {
	Position     float64
	Velocity     float64
	Force        float64
	Acceleration float64
	Inertia      float64
	Stiffness    float64
	Damping      float64
}

// SetMotionState overwrites Position, Velocity, Acceleration and Force
// from a Kalman motion estimate, leaving Inertia, Stiffness and Damping
// untouched, configuration pass-through values the actuator layer never
// derives.
func (v *Variables) SetMotionState(s kalman.State) {
	v.Position = s.Position
	v.Velocity = s.Velocity
	v.Acceleration = s.Acceleration
	v.Force = s.Force
}

// Get returns the component of v named by the motion variable (one of
// the four an actuator's motor can be driven by).
func (v Variables) Get(variable kalman.Variable) float64 {
	switch variable {
	case kalman.Position:
		return v.Position
	case kalman.Velocity:
		return v.Velocity
	case kalman.Acceleration:
		return v.Acceleration
	case kalman.Force:
		return v.Force
	default:
		return 0
	}
}
