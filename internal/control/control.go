// Package control defines the RobotControlPlugin capability: the
// robot-specific coordinate transform and control law between a robot's
// joints and its effector axes, plus the static registry that selects
// an implementation by name at configuration time, a plugin dispatch
// without dynamic linking, per the "Plugin dispatch" design note that
// also grounds internal/signalio's registry.
package control

import (
	"fmt"

	"github.com/arobi-robotics/robotd/internal/dof"
)

// State is the control-state enumeration RunControlStep and
// SetControlState are driven by.
type State int

const (
	StatePassive State = iota
	StateOffset
	StateCalibration
	StatePreprocessing
	StateOperation
	numStates
)

// Valid reports whether s is a defined control state.
func (s State) Valid() bool { return s >= StatePassive && s < numStates }

// Plugin is the capability every robot control implementation provides:
// a joint<->axis coordinate transform and control law, run once per
// control tick.
type Plugin interface {
	// JointNames returns the names of this controller's joint-space
	// degrees of freedom, in the order RunControlStep expects them.
	JointNames() []string
	// AxisNames returns the names of this controller's effector-space
	// degrees of freedom, in the order RunControlStep expects them.
	AxisNames() []string
	// SetControlState notifies the controller of a control-state
	// transition; stateful plugins may reset internal accumulators here.
	SetControlState(state State)
	// RunControlStep performs one joint<->axis coordinate conversion and
	// control law pass. jointMeasures is a read-only input; axisMeasures
	// is written by the plugin from the joint measures;
	// jointSetpoints/axisSetpoints are read on entry (as the desired
	// state) and may be overwritten on return (as the plugin's actual
	// commanded output).
	RunControlStep(jointMeasures, axisMeasures []dof.Variables, jointSetpoints, axisSetpoints []dof.Variables, timeDelta float64)
	// JointsChanged reports, per joint and for the tick just run, whether
	// its measures are worth forwarding to network clients. A plugin with
	// nothing to say about staleness should report every joint changed on
	// every tick.
	JointsChanged() []bool
	// AxesChanged is JointsChanged's effector-space counterpart.
	AxesChanged() []bool
}

// Factory builds a fresh, unconfigured Plugin instance.
type Factory func(config string) (Plugin, error)

var registry = map[string]Factory{}

// Register adds a plugin kind to the static registry. Called from each
// plugin implementation's init().
func Register(name string, factory Factory) {
	registry[name] = factory
}

// New resolves a plugin name and configuration string to a configured
// Plugin instance.
func New(name, config string) (Plugin, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("control: unknown plugin %q", name)
	}
	return factory(config)
}
