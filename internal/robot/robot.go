// Package robot implements the Robot orchestrator: one RobotControlPlugin
// driving a set of joints (each backed by an Actuator) through a
// coordinate transform onto a set of axes, run by a fixed-period control
// loop that mirrors the original firmware's AsyncControl thread with
// Go's context/goroutine idiom in place of a raw thread and a volatile
// running flag.
package robot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arobi-robotics/robotd/internal/actuator"
	"github.com/arobi-robotics/robotd/internal/config"
	"github.com/arobi-robotics/robotd/internal/control"
	"github.com/arobi-robotics/robotd/internal/dof"
	"github.com/arobi-robotics/robotd/pkg/errs"
	"github.com/arobi-robotics/robotd/pkg/logging"

	_ "github.com/arobi-robotics/robotd/internal/control/dualmotor"
	_ "github.com/arobi-robotics/robotd/internal/control/passthrough"
	_ "github.com/arobi-robotics/robotd/internal/control/simplejoint"
)

// defaultControlTimeStep is the original firmware's CONTROL_PASS_INTERVAL.
const defaultControlTimeStep = 5 * time.Millisecond

// joint pairs one Actuator with its seqlock-guarded measures/setpoints.
type joint struct {
	actuator *actuator.Actuator
	cell     dofCell
}

// axis is the effector-space counterpart of joint: it carries no
// Actuator, only the seqlock-guarded measures/setpoints the controller
// plugin reads and writes each control tick.
type axis struct {
	cell dofCell
}

// Robot is one configured robot: a controller plugin, its joints and
// axes, and the fixed-period goroutine that drives them.
type Robot struct {
	name string

	controller      control.Plugin
	controlState    control.State
	controlTimeStep time.Duration

	joints []*joint
	axes   []*axis

	mu      sync.Mutex // guards start/stop of the control loop only
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	repeatedError atomic.Bool
}

// New builds a Robot from its configuration: it resolves the controller
// plugin, then one Actuator per configured joint (via loadActuator,
// loadSensor and loadMotor, recursing through the same config-name
// resolution the original firmware does through its config_keys.h
// lookups), and sizes the axis-side state from the plugin's own axis
// count.
func New(
	name string,
	cfg config.RobotConfig,
	loadActuator func(actuatorName string) (config.ActuatorConfig, error),
	loadSensor func(sensorName string) (config.SensorConfig, error),
	loadMotor func(motorName string) (config.MotorConfig, error),
	logDir string,
) (*Robot, error) {
	controller, err := control.New(cfg.Controller.Type, cfg.Controller.Config)
	if err != nil {
		return nil, errs.Configuration(name, "controller %q: %v", cfg.Controller.Type, err)
	}

	controlTimeStep := defaultControlTimeStep
	if cfg.Controller.TimeStep > 0 {
		controlTimeStep = time.Duration(cfg.Controller.TimeStep * float64(time.Second))
	}

	jointNames := controller.JointNames()
	if len(cfg.Actuators) != len(jointNames) {
		return nil, errs.Configuration(name, "controller %q expects %d joints, got %d actuators", cfg.Controller.Type, len(jointNames), len(cfg.Actuators))
	}

	r := &Robot{
		name:            name,
		controller:      controller,
		controlState:    control.StatePassive,
		controlTimeStep: controlTimeStep,
		joints:          make([]*joint, len(jointNames)),
		axes:            make([]*axis, len(controller.AxisNames())),
	}

	for i, ref := range cfg.Actuators {
		actuatorConfig, err := loadActuator(ref.Config)
		if err != nil {
			r.closeJoints()
			return nil, errs.Configuration(name, "actuator %q: %v", ref.Config, err)
		}
		a, err := actuator.New(ref.Name, actuatorConfig, loadSensor, loadMotor, logDir)
		if err != nil {
			r.closeJoints()
			return nil, err
		}
		r.joints[i] = &joint{actuator: a}
	}

	for i := range r.axes {
		r.axes[i] = &axis{}
	}

	return r, nil
}

func (r *Robot) closeJoints() {
	for _, j := range r.joints {
		if j != nil {
			j.actuator.Close()
		}
	}
}

// Close releases every joint's actuator. The robot must be Disabled first.
func (r *Robot) Close() {
	if r == nil {
		return
	}
	r.closeJoints()
}

// Enable drives every joint into the OFFSET state, enables each joint's
// actuator, then starts the control loop, matching the original
// firmware's Robot_Enable ordering.
func (r *Robot) Enable() bool {
	r.SetControlState(control.StateOffset)

	for _, j := range r.joints {
		if !j.actuator.Enable() {
			return false
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return true
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.running = true
	r.wg.Add(1)
	go r.runControlLoop(ctx)

	return true
}

// Disable stops the control loop, zero-setpoints every joint and
// disables its actuator, matching Robot_Disable.
func (r *Robot) Disable() bool {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return false
	}
	r.cancel()
	r.running = false
	r.mu.Unlock()

	r.wg.Wait()

	for _, j := range r.joints {
		j.actuator.SetSetpoints(dof.Variables{})
		j.actuator.Disable()
	}

	return true
}

// SetControlState transitions the robot (and its controller plugin and
// every joint's actuator) into a new control state. A no-op transition
// to the current state, or an out-of-range state, is rejected.
//
// The mapping onto actuator.ControlState is many-to-one, per the
// original firmware: ROBOT_OFFSET and ROBOT_CALIBRATION map to the
// matching actuator state, while every other robot state (including
// ROBOT_PASSIVE and ROBOT_PREPROCESSING) maps to ACTUATOR_OPERATION.
func (r *Robot) SetControlState(newState control.State) bool {
	if newState == r.controlState || !newState.Valid() {
		return false
	}

	r.controller.SetControlState(newState)

	actuatorState := actuator.StateOperation
	switch newState {
	case control.StateOffset:
		actuatorState = actuator.StateOffset
	case control.StateCalibration:
		actuatorState = actuator.StateCalibration
	}

	for _, j := range r.joints {
		j.actuator.SetControlState(actuatorState)
	}

	r.controlState = newState
	return true
}

// HasRepeatedError reports whether any joint's actuator has erred on
// every tick across its error window, the condition the dispatcher
// surfaces to clients as an unsolicited ROBOT_REP_ERROR frame.
func (r *Robot) HasRepeatedError() bool { return r.repeatedError.Load() }

// JointsNumber returns the number of joints the controller plugin declared.
func (r *Robot) JointsNumber() int { return len(r.joints) }

// AxesNumber returns the number of axes the controller plugin declared.
func (r *Robot) AxesNumber() int { return len(r.axes) }

// GetJointName returns the name of the joint at index, per the
// controller plugin's declared JointNames order.
func (r *Robot) GetJointName(index int) (string, error) {
	names := r.controller.JointNames()
	if index < 0 || index >= len(names) {
		return "", fmt.Errorf("robot %q: joint index %d out of range", r.name, index)
	}
	return names[index], nil
}

// GetAxisName returns the name of the axis at index, per the controller
// plugin's declared AxisNames order.
func (r *Robot) GetAxisName(index int) (string, error) {
	names := r.controller.AxisNames()
	if index < 0 || index >= len(names) {
		return "", fmt.Errorf("robot %q: axis index %d out of range", r.name, index)
	}
	return names[index], nil
}

// GetJointMeasures returns the joint's latest measures and whether they
// changed since the last call, clearing the changed flag.
func (r *Robot) GetJointMeasures(index int) (dof.Variables, bool, error) {
	if index < 0 || index >= len(r.joints) {
		return dof.Variables{}, false, fmt.Errorf("robot %q: joint index %d out of range", r.name, index)
	}
	j := r.joints[index]
	changed := j.cell.hasChanged.Swap(false)
	return j.cell.readMeasures(), changed, nil
}

// GetAxisMeasures returns the axis's latest measures and whether they
// changed since the last call, clearing the changed flag.
func (r *Robot) GetAxisMeasures(index int) (dof.Variables, bool, error) {
	if index < 0 || index >= len(r.axes) {
		return dof.Variables{}, false, fmt.Errorf("robot %q: axis index %d out of range", r.name, index)
	}
	a := r.axes[index]
	changed := a.cell.hasChanged.Swap(false)
	return a.cell.readMeasures(), changed, nil
}

// SetAxisSetpoints replaces the axis's commanded setpoints.
func (r *Robot) SetAxisSetpoints(index int, setpoints dof.Variables) error {
	if index < 0 || index >= len(r.axes) {
		return fmt.Errorf("robot %q: axis index %d out of range", r.name, index)
	}
	r.axes[index].cell.writeSetpoints(setpoints)
	return nil
}

// runControlLoop is the Go replacement for AsyncControl: a
// fixed-period, drift-compensated loop that measures each joint, runs
// one controller step and writes each joint's resulting setpoint back
// to its actuator, sleeping off whatever of the control period the
// work did not consume.
func (r *Robot) runControlLoop(ctx context.Context) {
	defer r.wg.Done()

	jointMeasures := make([]dof.Variables, len(r.joints))
	axisMeasures := make([]dof.Variables, len(r.axes))
	jointSetpoints := make([]dof.Variables, len(r.joints))
	axisSetpoints := make([]dof.Variables, len(r.axes))

	execTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		elapsedTime := time.Since(execTime).Seconds()
		execTime = time.Now()

		for i, j := range r.joints {
			if err := j.actuator.GetMeasures(elapsedTime, &jointMeasures[i]); err != nil {
				logging.Component("robot").WithField("robot", r.name).WithField("joint", i).WithError(err).Debug("measure error")
			}
		}
		for i, a := range r.axes {
			axisSetpoints[i] = a.cell.readSetpoints()
		}

		r.controller.RunControlStep(jointMeasures, axisMeasures, jointSetpoints, axisSetpoints, elapsedTime)

		axesChanged := r.controller.AxesChanged()
		for i, a := range r.axes {
			a.cell.writeMeasures(axisMeasures[i])
			if i < len(axesChanged) && axesChanged[i] {
				a.cell.hasChanged.Store(true)
			}
		}

		jointsChanged := r.controller.JointsChanged()
		repeatedError := false
		for i, j := range r.joints {
			if i < len(jointsChanged) && jointsChanged[i] {
				j.cell.hasChanged.Store(true)
			}

			if j.actuator.HasError() {
				j.actuator.Reset()
			}
			if j.actuator.RepeatedError() {
				repeatedError = true
			}

			j.actuator.SetSetpoints(jointSetpoints[i])
			j.cell.writeMeasures(jointMeasures[i])
		}
		r.repeatedError.Store(repeatedError)

		workTime := time.Since(execTime)
		if remaining := r.controlTimeStep - workTime; remaining > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(remaining):
			}
		}
	}
}
