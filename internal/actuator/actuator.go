// Package actuator implements the Actuator component: one Motor,
// a set of Sensors fused through a Kalman filter into a motion estimate,
// and the offset/calibration/operation control-state lifecycle.
package actuator

import (
	"github.com/arobi-robotics/robotd/internal/config"
	"github.com/arobi-robotics/robotd/internal/datalog"
	"github.com/arobi-robotics/robotd/internal/dof"
	"github.com/arobi-robotics/robotd/internal/kalman"
	"github.com/arobi-robotics/robotd/internal/motor"
	"github.com/arobi-robotics/robotd/internal/sensor"
	"github.com/arobi-robotics/robotd/pkg/errs"
	"github.com/arobi-robotics/robotd/pkg/logging"
)

// ControlState is the actuator's operating mode.
type ControlState int

const (
	StatePassive ControlState = iota
	StateOffset
	StateCalibration
	StateOperation
	numControlStates
)

// variableNames maps a sensor/motor "variable" config string onto
// kalman.Variable, mirroring the original firmware's CONTROL_MODE_NAMES
// lookup table.
var variableNames = map[string]kalman.Variable{
	"POSITION":     kalman.Position,
	"VELOCITY":     kalman.Velocity,
	"ACCELERATION": kalman.Acceleration,
	"FORCE":        kalman.Force,
}

// Actuator drives one degree of freedom: it fuses its sensors' readings
// into a motion estimate and writes control setpoints to its motor.
type Actuator struct {
	name string

	controlState ControlState
	controlMode  kalman.Variable

	motor   *motor.Motor
	sensors []*sensor.Sensor
	filter  *kalman.Filter

	log *datalog.Log

	errorTicks int
}

// New builds an Actuator from its configuration, resolving each sensor
// and the motor recursively and wiring the Kalman filter's measurement
// bindings from each sensor's declared variable and deviation.
func New(name string, cfg config.ActuatorConfig, loadSensor func(sensorName string) (config.SensorConfig, error), loadMotor func(motorName string) (config.MotorConfig, error), logDir string) (*Actuator, error) {
	measurements := make([]kalman.Measurement, 0, len(cfg.Sensors))
	sensors := make([]*sensor.Sensor, 0, len(cfg.Sensors))

	for i, sCfg := range cfg.Sensors {
		variable, ok := variableNames[sCfg.Variable]
		if !ok {
			return nil, errs.Configuration("actuator", "%q: sensor %d: unknown variable %q", name, i, sCfg.Variable)
		}

		sensorConfig, err := loadSensor(sCfg.Config)
		if err != nil {
			return nil, errs.Configuration("actuator", "%q: sensor %d config %q: %v", name, i, sCfg.Config, err)
		}
		s, err := sensor.New(sCfg.Config, sensorConfig, logDir)
		if err != nil {
			return nil, err
		}
		sensors = append(sensors, s)
		measurements = append(measurements, kalman.Measurement{Variable: variable, Deviation: sCfg.Deviation})
	}

	filter, err := kalman.New(measurements)
	if err != nil {
		closeAll(sensors, nil)
		return nil, err
	}

	motorVariable := kalman.Position
	if cfg.Motor.Variable != "" {
		v, ok := variableNames[cfg.Motor.Variable]
		if !ok {
			closeAll(sensors, nil)
			return nil, errs.Configuration("actuator", "%q: unknown motor variable %q", name, cfg.Motor.Variable)
		}
		motorVariable = v
	}

	motorConfig, err := loadMotor(cfg.Motor.Config)
	if err != nil {
		closeAll(sensors, nil)
		return nil, errs.Configuration("actuator", "%q: motor config %q: %v", name, cfg.Motor.Config, err)
	}
	m, err := motor.New(cfg.Motor.Config, motorConfig, logDir)
	if err != nil {
		closeAll(sensors, nil)
		return nil, err
	}

	a := &Actuator{
		name:         name,
		controlState: StatePassive,
		controlMode:  motorVariable,
		motor:        m,
		sensors:      sensors,
		filter:       filter,
	}

	if cfg.Log != nil {
		dir := ""
		if cfg.Log.File {
			dir = logDir
		}
		log, err := datalog.New(dir, name, cfg.Log.Precision)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.log = log
	}

	return a, nil
}

func closeAll(sensors []*sensor.Sensor, m *motor.Motor) {
	for _, s := range sensors {
		s.Close()
	}
	m.Close()
}

// Close releases the motor, every sensor and the log.
func (a *Actuator) Close() {
	if a == nil {
		return
	}
	closeAll(a.sensors, a.motor)
	a.log.Close()
}

// Enable acquires the motor's output channel.
func (a *Actuator) Enable() bool { return a.motor.Enable() }

// Disable releases the motor's output channel.
func (a *Actuator) Disable() { a.motor.Disable() }

// SetControlState transitions the actuator into a new control state,
// fanning the corresponding phase out to every sensor and to the motor.
// A no-op transition to the current state is rejected, as is an
// out-of-range state.
func (a *Actuator) SetControlState(newState ControlState) bool {
	if newState == a.controlState || newState >= numControlStates || newState < 0 {
		return false
	}

	switch newState {
	case StateOffset:
		for _, s := range a.sensors {
			s.SetOffset()
		}
		a.motor.SetOffset(true)
	case StateCalibration:
		for _, s := range a.sensors {
			s.SetCalibration()
		}
		a.motor.SetOffset(false)
	default: // StateOperation
		for _, s := range a.sensors {
			s.SetMeasurement()
		}
		a.motor.SetOffset(false)
	}

	a.controlState = newState
	return true
}

// Reset recovers the actuator's motor, every sensor and the Kalman filter
// after a device error, without changing the actuator's control state.
func (a *Actuator) Reset() {
	a.motor.Reset()
	for _, s := range a.sensors {
		s.Reset()
	}
	a.filter.Reset()
}

// repeatedErrorWindow is the number of consecutive erroring ticks after
// which RepeatedError reports true, escalating a persistent device fault
// to clients as ROBOT_REP_ERROR.
const repeatedErrorWindow = 200

// HasError reports a device error on the motor or on any sensor, and
// advances the actuator's error window: consecutive erroring ticks
// accumulate, any error-free tick clears the count.
func (a *Actuator) HasError() bool {
	hasError := a.motor.HasError()
	if !hasError {
		for _, s := range a.sensors {
			if s.HasError() {
				hasError = true
				break
			}
		}
	}

	if hasError {
		a.errorTicks++
	} else {
		a.errorTicks = 0
	}

	return hasError
}

// RepeatedError reports whether the actuator has erred on every tick
// across the error window.
func (a *Actuator) RepeatedError() bool {
	return a.errorTicks >= repeatedErrorWindow
}

// GetMeasures updates the transition factors for timeDelta, reads every
// sensor, runs the Kalman filter's predict/update cycle and writes the
// fused Position/Velocity/Acceleration/Force estimate into out, leaving
// its Inertia/Stiffness/Damping fields untouched. A numerical-instability
// error from the filter is logged here but does not prevent a (stale)
// estimate from being written.
func (a *Actuator) GetMeasures(timeDelta float64, out *dof.Variables) error {
	a.filter.SetTransitionFactor(kalman.Position, kalman.Velocity, timeDelta)
	a.filter.SetTransitionFactor(kalman.Position, kalman.Acceleration, timeDelta*timeDelta/2.0)
	a.filter.SetTransitionFactor(kalman.Velocity, kalman.Acceleration, timeDelta)

	for i, s := range a.sensors {
		a.filter.SetMeasure(i, s.Update())
	}

	a.filter.Predict()
	state, err := a.filter.Update()
	if err != nil {
		logging.Component("actuator").WithField("actuator", a.name).WithError(err).Warn("kalman update skipped")
	}
	out.SetMotionState(state)

	a.log.EnterNewLine()
	a.log.RegisterValues(state.Position, state.Velocity, state.Acceleration, state.Force)
	a.log.Flush()

	return err
}

// SetSetpoints selects this actuator's controlled variable from
// setpoints and, if the actuator is in the OPERATION state, writes it to
// the motor. It always returns the selected setpoint, regardless of
// control state, matching the original firmware's behavior of reporting
// the commanded value even while the motor output is suppressed.
func (a *Actuator) SetSetpoints(setpoints dof.Variables) float64 {
	value := setpoints.Get(a.controlMode)
	if a.controlState == StateOperation {
		a.motor.WriteControl(value)
	}
	return value
}

// ControlState returns the actuator's current control state.
func (a *Actuator) ControlState() ControlState { return a.controlState }
