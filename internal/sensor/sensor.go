// Package sensor implements the Sensor component: a bank of Inputs
// combined by a compiled expression into one output value, with an
// optional per-tick numeric log.
package sensor

import (
	"fmt"

	"github.com/arobi-robotics/robotd/internal/config"
	"github.com/arobi-robotics/robotd/internal/datalog"
	"github.com/arobi-robotics/robotd/internal/expr"
	"github.com/arobi-robotics/robotd/internal/input"
	"github.com/arobi-robotics/robotd/internal/signalproc"
	"github.com/arobi-robotics/robotd/pkg/errs"
)

// inputVariableNames mirrors the original firmware's in0..in5 binding
// names; a sensor may combine up to len(inputVariableNames) inputs.
var inputVariableNames = []string{"in0", "in1", "in2", "in3", "in4", "in5"}

// Sensor reads a bank of Inputs and combines them through a compiled
// expression into a single scalar output.
type Sensor struct {
	inputs     []*input.Input
	values     []float64
	transform  expr.Node
	log        *datalog.Log
}

// New builds a Sensor from its configuration. The output expression
// defaults to "in0", a pure passthrough of the first input, matching
// the original firmware's default when no "output" expression is given.
func New(name string, cfg config.SensorConfig, logDir string) (*Sensor, error) {
	if len(cfg.Inputs) == 0 {
		return nil, errs.Configuration("sensor", "%q: at least one input is required", name)
	}
	if len(cfg.Inputs) > len(inputVariableNames) {
		return nil, errs.Configuration("sensor", "%q: too many inputs (max %d)", name, len(inputVariableNames))
	}

	s := &Sensor{
		inputs: make([]*input.Input, len(cfg.Inputs)),
		values: make([]float64, len(cfg.Inputs)),
	}

	vars := make(expr.Vars, len(cfg.Inputs))
	for i, inCfg := range cfg.Inputs {
		in, err := input.New(inCfg)
		if err != nil {
			s.Close()
			return nil, errs.Configuration("sensor", "%q: input %d: %v", name, i, err)
		}
		in.Reset()
		s.inputs[i] = in
		vars[inputVariableNames[i]] = &s.values[i]
	}

	output := cfg.Output
	if output == "" {
		output = inputVariableNames[0]
	}
	node, err := expr.Compile(output, vars)
	if err != nil {
		s.Close()
		return nil, errs.Configuration("sensor", "%q: output expression %q: %v", name, output, err)
	}
	s.transform = node

	if cfg.Log != nil {
		dir := ""
		if cfg.Log.File {
			dir = logDir
		}
		log, err := datalog.New(dir, name, cfg.Log.Precision)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.log = log
	}

	return s, nil
}

// Close releases every underlying Input and the log stream.
func (s *Sensor) Close() {
	if s == nil {
		return
	}
	for _, in := range s.inputs {
		in.Close()
	}
	s.log.Close()
}

// Update reads every input, evaluates the transform expression against
// the fresh readings, and returns the scalar result.
func (s *Sensor) Update() float64 {
	for i, in := range s.inputs {
		s.values[i] = in.Update()
	}
	out := s.transform.Eval()

	s.log.EnterNewLine()
	s.log.RegisterValues(s.values...)
	s.log.RegisterValues(out)
	s.log.Flush()

	return out
}

// HasError reports whether any underlying Input is in an error state.
func (s *Sensor) HasError() bool {
	for _, in := range s.inputs {
		if in.HasError() {
			return true
		}
	}
	return false
}

// Reset resets every underlying Input.
func (s *Sensor) Reset() {
	for _, in := range s.inputs {
		in.Reset()
	}
}

// SetOffset puts every input into the OFFSET phase.
func (s *Sensor) SetOffset() { s.setPhase(signalproc.PhaseOffset) }

// SetCalibration puts every input into the CALIBRATION phase.
func (s *Sensor) SetCalibration() { s.setPhase(signalproc.PhaseCalibration) }

// SetMeasurement puts every input into the MEASUREMENT phase.
func (s *Sensor) SetMeasurement() { s.setPhase(signalproc.PhaseMeasurement) }

func (s *Sensor) setPhase(phase signalproc.Phase) {
	for _, in := range s.inputs {
		in.SetPhase(phase)
	}
}

func (s *Sensor) String() string {
	return fmt.Sprintf("sensor(inputs=%d)", len(s.inputs))
}
