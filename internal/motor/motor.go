// Package motor implements the Motor component: a single
// Signal-I/O output channel with a gain, an optional reference Sensor
// used to sample an output offset, and an enable/disable lifecycle.
package motor

import (
	"github.com/arobi-robotics/robotd/internal/config"
	"github.com/arobi-robotics/robotd/internal/datalog"
	"github.com/arobi-robotics/robotd/internal/sensor"
	"github.com/arobi-robotics/robotd/internal/signalio"
	"github.com/arobi-robotics/robotd/pkg/errs"
)

// Motor drives one output channel of one Signal-I/O device.
type Motor struct {
	device  signalio.Device
	id      signalio.DeviceID
	channel uint
	gain    float64

	reference *sensor.Sensor

	outputOffset float64
	isOffsetting bool

	log *datalog.Log
}

// New builds a Motor from its configuration.
func New(name string, cfg config.MotorConfig, logDir string) (*Motor, error) {
	device, err := signalio.Lookup(cfg.Interface.Type)
	if err != nil {
		return nil, errs.Configuration("motor", "%q: signal_io device %q: %v", name, cfg.Interface.Type, err)
	}

	id, err := device.Init(cfg.Interface.Config)
	if err != nil {
		return nil, errs.Device(cfg.Interface.Type, "%q: init: %v", name, err)
	}

	divisor := cfg.OutputGain.Divisor
	if divisor == 0 {
		divisor = 1
	}
	multiplier := cfg.OutputGain.Multiplier
	if multiplier == 0 {
		multiplier = 1
	}

	m := &Motor{
		device:  device,
		id:      id,
		channel: cfg.Interface.Channel,
		gain:    multiplier / divisor,
	}

	if cfg.Reference != nil {
		ref, err := sensor.New(name+"-reference", *cfg.Reference, logDir)
		if err != nil {
			device.End(id)
			return nil, errs.Configuration("motor", "%q: reference sensor: %v", name, err)
		}
		m.reference = ref
	}

	if cfg.Log != nil {
		dir := ""
		if cfg.Log.File {
			dir = logDir
		}
		log, err := datalog.New(dir, name, cfg.Log.Precision)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.log = log
	}

	return m, nil
}

// Close releases the underlying device, reference sensor and log.
func (m *Motor) Close() {
	if m == nil {
		return
	}
	m.device.End(m.id)
	m.reference.Close()
	m.log.Close()
}

// Enable resets the device and acquires the output channel.
func (m *Motor) Enable() bool {
	m.device.Reset(m.id)
	return m.device.AcquireOutputChannel(m.id, m.channel)
}

// Disable releases the output channel.
func (m *Motor) Disable() {
	m.device.ReleaseOutputChannel(m.id, m.channel)
}

// Reset resets the underlying device.
func (m *Motor) Reset() {
	m.device.Reset(m.id)
}

// HasError proxies the underlying device's error flag.
func (m *Motor) HasError() bool {
	return m.device.HasError(m.id)
}

// SetOffset toggles the motor's offset-acquisition mode. Every call first
// clears the output offset; then, if the motor was offsetting before the
// call (the *old* isOffsetting value, checked before it is overwritten),
// the reference sensor's reading becomes the new output offset. An
// offset is therefore captured on ON->OFF (and on a repeated ON call),
// never on OFF->ON or on a repeated OFF call, which leave it at 0.
func (m *Motor) SetOffset(enabled bool) {
	m.outputOffset = 0.0
	if m.isOffsetting && m.reference != nil {
		m.outputOffset = m.reference.Update()
	}
	m.isOffsetting = enabled

	if m.reference != nil {
		if enabled {
			m.reference.SetOffset()
		} else {
			m.reference.SetMeasurement()
		}
	}

	m.WriteControl(0.0)
}

// WriteControl applies the gain and offset to setpoint and writes it to
// the output channel. Writes are suppressed while offsetting, but the
// log still records every call.
func (m *Motor) WriteControl(setpoint float64) {
	m.log.EnterNewLine()
	m.log.RegisterValues(setpoint, setpoint*m.gain)
	m.log.Flush()

	value := (setpoint + m.outputOffset) * m.gain

	if !m.isOffsetting {
		m.device.Write(m.id, m.channel, value)
	}
}
