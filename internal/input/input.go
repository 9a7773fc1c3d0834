// Package input implements the Input component: a single
// Signal-I/O device channel paired with a Signal Processor, producing
// one filtered scalar sample per Update.
package input

import (
	"fmt"

	"github.com/arobi-robotics/robotd/internal/config"
	"github.com/arobi-robotics/robotd/internal/signalio"
	"github.com/arobi-robotics/robotd/internal/signalproc"
	"github.com/arobi-robotics/robotd/pkg/errs"
)

// Input reads one channel of one Signal-I/O device and runs it through a
// Signal Processor.
type Input struct {
	device   signalio.Device
	deviceID signalio.DeviceID
	channel  uint
	buffer   []float64
	proc     *signalproc.Processor
}

// New builds an Input from its configuration: looks up the named
// Signal-I/O device implementation, opens it, validates the channel and
// sizes the read buffer to the device's reported maximum sample count.
func New(cfg config.InputConfig) (*Input, error) {
	device, err := signalio.Lookup(cfg.Interface.Type)
	if err != nil {
		return nil, errs.Configuration("input", "signal_io device %q: %v", cfg.Interface.Type, err)
	}

	deviceID, err := device.Init(cfg.Interface.Config)
	if err != nil {
		return nil, errs.Device(cfg.Interface.Type, "init: %v", err)
	}

	channel := uint(cfg.Interface.Channel)
	if !device.CheckInputChannel(deviceID, channel) {
		device.End(deviceID)
		return nil, errs.Configuration("input", "invalid input channel %d", channel)
	}

	maxSamples := device.MaxInputSamples(deviceID)
	if maxSamples <= 0 {
		maxSamples = 1
	}

	proc := signalproc.New(signalproc.Options{
		Rectify:      cfg.SignalProcessing.Rectified,
		Normalize:    cfg.SignalProcessing.Normalized,
		MinFrequency: cfg.SignalProcessing.MinFrequency,
		MaxFrequency: cfg.SignalProcessing.MaxFrequency,
	})

	in := &Input{
		device:   device,
		deviceID: deviceID,
		channel:  channel,
		buffer:   make([]float64, maxSamples),
		proc:     proc,
	}
	in.Reset()
	return in, nil
}

// Close releases the underlying device.
func (in *Input) Close() {
	if in == nil {
		return
	}
	in.device.End(in.deviceID)
}

// Update pulls one sample buffer from the device and delegates to the
// Signal Processor, returning the resulting scalar.
func (in *Input) Update() float64 {
	n := in.device.Read(in.deviceID, in.channel, in.buffer)
	return in.proc.Update(in.buffer, n)
}

// HasError proxies the underlying device's error flag.
func (in *Input) HasError() bool {
	return in.device.HasError(in.deviceID)
}

// SetPhase proxies to the Signal Processor.
func (in *Input) SetPhase(phase signalproc.Phase) {
	in.proc.SetPhase(phase)
}

// Reset resets the device and forces the processor directly into the
// MEASUREMENT phase, matching the original firmware's input reset
// semantics: a reset input is assumed already calibrated, not in need of
// a fresh offset/calibration pass.
func (in *Input) Reset() {
	in.proc.SetPhase(signalproc.PhaseMeasurement)
	in.device.Reset(in.deviceID)
}

func (in *Input) String() string {
	return fmt.Sprintf("input(channel=%d)", in.channel)
}
