// Package dummy implements an in-memory Signal-I/O device for simulation
// and tests. Each channel carries a settable sample buffer; writes are
// recorded for assertion.
package dummy

import (
	"sync"

	"github.com/arobi-robotics/robotd/internal/signalio"
)

func init() {
	signalio.Register("dummy", func() signalio.Device { return New() })
}

// Device is a single in-memory dummy Signal-I/O device instance.
type Device struct {
	mu sync.Mutex

	opened       bool
	hasError     bool
	forcedError  bool // sticky fault forced by SetError, survives Reset
	maxSamples   int
	channelData  map[uint][]float64
	acquired     map[uint]int
	writeHistory map[uint][]float64
}

// New constructs an unopened dummy device.
func New() *Device {
	return &Device{
		maxSamples:   1,
		channelData:  make(map[uint][]float64),
		acquired:     make(map[uint]int),
		writeHistory: make(map[uint][]float64),
	}
}

func (d *Device) Init(config string) (signalio.DeviceID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = true
	return 0, nil
}

func (d *Device) End(id signalio.DeviceID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = false
}

func (d *Device) Reset(id signalio.DeviceID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hasError = false
}

func (d *Device) HasError(id signalio.DeviceID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasError || d.forcedError
}

func (d *Device) MaxInputSamples(id signalio.DeviceID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxSamples
}

func (d *Device) Read(id signalio.DeviceID, channel uint, out []float64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	samples := d.channelData[channel]
	n := copy(out, samples)
	return n
}

func (d *Device) CheckInputChannel(id signalio.DeviceID, channel uint) bool {
	return true
}

func (d *Device) AcquireOutputChannel(id signalio.DeviceID, channel uint) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acquired[channel]++
	return true
}

func (d *Device) ReleaseOutputChannel(id signalio.DeviceID, channel uint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.acquired[channel] > 0 {
		d.acquired[channel]--
	}
}

func (d *Device) Write(id signalio.DeviceID, channel uint, value float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeHistory[channel] = append(d.writeHistory[channel], value)
	return true
}

// SetSamples sets the sample buffer Read returns for a channel, for test
// fixtures.
func (d *Device) SetSamples(channel uint, samples []float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channelData[channel] = samples
	if len(samples) > d.maxSamples {
		d.maxSamples = len(samples)
	}
}

// SetError forces the device's HasError state for fault-injection tests.
// Unlike hasError, the forced state is sticky: it survives Reset, so tests
// can simulate a persistent hardware fault a software reset can't clear.
func (d *Device) SetError(hasError bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.forcedError = hasError
}

// WriteCount returns how many values have been written to channel, for
// verifying the "no writes while offsetting" invariant.
func (d *Device) WriteCount(channel uint) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.writeHistory[channel])
}

// LastWrite returns the most recently written value on channel.
func (d *Device) LastWrite(channel uint) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := d.writeHistory[channel]
	if len(h) == 0 {
		return 0, false
	}
	return h[len(h)-1], true
}
