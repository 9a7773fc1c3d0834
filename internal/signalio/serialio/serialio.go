// Package serialio implements the Signal-I/O capability over a serial port,
// for boards that stream newline-delimited "channel,value" analog samples
// and accept "W channel value" output commands. It is the concrete plugin
// behind real hardware, as opposed to the dummy in-memory plugin used for
// tests and simulation.
package serialio

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"

	"github.com/arobi-robotics/robotd/internal/signalio"
)

func init() {
	signalio.Register("serial", func() signalio.Device { return New() })
}

const defaultMaxSamples = 32

// Device is a serial-port-backed Signal-I/O device. The config string has
// the form "port=/dev/ttyUSB0,baud=115200[,samples=32]".
type Device struct {
	mu sync.Mutex

	port     serial.Port
	scanner  *bufio.Scanner
	buffers  map[uint][]float64
	acquired map[uint]bool
	hasError bool
	maxSamp  int
}

func New() *Device {
	return &Device{
		buffers:  make(map[uint][]float64),
		acquired: make(map[uint]bool),
		maxSamp:  defaultMaxSamples,
	}
}

func parseConfig(config string) (portName string, baud int, maxSamples int, err error) {
	baud = 115200
	maxSamples = defaultMaxSamples
	for _, kv := range strings.Split(config, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, val := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		switch key {
		case "port":
			portName = val
		case "baud":
			baud, err = strconv.Atoi(val)
			if err != nil {
				return "", 0, 0, fmt.Errorf("invalid baud %q: %w", val, err)
			}
		case "samples":
			maxSamples, err = strconv.Atoi(val)
			if err != nil {
				return "", 0, 0, fmt.Errorf("invalid samples %q: %w", val, err)
			}
		}
	}
	if portName == "" {
		return "", 0, 0, fmt.Errorf("serialio: config missing port=")
	}
	return portName, baud, maxSamples, nil
}

func (d *Device) Init(config string) (signalio.DeviceID, error) {
	portName, baud, maxSamples, err := parseConfig(config)
	if err != nil {
		return signalio.InvalidDeviceID, err
	}

	mode := &serial.Mode{BaudRate: baud, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return signalio.InvalidDeviceID, fmt.Errorf("serialio: open %s: %w", portName, err)
	}

	d.mu.Lock()
	d.port = port
	d.scanner = bufio.NewScanner(port)
	d.maxSamp = maxSamples
	d.mu.Unlock()

	go d.readLoop()

	return 0, nil
}

// readLoop drains newline-delimited "channel,value" samples from the port
// into per-channel ring buffers, bounded at maxSamp per channel.
func (d *Device) readLoop() {
	for {
		d.mu.Lock()
		scanner := d.scanner
		d.mu.Unlock()
		if scanner == nil {
			return
		}
		if !scanner.Scan() {
			d.mu.Lock()
			d.hasError = true
			d.mu.Unlock()
			return
		}
		line := scanner.Text()
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			continue
		}
		ch, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 32)
		if err != nil {
			continue
		}
		val, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			continue
		}

		d.mu.Lock()
		channel := uint(ch)
		buf := append(d.buffers[channel], val)
		if len(buf) > d.maxSamp {
			buf = buf[len(buf)-d.maxSamp:]
		}
		d.buffers[channel] = buf
		d.mu.Unlock()
	}
}

func (d *Device) End(id signalio.DeviceID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port != nil {
		_ = d.port.Close()
		d.port = nil
	}
}

func (d *Device) Reset(id signalio.DeviceID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hasError = false
	d.buffers = make(map[uint][]float64)
}

func (d *Device) HasError(id signalio.DeviceID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasError
}

func (d *Device) MaxInputSamples(id signalio.DeviceID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxSamp
}

func (d *Device) Read(id signalio.DeviceID, channel uint, out []float64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := d.buffers[channel]
	n := copy(out, buf)
	d.buffers[channel] = nil
	return n
}

func (d *Device) CheckInputChannel(id signalio.DeviceID, channel uint) bool {
	return true
}

func (d *Device) AcquireOutputChannel(id signalio.DeviceID, channel uint) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acquired[channel] = true
	return true
}

func (d *Device) ReleaseOutputChannel(id signalio.DeviceID, channel uint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.acquired, channel)
}

func (d *Device) Write(id signalio.DeviceID, channel uint, value float64) bool {
	d.mu.Lock()
	port := d.port
	ok := d.acquired[channel]
	d.mu.Unlock()
	if port == nil || !ok {
		return false
	}
	_, err := fmt.Fprintf(port, "W %d %g\n", channel, value)
	if err != nil {
		d.mu.Lock()
		d.hasError = true
		d.mu.Unlock()
		return false
	}
	return true
}
