// Package dispatch implements the System Dispatcher: the program's
// single-threaded main loop, polling the Events/Axes/Joints network
// endpoints at a coarse cadence, reconciling robot lifecycle and
// configuration state, and rate-limiting the telemetry broadcast, the
// Go replacement for the original firmware's System_Update poll loop.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/arobi-robotics/robotd/internal/config"
	"github.com/arobi-robotics/robotd/internal/control"
	"github.com/arobi-robotics/robotd/internal/dof"
	"github.com/arobi-robotics/robotd/internal/network"
	"github.com/arobi-robotics/robotd/internal/network/debugws"
	"github.com/arobi-robotics/robotd/internal/robot"
	"github.com/arobi-robotics/robotd/pkg/logging"
)

// defaultPollInterval is the dispatcher's wake cadence, a coarse cadence
// (e.g. 5ms) rather than a hard real-time tick.
const defaultPollInterval = 5 * time.Millisecond

// DefaultTelemetryMinInterval is TELEMETRY_MIN_INTERVAL_MS's default.
const DefaultTelemetryMinInterval = 20 * time.Millisecond

// System owns the currently-configured Robot (if any), the network
// surface, and the poll loop that ties them together.
type System struct {
	env     config.Environment
	surface *network.Surface
	debug   *debugws.Streamer

	pollInterval     time.Duration
	telemetryMinGap  time.Duration
	lastTelemetrySet time.Time

	userName string

	current     *robot.Robot
	currentName string
}

// New constructs a System bound to env's configuration root and ports,
// and the given network surface. debug may be nil to skip the JSON
// mirror entirely.
func New(env config.Environment, surface *network.Surface, debug *debugws.Streamer) *System {
	return &System{
		env:             env,
		surface:         surface,
		debug:           debug,
		pollInterval:    defaultPollInterval,
		telemetryMinGap: DefaultTelemetryMinInterval,
	}
}

// LoadInitial configures the system with the named robot at startup, if
// name is non-empty, mirroring System_Init's optional --config flag.
func (s *System) LoadInitial(name string) error {
	if name == "" {
		return nil
	}
	return s.setConfig(name)
}

// Run drains the network surface and reconciles robot state until ctx is
// canceled: poll the network surface, advance the active robot, publish
// telemetry, surface any repeated device error.
func (s *System) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.current != nil {
				s.current.Disable()
			}
			return ctx.Err()
		case <-ticker.C:
			s.drainEvents()
			s.drainAxesInbound()
			s.maybeBroadcastTelemetry()
			s.surfaceRepeatedError()
		}
	}
}

func (s *System) drainEvents() {
	for {
		select {
		case req, ok := <-s.surface.Events.Requests():
			if !ok {
				return
			}
			s.handleEvent(req)
		default:
			return
		}
	}
}

func (s *System) handleEvent(req *network.EventRequest) {
	switch req.Command {
	case network.CmdListConfigs:
		s.replyListConfigs(req)
	case network.CmdGetConfig:
		s.replyConfig(req)
	case network.CmdSetConfig:
		s.handleSetConfig(req)
	case network.CmdSetUser:
		s.userName = network.UnmarshalPayload(req.Payload)
		_ = req.Reply(nil)
	case network.CmdDisable:
		s.replyLifecycle(req, func() bool { return s.current != nil && s.current.Disable() })
	case network.CmdEnable:
		s.replyLifecycle(req, func() bool { return s.current != nil && s.current.Enable() })
	case network.CmdPassivate:
		s.replyState(req, control.StatePassive)
	case network.CmdOffset:
		s.replyState(req, control.StateOffset)
	case network.CmdCalibrate:
		s.replyState(req, control.StateCalibration)
	case network.CmdPreprocess:
		s.replyState(req, control.StatePreprocessing)
	case network.CmdOperate:
		s.replyState(req, control.StateOperation)
	case network.CmdReset:
		// RESET has no server-side precondition to refuse: the
		// dispatcher only ever sends it unsolicited (on a repeated
		// device error); as a client request it is acknowledged
		// unconditionally, per the Open Question decision in DESIGN.md.
		_ = req.Reply(nil)
	default:
		_ = req.Refuse()
	}
}

func (s *System) replyLifecycle(req *network.EventRequest, fn func() bool) {
	if !fn() {
		_ = req.Refuse()
		return
	}
	_ = req.Reply(nil)
}

func (s *System) replyState(req *network.EventRequest, state control.State) {
	if s.current == nil || !s.current.SetControlState(state) {
		_ = req.Refuse()
		return
	}
	_ = req.Reply(nil)
}

func (s *System) replyListConfigs(req *network.EventRequest) {
	names, err := s.env.ListConfigs(config.KindRobot)
	if err != nil {
		logging.Component("dispatch").WithError(err).Warn("list configs failed")
		names = nil
	}
	payload, err := network.MarshalPayload(network.ListConfigsPayload{Robots: names})
	if err != nil {
		_ = req.Refuse()
		return
	}
	_ = req.Reply(payload)
}

func (s *System) replyConfig(req *network.EventRequest) {
	payload, err := network.MarshalPayload(s.configPayload())
	if err != nil {
		_ = req.Refuse()
		return
	}
	_ = req.Reply(payload)
}

func (s *System) configPayload() network.ConfigPayload {
	if s.current == nil {
		return network.ConfigPayload{}
	}

	axes := make([]string, s.current.AxesNumber())
	for i := range axes {
		axes[i], _ = s.current.GetAxisName(i)
	}
	joints := make([]string, s.current.JointsNumber())
	for i := range joints {
		joints[i], _ = s.current.GetJointName(i)
	}
	return network.ConfigPayload{ID: s.currentName, Axes: axes, Joints: joints}
}

func (s *System) handleSetConfig(req *network.EventRequest) {
	name := network.UnmarshalPayload(req.Payload)
	if err := s.setConfig(name); err != nil {
		logging.Component("dispatch").WithError(err).WithField("robot", name).Warn("set config failed")
		_ = req.Refuse()
		return
	}

	payload, err := network.MarshalPayload(s.configPayload())
	if err != nil {
		_ = req.Refuse()
		return
	}
	_ = req.Reply(payload)
}

// setConfig replaces the currently active robot with the named
// configuration, reverting to the previous robot if the new one fails
// to load.
func (s *System) setConfig(name string) error {
	var cfg config.RobotConfig
	if err := s.env.LoadYAML(config.KindRobot, name, &cfg); err != nil {
		return fmt.Errorf("dispatch: load robot config %q: %w", name, err)
	}

	loadActuator := func(actuatorName string) (config.ActuatorConfig, error) {
		var c config.ActuatorConfig
		err := s.env.LoadYAML(config.KindActuators, actuatorName, &c)
		return c, err
	}
	loadSensor := func(sensorName string) (config.SensorConfig, error) {
		var c config.SensorConfig
		err := s.env.LoadYAML(config.KindSensors, sensorName, &c)
		return c, err
	}
	loadMotor := func(motorName string) (config.MotorConfig, error) {
		var c config.MotorConfig
		err := s.env.LoadYAML(config.KindMotor, motorName, &c)
		return c, err
	}

	logDir := s.env.Log
	if s.userName != "" {
		logDir = logDir + "/" + s.userName
	}

	next, err := robot.New(name, cfg, loadActuator, loadSensor, loadMotor, logDir)
	if err != nil {
		return err
	}

	previous := s.current
	if previous != nil {
		previous.Disable()
		previous.Close()
	}

	s.current = next
	s.currentName = name
	return nil
}

func (s *System) drainAxesInbound() {
	if s.current == nil {
		select {
		case <-s.surface.Axes.Inbound():
		default:
		}
		return
	}

	select {
	case d := <-s.surface.Axes.Inbound():
		records, err := network.DecodeRecords(d.Data)
		if err != nil {
			logging.Component("dispatch").WithError(err).Debug("malformed axes datagram")
			return
		}
		for _, r := range records {
			if err := s.current.SetAxisSetpoints(int(r.Index), r.Variables); err != nil {
				logging.Component("dispatch").WithError(err).Debug("axis setpoint out of range")
			}
		}
	default:
	}

	select {
	case <-s.surface.Joints.Inbound():
	default:
	}
}

func (s *System) maybeBroadcastTelemetry() {
	if s.current == nil {
		return
	}
	if time.Since(s.lastTelemetrySet) < s.telemetryMinGap {
		return
	}

	sentAxes := s.broadcastAxes()
	sentJoints := s.broadcastJoints()
	if sentAxes || sentJoints {
		s.lastTelemetrySet = time.Now()
	}
}

// broadcastAxes reports only axes whose measures changed since the last
// broadcast, mirroring the original firmware's UpdateAxes.
func (s *System) broadcastAxes() bool {
	n := s.current.AxesNumber()
	records := make([]network.Record, 0, n)
	for i := 0; i < n; i++ {
		measures, changed, err := s.current.GetAxisMeasures(i)
		if err != nil || !changed {
			continue
		}
		records = append(records, network.Record{Index: uint8(i), Variables: measures})
	}
	if len(records) == 0 {
		return false
	}

	data, err := network.EncodeRecords(records)
	if err != nil {
		logging.Component("dispatch").WithError(err).Warn("encode axes telemetry")
		return false
	}
	s.surface.Axes.Broadcast(data)
	if s.debug != nil {
		s.debug.BroadcastAxes(records)
	}
	return true
}

// broadcastJoints reports every joint unconditionally with its latest
// measures, whether or not they changed this cycle (zero-valued only if
// the measures cannot be read), mirroring the original firmware's
// UpdateJoints.
func (s *System) broadcastJoints() bool {
	n := s.current.JointsNumber()
	if n == 0 {
		return false
	}

	records := make([]network.Record, n)
	for i := 0; i < n; i++ {
		measures, _, err := s.current.GetJointMeasures(i)
		if err != nil {
			measures = dof.Variables{}
		}
		records[i] = network.Record{Index: uint8(i), Variables: measures}
	}

	data, err := network.EncodeRecords(records)
	if err != nil {
		logging.Component("dispatch").WithError(err).Warn("encode joints telemetry")
		return false
	}
	s.surface.Joints.Broadcast(data)
	if s.debug != nil {
		s.debug.BroadcastJoints(records)
	}
	return true
}

// surfaceRepeatedError sends an unsolicited RESET frame to every
// connected Events client when the current robot's repeated-device-error
// condition is set.
func (s *System) surfaceRepeatedError() {
	if s.current == nil || !s.current.HasRepeatedError() {
		return
	}
	s.surface.Events.Broadcast(uint8(network.CmdReset), nil)
}
