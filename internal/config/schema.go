package config

import "gopkg.in/yaml.v3"

// InterfaceConfig describes a single Signal-I/O device channel binding:
// which plugin to load, the plugin-specific config string, and the channel
// index on that device.
type InterfaceConfig struct {
	Type    string `yaml:"type"`
	Config  string `yaml:"config"`
	Channel uint   `yaml:"channel"`
}

// SignalProcessingConfig mirrors a sensor's "signal_processing" block.
type SignalProcessingConfig struct {
	Rectified    bool    `yaml:"rectified"`
	Normalized   bool    `yaml:"normalized"`
	MinFrequency float64 `yaml:"min_frequency"`
	MaxFrequency float64 `yaml:"max_frequency"`
}

// LogConfig mirrors a component's "log" block.
type LogConfig struct {
	File      bool `yaml:"file"`
	Precision int  `yaml:"precision"`
}

// InputConfig is one entry of a SensorConfig's "inputs" list.
type InputConfig struct {
	Interface        InterfaceConfig        `yaml:"interface"`
	SignalProcessing SignalProcessingConfig `yaml:"signal_processing"`
}

// SensorConfig is the config/sensors/<name> schema.
type SensorConfig struct {
	Inputs []InputConfig `yaml:"inputs"`
	Output string        `yaml:"output"`
	Log    *LogConfig    `yaml:"log"`
}

// MotorConfig is the config/motor/<name> schema.
type MotorConfig struct {
	Interface   InterfaceConfig `yaml:"interface"`
	OutputGain  GainConfig      `yaml:"output_gain"`
	Reference   *SensorConfig   `yaml:"reference"`
	Log         *LogConfig      `yaml:"log"`
}

// GainConfig is the multiplier/divisor pair of a Motor's output gain.
type GainConfig struct {
	Multiplier float64 `yaml:"multiplier"`
	Divisor    float64 `yaml:"divisor"`
}

// ActuatorSensorConfig is one entry of an ActuatorConfig's "sensors" list.
type ActuatorSensorConfig struct {
	Variable   string  `yaml:"variable"` // POSITION|VELOCITY|ACCELERATION|FORCE
	Config     string  `yaml:"config"`   // name of a config/sensors/<name> doc
	Deviation  float64 `yaml:"deviation"`
}

// ActuatorMotorConfig is an ActuatorConfig's "motor" entry.
type ActuatorMotorConfig struct {
	Variable string  `yaml:"variable"` // which DoF component this motor is driven by
	Config   string  `yaml:"config"`   // name of a config/motor/<name> doc
	Limit    float64 `yaml:"limit"`    // passed through transparently, not read by the core
}

// ActuatorConfig is the config/actuators/<name> schema.
type ActuatorConfig struct {
	Sensors []ActuatorSensorConfig `yaml:"sensors"`
	Motor   ActuatorMotorConfig    `yaml:"motor"`
	Log     *LogConfig             `yaml:"log"`
}

// ControllerConfig is a RobotConfig's "controller" entry.
type ControllerConfig struct {
	Type     string  `yaml:"type"`
	Config   string  `yaml:"config"`
	TimeStep float64 `yaml:"time_step"`
}

// RobotActuatorRef names an actuator either directly or through an object
// form that lets a robot give it a local name distinct from its config file.
type RobotActuatorRef struct {
	Name   string `yaml:"name"`
	Config string `yaml:"config"`
}

// UnmarshalYAML accepts either a bare string (the actuator's own config
// name doubles as its local name) or a {name, config} mapping.
func (r *RobotActuatorRef) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var name string
		if err := value.Decode(&name); err != nil {
			return err
		}
		r.Name = name
		r.Config = name
		return nil
	}

	type plain RobotActuatorRef
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = RobotActuatorRef(p)
	if r.Name == "" {
		r.Name = r.Config
	}
	return nil
}

// RobotConfig is the config/robot/<name> schema.
type RobotConfig struct {
	Controller ControllerConfig   `yaml:"controller"`
	Actuators  []RobotActuatorRef `yaml:"actuators"`
	Log        *LogConfig         `yaml:"log"`
}
