// Package config loads the filesystem-rooted configuration the control
// server reads at startup and on SET_CONFIG: robot/actuator/motor/sensor
// YAML documents and signal-IO/robot-control plugin lookup keys, all
// resolved relative to an explicit Environment value rather than a
// process-wide global (per the "Global mutable state" design note).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Environment is the explicit root passed down to every constructor that
// needs to resolve a config or plugin name to a file.
type Environment struct {
	Root string // root directory containing config/ and plugins/
	Log  string // root directory for persisted per-component logs
	Addr string // bind address for all network sockets, "" means any
}

// Kind enumerates the configuration subtrees under Root/config/.
type Kind string

const (
	KindRobot     Kind = "robot"
	KindActuators Kind = "actuators"
	KindMotor     Kind = "motor"
	KindSensors   Kind = "sensors"
)

// PluginFamily enumerates the Root/plugins/ subtrees.
type PluginFamily string

const (
	PluginSignalIO     PluginFamily = "signal_io"
	PluginRobotControl PluginFamily = "robot_control"
)

// ConfigPath returns the filesystem path for a named config document.
// Documents are stored with a ".yaml" extension on disk; callers and the
// wire protocol (LIST_CONFIGS, GET_CONFIG) refer to them by bare name.
func (e Environment) ConfigPath(kind Kind, name string) string {
	return filepath.Join(e.Root, "config", string(kind), name+".yaml")
}

// PluginPath returns the lookup key path for a named plugin. The core never
// dlopen's this path, and plugin names are resolved to statically-linked
// capability variants through the signalio and control registries without
// consulting it.
func (e Environment) PluginPath(family PluginFamily, name string) string {
	return filepath.Join(e.Root, "plugins", string(family), name)
}

// ListConfigs returns the names (no extensions) of every config document
// under Root/config/<kind>/, sorted the way the directory yields them.
func (e Environment) ListConfigs(kind Kind) ([]string, error) {
	dir := filepath.Join(e.Root, "config", string(kind))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list configs in %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		names = append(names, name[:len(name)-len(filepath.Ext(name))])
	}
	return names, nil
}

// LoadYAML reads and parses a YAML config document for the given kind/name
// into out.
func (e Environment) LoadYAML(kind Kind, name string, out interface{}) error {
	path := e.ConfigPath(kind, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
