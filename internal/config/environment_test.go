package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, root string, kind Kind, name, body string) {
	t.Helper()
	dir := filepath.Join(root, "config", string(kind))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(body), 0o644))
}

func TestListConfigsReturnsBareNames(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, KindRobot, "dual_motors", "controller:\n  type: dummy\n")
	writeConfig(t, root, KindRobot, "single_motor", "controller:\n  type: dummy\n")

	env := Environment{Root: root}
	names, err := env.ListConfigs(KindRobot)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"dual_motors", "single_motor"}, names)
}

func TestListConfigsOnMissingDirReturnsEmpty(t *testing.T) {
	env := Environment{Root: t.TempDir()}
	names, err := env.ListConfigs(KindRobot)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLoadYAMLParsesRobotConfig(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, KindRobot, "dual_motors", "controller:\n  type: dummy\n  time_step: 0.005\nactuators:\n  - joint0\n")

	env := Environment{Root: root}
	var cfg RobotConfig
	require.NoError(t, env.LoadYAML(KindRobot, "dual_motors", &cfg))
	assert.Equal(t, "dummy", cfg.Controller.Type)
	assert.Equal(t, 0.005, cfg.Controller.TimeStep)
	require.Len(t, cfg.Actuators, 1)
	assert.Equal(t, "joint0", cfg.Actuators[0].Name)
}

func TestLoadYAMLMissingFileErrors(t *testing.T) {
	env := Environment{Root: t.TempDir()}
	var cfg RobotConfig
	assert.Error(t, env.LoadYAML(KindRobot, "missing", &cfg))
}
