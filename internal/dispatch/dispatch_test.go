package dispatch

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arobi-robotics/robotd/internal/config"
	"github.com/arobi-robotics/robotd/internal/dof"
	"github.com/arobi-robotics/robotd/internal/network"

	_ "github.com/arobi-robotics/robotd/internal/signalio/dummy"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func newTestEnvironment(t *testing.T) config.Environment {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "config", "robot", "single_joint.yaml"),
		"controller:\n  type: dummy\n  time_step: 0.001\nactuators:\n  - joint0\n")
	writeFile(t, filepath.Join(root, "config", "actuators", "joint0.yaml"),
		"sensors:\n  - variable: POSITION\n    config: pos-sensor\n    deviation: 0.1\nmotor:\n  variable: POSITION\n  config: pos-motor\n")
	writeFile(t, filepath.Join(root, "config", "sensors", "pos-sensor.yaml"),
		"inputs:\n  - interface:\n      type: dummy\n      channel: 0\n")
	writeFile(t, filepath.Join(root, "config", "motor", "pos-motor.yaml"),
		"interface:\n  type: dummy\n  channel: 0\n")

	return config.Environment{Root: root, Log: t.TempDir()}
}

func newTestSystem(t *testing.T) (*System, *network.Surface) {
	t.Helper()
	events, err := network.ListenEvents("127.0.0.1:0")
	require.NoError(t, err)
	axes, err := network.ListenDatagram("axes", "127.0.0.1:0")
	require.NoError(t, err)
	joints, err := network.ListenDatagram("joints", "127.0.0.1:0")
	require.NoError(t, err)
	surface := &network.Surface{Events: events, Axes: axes, Joints: joints}
	t.Cleanup(surface.Close)

	s := New(newTestEnvironment(t), surface, nil)
	s.telemetryMinGap = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)

	return s, surface
}

func dialEventsAt(t *testing.T, addr net.Addr) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr.String(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// eventFrame builds a request frame: one code byte, a two-byte
// little-endian length, and the payload.
func eventFrame(code uint8, payload []byte) []byte {
	f := make([]byte, 3+len(payload))
	f[0] = code
	binary.LittleEndian.PutUint16(f[1:3], uint16(len(payload)))
	copy(f[3:], payload)
	return f
}

func readReply(t *testing.T, conn net.Conn) (code byte, payload []byte) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	header := make([]byte, 3)
	_, err := io.ReadFull(conn, header)
	require.NoError(t, err)
	length := binary.LittleEndian.Uint16(header[1:3])
	if length > 0 {
		payload = make([]byte, length)
		_, err = io.ReadFull(conn, payload)
		require.NoError(t, err)
	}
	return header[0], payload
}

func TestListConfigsReturnsRobotNames(t *testing.T) {
	_, surface := newTestSystem(t)
	conn := dialEventsAt(t, surface.Events.Addr())

	_, err := conn.Write(eventFrame(uint8(network.CmdListConfigs), nil))
	require.NoError(t, err)

	code, payload := readReply(t, conn)
	assert.Equal(t, uint8(network.CmdListConfigs), code)
	assert.Contains(t, string(payload), "single_joint")
}

func TestGetConfigReturnsCurrentAxesAndJoints(t *testing.T) {
	_, surface := newTestSystem(t)
	conn := dialEventsAt(t, surface.Events.Addr())

	_, err := conn.Write(eventFrame(uint8(network.CmdSetConfig), []byte("single_joint")))
	require.NoError(t, err)
	readReply(t, conn)

	_, err = conn.Write(eventFrame(uint8(network.CmdGetConfig), nil))
	require.NoError(t, err)

	code, payload := readReply(t, conn)
	assert.Equal(t, uint8(network.CmdGetConfig), code)
	assert.Contains(t, string(payload), "single_joint")
	assert.Contains(t, string(payload), "angle")
}

func TestSetConfigEnableOperateAndJointTelemetry(t *testing.T) {
	_, surface := newTestSystem(t)
	conn := dialEventsAt(t, surface.Events.Addr())

	name := []byte("single_joint")
	_, err := conn.Write(eventFrame(uint8(network.CmdSetConfig), name))
	require.NoError(t, err)
	code, payload := readReply(t, conn)
	require.Equal(t, uint8(network.CmdSetConfig), code)
	assert.Contains(t, string(payload), "single_joint")

	_, err = conn.Write(eventFrame(uint8(network.CmdEnable), nil))
	require.NoError(t, err)
	code, _ = readReply(t, conn)
	require.Equal(t, uint8(network.CmdEnable), code)

	_, err = conn.Write(eventFrame(uint8(network.CmdOperate), nil))
	require.NoError(t, err)
	code, _ = readReply(t, conn)
	require.Equal(t, uint8(network.CmdOperate), code)

	jointClient, err := net.DialUDP("udp", nil, surface.Joints.LocalAddr())
	require.NoError(t, err)
	defer jointClient.Close()

	// The Joints endpoint only broadcasts to remotes it has heard from.
	_, err = jointClient.Write([]byte{0})
	require.NoError(t, err)

	jointClient.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, network.MaxMessageBytes)
	n, err := jointClient.Read(buf)
	require.NoError(t, err)

	records, err := network.DecodeRecords(buf[:n])
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDisableRefusesWithoutConfig(t *testing.T) {
	_, surface := newTestSystem(t)
	conn := dialEventsAt(t, surface.Events.Addr())

	_, err := conn.Write(eventFrame(uint8(network.CmdDisable), nil))
	require.NoError(t, err)

	code, _ := readReply(t, conn)
	assert.Equal(t, uint8(0x00), code)
}

func TestAxisSetpointRoundTrip(t *testing.T) {
	_, surface := newTestSystem(t)
	conn := dialEventsAt(t, surface.Events.Addr())

	name := []byte("single_joint")
	_, err := conn.Write(eventFrame(uint8(network.CmdSetConfig), name))
	require.NoError(t, err)
	readReply(t, conn)

	_, err = conn.Write(eventFrame(uint8(network.CmdEnable), nil))
	require.NoError(t, err)
	readReply(t, conn)

	_, err = conn.Write(eventFrame(uint8(network.CmdOperate), nil))
	require.NoError(t, err)
	readReply(t, conn)

	axisClient, err := net.DialUDP("udp", nil, surface.Axes.LocalAddr())
	require.NoError(t, err)
	defer axisClient.Close()

	data, err := network.EncodeRecords([]network.Record{{Index: 0, Variables: dof.Variables{Position: 0.5}}})
	require.NoError(t, err)
	_, err = axisClient.Write(data)
	require.NoError(t, err)

	// Give the dispatcher a few ticks to drain and apply the setpoint.
	time.Sleep(50 * time.Millisecond)
}
