package network

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/arobi-robotics/robotd/pkg/logging"
)

// InboundDatagram is one received Axes/Joints datagram, still in wire
// format; the caller decodes it with DecodeRecords.
type InboundDatagram struct {
	Remote *net.UDPAddr
	Data   []byte
}

// DatagramEndpoint is a UDP streaming endpoint (Axes or Joints): it
// learns remote identities from first-heard source addresses, exposes
// the latest inbound datagram (lossy, only the newest matters, same as
// the control loop's own "samples the latest" telemetry discipline), and
// broadcasts outbound datagrams to every known remote. On Close it sends
// a zero-length goodbye datagram to each.
type DatagramEndpoint struct {
	name string
	conn *net.UDPConn

	inbound chan InboundDatagram

	mu      sync.Mutex
	remotes map[string]*net.UDPAddr

	closed atomic.Bool
	wg     sync.WaitGroup
	logger *logrus.Entry
}

// ListenDatagram starts a UDP endpoint named name (for logging) bound to
// addr.
func ListenDatagram(name, addr string) (*DatagramEndpoint, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("network: resolve %s addr %s: %w", name, addr, err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("network: listen %s on %s: %w", name, addr, err)
	}

	e := &DatagramEndpoint{
		name:    name,
		conn:    conn,
		inbound: make(chan InboundDatagram, 1),
		remotes: make(map[string]*net.UDPAddr),
		logger:  logging.Component("network").WithField("endpoint", name),
	}
	e.wg.Add(1)
	go e.readLoop()
	return e, nil
}

func (e *DatagramEndpoint) readLoop() {
	defer e.wg.Done()
	buf := make([]byte, MaxMessageBytes)

	for {
		n, remote, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			if e.closed.Load() {
				return
			}
			e.logger.WithError(err).Debug("read error")
			continue
		}

		e.registerRemote(remote)

		data := make([]byte, n)
		copy(data, buf[:n])
		e.publish(InboundDatagram{Remote: remote, Data: data})
	}
}

// publish is a non-blocking, latest-wins send: a full buffer drops its
// one stale entry in favor of the new datagram rather than blocking the
// read loop.
func (e *DatagramEndpoint) publish(d InboundDatagram) {
	select {
	case e.inbound <- d:
		return
	default:
	}
	select {
	case <-e.inbound:
	default:
	}
	select {
	case e.inbound <- d:
	default:
	}
}

func (e *DatagramEndpoint) registerRemote(remote *net.UDPAddr) {
	key := remote.String()
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.remotes[key]; !ok {
		e.remotes[key] = remote
		e.logger.WithField("remote", key).Debug("new subscriber")
	}
}

// LocalAddr returns the endpoint's bound address.
func (e *DatagramEndpoint) LocalAddr() *net.UDPAddr { return e.conn.LocalAddr().(*net.UDPAddr) }

// Inbound returns the channel of the latest received datagram, for the
// dispatcher to drain. Subscribers are registered by the read loop as
// datagrams arrive, whether or not this channel is drained; for Joints,
// being server→client only, the dispatcher discards the payload.
func (e *DatagramEndpoint) Inbound() <-chan InboundDatagram { return e.inbound }

// Broadcast sends data to every known remote.
func (e *DatagramEndpoint) Broadcast(data []byte) {
	e.mu.Lock()
	remotes := make([]*net.UDPAddr, 0, len(e.remotes))
	for _, r := range e.remotes {
		remotes = append(remotes, r)
	}
	e.mu.Unlock()

	for _, r := range remotes {
		if _, err := e.conn.WriteToUDP(data, r); err != nil {
			e.logger.WithField("remote", r.String()).WithError(err).Debug("broadcast write error")
		}
	}
}

// Close sends a zero-length goodbye datagram to every known remote, then
// closes the socket and waits for the read loop to exit.
func (e *DatagramEndpoint) Close() error {
	e.closed.Store(true)

	e.mu.Lock()
	remotes := make([]*net.UDPAddr, 0, len(e.remotes))
	for _, r := range e.remotes {
		remotes = append(remotes, r)
	}
	e.mu.Unlock()

	for _, r := range remotes {
		_, _ = e.conn.WriteToUDP(nil, r)
	}

	err := e.conn.Close()
	e.wg.Wait()
	return err
}
