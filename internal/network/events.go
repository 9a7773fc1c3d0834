package network

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/arobi-robotics/robotd/pkg/logging"
)

// Command is an Events request code.
type Command uint8

const (
	CmdListConfigs Command = 1
	CmdGetConfig   Command = 2
	CmdSetConfig   Command = 3
	CmdSetUser     Command = 4
	CmdDisable     Command = 5
	CmdEnable      Command = 6
	CmdPassivate   Command = 7
	CmdOffset      Command = 8
	CmdCalibrate   Command = 9
	CmdOperate     Command = 10
	CmdPreprocess  Command = 11
	CmdReset       Command = 12
)

// replyRefused is the sentinel reply byte for a refused request: "any
// other value equals the request code and indicates success."
const replyRefused = 0x00

// MaxPayloadBytes bounds a single request or reply payload, framed by the
// two-byte length prefix events.go adds around the wire format's
// one-byte request code plus optional payload: a length-prefixed frame
// is the natural way to keep a byte-stream transport self-resynchronizing
// between requests, and two bytes leaves room for a GET_CONFIG reply
// listing many joints/axes without truncation.
const MaxPayloadBytes = 65535

// EventRequest is one parsed Events request, carrying the means to reply
// on the same connection it arrived on.
type EventRequest struct {
	Command Command
	Payload []byte

	conn *eventConn
}

// Reply answers the request with its own command code and a payload,
// signaling success.
func (r *EventRequest) Reply(payload []byte) error {
	return r.conn.write(uint8(r.Command), payload)
}

// Refuse answers the request with the 0x00 refusal byte.
func (r *EventRequest) Refuse() error {
	return r.conn.write(replyRefused, nil)
}

// Remote returns the client connection's address.
func (r *EventRequest) Remote() net.Addr {
	return r.conn.conn.RemoteAddr()
}

type eventConn struct {
	conn net.Conn
	mu   sync.Mutex
}

func (c *eventConn) write(code uint8, payload []byte) error {
	if len(payload) > MaxPayloadBytes {
		return fmt.Errorf("network: reply payload of %d bytes exceeds max %d", len(payload), MaxPayloadBytes)
	}

	frame := make([]byte, 3+len(payload))
	frame[0] = code
	binary.LittleEndian.PutUint16(frame[1:3], uint16(len(payload)))
	copy(frame[3:], payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.conn.Write(frame)
	return err
}

// EventsServer is the Events TCP endpoint: it accepts any number of
// concurrent client connections, framing each into EventRequest values
// on a single shared channel for the dispatcher to drain, and lets the
// dispatcher push unsolicited frames (the RESET code's ROBOT_REP_ERROR
// use) to every connected client.
type EventsServer struct {
	listener net.Listener
	requests chan *EventRequest

	mu    sync.Mutex
	conns map[*eventConn]struct{}

	logger *logrus.Entry
	wg     sync.WaitGroup
}

// ListenEvents starts accepting Events connections on addr.
func ListenEvents(addr string) (*EventsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("network: listen events on %s: %w", addr, err)
	}

	s := &EventsServer{
		listener: ln,
		requests: make(chan *EventRequest, 32),
		conns:    make(map[*eventConn]struct{}),
		logger:   logging.Component("network").WithField("endpoint", "events"),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

func (s *EventsServer) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		ec := &eventConn{conn: conn}
		s.mu.Lock()
		s.conns[ec] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serveConn(ec)
	}
}

func (s *EventsServer) serveConn(ec *eventConn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, ec)
		s.mu.Unlock()
		ec.conn.Close()
	}()

	header := make([]byte, 3)
	for {
		if _, err := io.ReadFull(ec.conn, header); err != nil {
			return
		}

		length := int(binary.LittleEndian.Uint16(header[1:3]))
		var payload []byte
		if length > 0 {
			payload = make([]byte, length)
			if _, err := io.ReadFull(ec.conn, payload); err != nil {
				return
			}
		}

		s.requests <- &EventRequest{Command: Command(header[0]), Payload: payload, conn: ec}
	}
}

// Requests returns the channel of inbound requests across every
// connected client, for the dispatcher's poll loop to drain.
func (s *EventsServer) Requests() <-chan *EventRequest { return s.requests }

// Addr returns the endpoint's bound address.
func (s *EventsServer) Addr() net.Addr { return s.listener.Addr() }

// Broadcast sends an unsolicited frame (no corresponding request) to
// every connected client, e.g. the RESET code on a ROBOT_REP_ERROR
// condition.
func (s *EventsServer) Broadcast(code uint8, payload []byte) {
	s.mu.Lock()
	conns := make([]*eventConn, 0, len(s.conns))
	for ec := range s.conns {
		conns = append(conns, ec)
	}
	s.mu.Unlock()

	for _, ec := range conns {
		if err := ec.write(code, payload); err != nil {
			s.logger.WithError(err).Debug("broadcast write error")
		}
	}
}

// Close stops accepting connections, closes every open connection and
// waits for their goroutines to exit.
func (s *EventsServer) Close() error {
	err := s.listener.Close()

	s.mu.Lock()
	conns := make([]*eventConn, 0, len(s.conns))
	for ec := range s.conns {
		conns = append(conns, ec)
	}
	s.mu.Unlock()

	for _, ec := range conns {
		ec.conn.Close()
	}

	s.wg.Wait()
	close(s.requests)
	return err
}
