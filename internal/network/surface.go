package network

import "fmt"

// Default ports.
const (
	DefaultEventsPort = 50000
	DefaultAxesPort   = 50001
	DefaultJointsPort = 50002
)

// Surface bundles the three endpoints the dispatcher polls each tick:
// the Events request/reply channel and the Axes/Joints streaming
// endpoints.
type Surface struct {
	Events *EventsServer
	Axes   *DatagramEndpoint
	Joints *DatagramEndpoint
}

// Listen starts all three endpoints on host (empty host binds any
// interface), using the default ports.
func Listen(host string) (*Surface, error) {
	events, err := ListenEvents(fmt.Sprintf("%s:%d", host, DefaultEventsPort))
	if err != nil {
		return nil, err
	}

	axes, err := ListenDatagram("axes", fmt.Sprintf("%s:%d", host, DefaultAxesPort))
	if err != nil {
		events.Close()
		return nil, err
	}

	joints, err := ListenDatagram("joints", fmt.Sprintf("%s:%d", host, DefaultJointsPort))
	if err != nil {
		events.Close()
		axes.Close()
		return nil, err
	}

	return &Surface{Events: events, Axes: axes, Joints: joints}, nil
}

// Close shuts down every endpoint.
func (s *Surface) Close() {
	s.Events.Close()
	s.Axes.Close()
	s.Joints.Close()
}
