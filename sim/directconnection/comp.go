// Package directconnection provides a connection that delivers messages to
// their destination in the same cycle they are sent.
package directconnection

import (
	"github.com/chat2snack/snacksim/sim"
)

// Comp is a connection that directly forwards messages between the plugged
// ports.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	nextPortID int
	ports      []sim.Port
	endByDst   map[sim.RemotePort]sim.Port
}

// PlugIn attaches a port to this connection.
func (c *Comp) PlugIn(port sim.Port) {
	c.Lock()
	defer c.Unlock()

	c.ports = append(c.ports, port)
	c.endByDst[port.AsRemote()] = port
	port.SetConnection(c)
}

// Unplug detaches a port from this connection.
func (c *Comp) Unplug(_ sim.Port) {
	panic("not implemented")
}

// NotifyAvailable is called by a port to signal that the connection can
// deliver to the port again.
func (c *Comp) NotifyAvailable(p sim.Port) {
	for _, port := range c.ports {
		if port != p {
			port.NotifyAvailable()
		}
	}

	c.TickNow()
}

// NotifySend is called by a port to signal that there is a message to
// forward.
func (c *Comp) NotifySend() {
	c.TickNow()
}

// Tick runs the connection middleware.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

type middleware struct {
	*Comp
}

// Tick drains the outgoing buffer of every port, rotating the starting port
// each cycle so that no port starves.
func (m *middleware) Tick() bool {
	progress := false

	for i := range m.ports {
		port := m.ports[(i+m.nextPortID)%len(m.ports)]
		progress = m.drainPort(port) || progress
	}

	m.nextPortID = (m.nextPortID + 1) % len(m.ports)

	return progress
}

func (m *middleware) drainPort(src sim.Port) bool {
	progress := false

	for head := src.PeekOutgoing(); head != nil; head = src.PeekOutgoing() {
		if m.destinationOf(head).Deliver(head) != nil {
			break
		}

		src.RetrieveOutgoing()
		progress = true
	}

	return progress
}

func (m *middleware) destinationOf(msg sim.Msg) sim.Port {
	dst, found := m.endByDst[msg.Meta().Dst]
	if !found {
		panic("destination port is not plugged in: " + string(msg.Meta().Dst))
	}

	return dst
}
