package sim

import (
	"fmt"
	"sync"
)

// HookPosPortMsgSend marks when a message is sent out from a port.
var HookPosPortMsgSend = &HookPos{Name: "Port Msg Send"}

// HookPosPortMsgRecvd marks when an inbound message arrives at a port.
var HookPosPortMsgRecvd = &HookPos{Name: "Port Msg Recv"}

// HookPosPortMsgRetrieveIncoming marks when the owning component takes a
// message from the incoming buffer.
var HookPosPortMsgRetrieveIncoming = &HookPos{Name: "Port Retrieve Incoming"}

// HookPosPortMsgRetrieveOutgoing marks when the connection takes a message
// from the outgoing buffer.
var HookPosPortMsgRetrieveOutgoing = &HookPos{Name: "Port Retrieve Outgoing"}

// A RemotePort names another port, so that messages can address ports
// without holding a reference to them.
type RemotePort string

// A Port is the boundary between a component and a connection. The component
// side sends and retrieves incoming messages; the connection side delivers
// and retrieves outgoing messages.
type Port interface {
	Named
	Hookable

	AsRemote() RemotePort

	SetConnection(conn Connection)
	Component() Component

	// For the connection.
	Deliver(msg Msg) *SendError
	NotifyAvailable()
	RetrieveOutgoing() Msg
	PeekOutgoing() Msg

	// For the component.
	CanSend() bool
	Send(msg Msg) *SendError
	RetrieveIncoming() Msg
	PeekIncoming() Msg
}

// NewPort creates a port with buffered incoming and outgoing sides.
func NewPort(comp Component, incomingCap, outgoingCap int, name string) Port {
	NameMustBeValid(name)

	return &defaultPort{
		name:        name,
		comp:        comp,
		incomingBuf: NewBuffer(name+".IncomingBuf", incomingCap),
		outgoingBuf: NewBuffer(name+".OutgoingBuf", outgoingCap),
	}
}

type defaultPort struct {
	HookableBase

	lock sync.Mutex
	name string
	comp Component
	conn Connection

	incomingBuf Buffer
	outgoingBuf Buffer
}

func (p *defaultPort) AsRemote() RemotePort {
	return RemotePort(p.name)
}

// SetConnection attaches the connection. A port belongs to exactly one
// connection.
func (p *defaultPort) SetConnection(conn Connection) {
	if p.conn != nil {
		panic(fmt.Sprintf("port already connected to %s, cannot connect to %s",
			p.conn.Name(), conn.Name()))
	}

	p.conn = conn
}

func (p *defaultPort) Component() Component {
	return p.comp
}

func (p *defaultPort) Name() string {
	return p.name
}

// CanSend reports whether the outgoing buffer has room.
func (p *defaultPort) CanSend() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.outgoingBuf.CanPush()
}

// Send queues a message for the connection. It returns a SendError when the
// outgoing buffer is full. The connection is only notified on the
// empty-to-nonempty transition.
func (p *defaultPort) Send(msg Msg) *SendError {
	p.lock.Lock()

	p.msgMustBeValid(msg)

	if !p.outgoingBuf.CanPush() {
		p.lock.Unlock()
		return NewSendError()
	}

	wasEmpty := p.outgoingBuf.Size() == 0
	p.outgoingBuf.Push(msg)

	p.hook(HookPosPortMsgSend, msg)
	p.lock.Unlock()

	if wasEmpty {
		p.conn.NotifySend()
	}

	return nil
}

// Deliver hands a message to the port from the connection side. It returns a
// SendError when the incoming buffer is full. The owning component is only
// notified on the empty-to-nonempty transition.
func (p *defaultPort) Deliver(msg Msg) *SendError {
	p.lock.Lock()

	if !p.incomingBuf.CanPush() {
		p.lock.Unlock()
		return NewSendError()
	}

	wasEmpty := p.incomingBuf.Size() == 0

	p.hook(HookPosPortMsgRecvd, msg)
	p.incomingBuf.Push(msg)
	p.lock.Unlock()

	if p.comp != nil && wasEmpty {
		p.comp.NotifyRecv(p)
	}

	return nil
}

// retrieve pops one message, reporting a freed slot when the buffer drops
// below capacity. The hook fires outside the lock.
func (p *defaultPort) retrieve(
	buf Buffer,
	slotFreed func(),
	pos *HookPos,
) Msg {
	p.lock.Lock()

	item := buf.Pop()
	if item == nil {
		p.lock.Unlock()
		return nil
	}

	if buf.Size() == buf.Capacity()-1 {
		slotFreed()
	}

	p.lock.Unlock()

	msg := item.(Msg)
	p.hook(pos, msg)

	return msg
}

// RetrieveIncoming takes the next message from the incoming buffer, or nil.
// Freeing the first slot of a full buffer notifies the connection.
func (p *defaultPort) RetrieveIncoming() Msg {
	return p.retrieve(
		p.incomingBuf,
		func() { p.conn.NotifyAvailable(p) },
		HookPosPortMsgRetrieveIncoming,
	)
}

// RetrieveOutgoing takes the next message from the outgoing buffer, or nil.
// Freeing the first slot of a full buffer notifies the owning component.
func (p *defaultPort) RetrieveOutgoing() Msg {
	return p.retrieve(
		p.outgoingBuf,
		func() { p.comp.NotifyPortFree(p) },
		HookPosPortMsgRetrieveOutgoing,
	)
}

func (p *defaultPort) peek(buf Buffer) Msg {
	p.lock.Lock()
	defer p.lock.Unlock()

	item := buf.Peek()
	if item == nil {
		return nil
	}

	return item.(Msg)
}

// PeekIncoming returns the next incoming message without removing it.
func (p *defaultPort) PeekIncoming() Msg {
	return p.peek(p.incomingBuf)
}

// PeekOutgoing returns the next outgoing message without removing it.
func (p *defaultPort) PeekOutgoing() Msg {
	return p.peek(p.outgoingBuf)
}

// NotifyAvailable forwards the connection's available notification to the
// owning component.
func (p *defaultPort) NotifyAvailable() {
	if p.comp != nil {
		p.comp.NotifyPortFree(p)
	}
}

func (p *defaultPort) msgMustBeValid(msg Msg) {
	meta := msg.Meta()

	switch {
	case string(meta.Src) != p.name:
		panic("message src is not the sending port")
	case meta.Dst == "":
		panic("message dst is not set")
	case meta.Src == meta.Dst:
		panic("message src and dst are the same port")
	}
}

func (p *defaultPort) hook(pos *HookPos, msg Msg) {
	p.InvokeHook(HookCtx{Domain: p, Pos: pos, Item: msg})
}
