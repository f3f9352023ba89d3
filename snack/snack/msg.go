package snack

import (
	"reflect"

	"github.com/chat2snack/snacksim/sim"
)

// A ByteMsg carries one byte recovered from the serial line. It is the
// receiver's one-tick "byte ready" pulse.
type ByteMsg struct {
	sim.MsgMeta

	Value byte
}

// Meta returns the meta data of the message.
func (m *ByteMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a cloned ByteMsg with a different ID.
func (m *ByteMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// ByteMsgBuilder can build byte messages.
type ByteMsgBuilder struct {
	src, dst sim.RemotePort
	value    byte
}

// WithSrc sets the source of the message.
func (b ByteMsgBuilder) WithSrc(src sim.RemotePort) ByteMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message.
func (b ByteMsgBuilder) WithDst(dst sim.RemotePort) ByteMsgBuilder {
	b.dst = dst
	return b
}

// WithValue sets the byte carried by the message.
func (b ByteMsgBuilder) WithValue(value byte) ByteMsgBuilder {
	b.value = value
	return b
}

// Build creates a new ByteMsg.
func (b ByteMsgBuilder) Build() *ByteMsg {
	m := &ByteMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.TrafficClass = reflect.TypeOf(ByteMsg{}).String()
	m.TrafficBytes = 1
	m.Value = b.value

	return m
}

// A GoMsg is the assembler's one-tick "go" trigger. It carries the command
// word as latched at assembly time, so the counts the sequencer executes are
// independent of later command updates.
type GoMsg struct {
	sim.MsgMeta

	Command Command
}

// Meta returns the meta data of the message.
func (m *GoMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a cloned GoMsg with a different ID.
func (m *GoMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// GoMsgBuilder can build go messages.
type GoMsgBuilder struct {
	src, dst sim.RemotePort
	command  Command
}

// WithSrc sets the source of the message.
func (b GoMsgBuilder) WithSrc(src sim.RemotePort) GoMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message.
func (b GoMsgBuilder) WithDst(dst sim.RemotePort) GoMsgBuilder {
	b.dst = dst
	return b
}

// WithCommand sets the command word carried by the message.
func (b GoMsgBuilder) WithCommand(cmd Command) GoMsgBuilder {
	b.command = cmd
	return b
}

// Build creates a new GoMsg.
func (b GoMsgBuilder) Build() *GoMsg {
	m := &GoMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.TrafficClass = reflect.TypeOf(GoMsg{}).String()
	m.TrafficBytes = 2
	m.Command = b.command

	return m
}

// A StartDispenseMsg is the sequencer's one-tick start pulse for one slot,
// with the count sampled at that pulse.
type StartDispenseMsg struct {
	sim.MsgMeta

	Item  Item
	Count uint8
}

// Meta returns the meta data of the message.
func (m *StartDispenseMsg) Meta() *sim.MsgMeta {
	return &m.MsgMeta
}

// Clone returns a cloned StartDispenseMsg with a different ID.
func (m *StartDispenseMsg) Clone() sim.Msg {
	cloneMsg := *m
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// StartDispenseMsgBuilder can build start messages.
type StartDispenseMsgBuilder struct {
	src, dst sim.RemotePort
	item     Item
	count    uint8
}

// WithSrc sets the source of the message.
func (b StartDispenseMsgBuilder) WithSrc(
	src sim.RemotePort,
) StartDispenseMsgBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the message.
func (b StartDispenseMsgBuilder) WithDst(
	dst sim.RemotePort,
) StartDispenseMsgBuilder {
	b.dst = dst
	return b
}

// WithItem sets the slot the start pulse is for.
func (b StartDispenseMsgBuilder) WithItem(item Item) StartDispenseMsgBuilder {
	b.item = item
	return b
}

// WithCount sets the count sampled at the start pulse.
func (b StartDispenseMsgBuilder) WithCount(
	count uint8,
) StartDispenseMsgBuilder {
	b.count = count
	return b
}

// Build creates a new StartDispenseMsg.
func (b StartDispenseMsgBuilder) Build() *StartDispenseMsg {
	m := &StartDispenseMsg{}
	m.ID = sim.GetIDGenerator().Generate()
	m.Src = b.src
	m.Dst = b.dst
	m.TrafficClass = reflect.TypeOf(StartDispenseMsg{}).String()
	m.TrafficBytes = 1
	m.Item = b.item
	m.Count = b.count

	return m
}
