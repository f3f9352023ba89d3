package sim

// A Msg is a unit of information that travels between components over a
// connection.
type Msg interface {
	Meta() *MsgMeta
	Clone() Msg
}

// MsgMeta carries the bookkeeping fields shared by all messages.
type MsgMeta struct {
	ID           string
	Src, Dst     RemotePort
	TrafficClass string
	TrafficBytes int
}
