package analysis

import (
	"math"

	"github.com/tebeka/atexit"

	"github.com/chat2snack/snacksim/sim"
)

type trafficCounters struct {
	remote   sim.RemotePort
	inBytes  int64
	inMsgs   int64
	outBytes int64
	outMsgs  int64
}

func (c *trafficCounters) count(incoming bool, bytes int) {
	if incoming {
		c.inBytes += int64(bytes)
		c.inMsgs++
		return
	}

	c.outBytes += int64(bytes)
	c.outMsgs++
}

// TrafficSnapshot describes the messages that one port has exchanged with one
// remote port since the beginning of the current sampling window.
type TrafficSnapshot struct {
	LocalPort   string `json:"local_port"`
	RemotePort  string `json:"remote_port"`
	InMsgCount  int64  `json:"in_msg_count"`
	InBytes     int64  `json:"in_bytes"`
	OutMsgCount int64  `json:"out_msg_count"`
	OutBytes    int64  `json:"out_bytes"`
}

// PortAnalyzer measures the traffic through one port, split by remote port
// and direction.
type PortAnalyzer struct {
	PerfLogger
	sim.TimeTeller

	usePeriod bool
	period    sim.VTimeInSec
	port      sim.Port

	lastEvent       sim.VTimeInSec
	trafficByRemote map[sim.RemotePort]trafficCounters
}

// Func counts a message passing through the port. Only send and delivery
// hooks count, so a message retrieved from a buffer later is not counted
// twice.
func (h *PortAnalyzer) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosPortMsgSend &&
		ctx.Pos != sim.HookPosPortMsgRecvd {
		return
	}

	msg, ok := ctx.Item.(sim.Msg)
	if !ok {
		return
	}

	now := h.CurrentTime()

	if h.usePeriod && now > h.windowEnd(h.lastEvent) {
		h.flushWindow()
	}

	incoming := h.isIncoming(msg)

	remote := msg.Meta().Dst
	if incoming {
		remote = msg.Meta().Src
	}

	counters, ok := h.trafficByRemote[remote]
	if !ok {
		counters = trafficCounters{remote: remote}
	}

	counters.count(incoming, msg.Meta().TrafficBytes)
	h.trafficByRemote[remote] = counters

	h.lastEvent = now
}

// CurrentTraffic returns the traffic that the port has seen since the
// beginning of the current sampling window.
func (h *PortAnalyzer) CurrentTraffic() []TrafficSnapshot {
	snapshots := make([]TrafficSnapshot, 0, len(h.trafficByRemote))

	for _, c := range h.trafficByRemote {
		snapshots = append(snapshots, TrafficSnapshot{
			LocalPort:   h.port.Name(),
			RemotePort:  string(c.remote),
			InMsgCount:  c.inMsgs,
			InBytes:     c.inBytes,
			OutMsgCount: c.outMsgs,
			OutBytes:    c.outBytes,
		})
	}

	return snapshots
}

func (h *PortAnalyzer) isIncoming(msg sim.Msg) bool {
	return msg.Meta().Dst == h.port.AsRemote()
}

// flushWindow logs the counters of the closing window and starts a fresh one.
func (h *PortAnalyzer) flushWindow() {
	now := h.CurrentTime()

	start := sim.VTimeInSec(0)
	end := now

	if h.usePeriod {
		start = h.windowStart(h.lastEvent)
		end = min(h.windowEnd(h.lastEvent), now)
	}

	for _, c := range h.trafficByRemote {
		entry := PerfAnalyzerEntry{
			Start:       start,
			End:         end,
			Where:       h.port.Name(),
			WhereRemote: string(c.remote),
			EntryType:   "Traffic",
		}

		if c.inMsgs != 0 {
			h.logDirection(entry, "Incoming", c.inBytes, c.inMsgs)
		}

		if c.outMsgs != 0 {
			h.logDirection(entry, "Outgoing", c.outBytes, c.outMsgs)
		}
	}

	h.trafficByRemote = make(map[sim.RemotePort]trafficCounters)
}

// logDirection emits one byte-count entry and one message-count entry for a
// direction.
func (h *PortAnalyzer) logDirection(
	entry PerfAnalyzerEntry,
	what string,
	bytes, msgs int64,
) {
	entry.What = what

	entry.Value = float64(bytes)
	entry.Unit = "Byte"
	h.AddDataEntry(entry)

	entry.Value = float64(msgs)
	entry.Unit = "Msg"
	h.AddDataEntry(entry)
}

func (h *PortAnalyzer) windowStart(t sim.VTimeInSec) sim.VTimeInSec {
	return sim.VTimeInSec(math.Floor(float64(t/h.period))) * h.period
}

func (h *PortAnalyzer) windowEnd(t sim.VTimeInSec) sim.VTimeInSec {
	return h.windowStart(t) + h.period
}

// PortAnalyzerBuilder can build a PortAnalyzer.
type PortAnalyzerBuilder struct {
	perfLogger PerfLogger
	timeTeller sim.TimeTeller
	usePeriod  bool
	period     sim.VTimeInSec
	port       sim.Port
}

// MakePortAnalyzerBuilder creates a PortAnalyzerBuilder.
func MakePortAnalyzerBuilder() PortAnalyzerBuilder {
	return PortAnalyzerBuilder{}
}

// WithPerfLogger sets the logger to be used by the PortAnalyzer.
func (b PortAnalyzerBuilder) WithPerfLogger(l PerfLogger) PortAnalyzerBuilder {
	b.perfLogger = l
	return b
}

// WithTimeTeller sets the TimeTeller to be used by the PortAnalyzer.
func (b PortAnalyzerBuilder) WithTimeTeller(
	t sim.TimeTeller,
) PortAnalyzerBuilder {
	b.timeTeller = t
	return b
}

// WithPeriod sets the sampling window length.
func (b PortAnalyzerBuilder) WithPeriod(
	p sim.VTimeInSec,
) PortAnalyzerBuilder {
	b.usePeriod = true
	b.period = p
	return b
}

// WithPort sets the port to be analyzed.
func (b PortAnalyzerBuilder) WithPort(p sim.Port) PortAnalyzerBuilder {
	b.port = p
	return b
}

// Build creates a PortAnalyzer. The analyzer flushes its last window on exit.
func (b PortAnalyzerBuilder) Build() *PortAnalyzer {
	b.mustBeComplete()

	a := &PortAnalyzer{
		PerfLogger:      b.perfLogger,
		TimeTeller:      b.timeTeller,
		usePeriod:       b.usePeriod,
		period:          b.period,
		port:            b.port,
		trafficByRemote: make(map[sim.RemotePort]trafficCounters),
	}

	atexit.Register(func() { a.flushWindow() })

	return a
}

func (b PortAnalyzerBuilder) mustBeComplete() {
	if b.perfLogger == nil {
		panic("PortAnalyzer requires a PerfLogger")
	}

	if b.timeTeller == nil {
		panic("PortAnalyzer requires a TimeTeller")
	}

	if b.port == nil {
		panic("PortAnalyzer requires a Port")
	}
}
