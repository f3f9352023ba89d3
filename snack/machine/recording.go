package machine

import (
	"github.com/chat2snack/snacksim/datarecording"
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
	"github.com/chat2snack/snacksim/snack/assembler"
	"github.com/chat2snack/snacksim/snack/dispensecontroller"
	"github.com/chat2snack/snacksim/snack/snack"
	"github.com/chat2snack/snacksim/snack/uartrx"
)

// CommandEntry is one row of the commands table: a word latched by the
// assembler, whether or not it carried the go flag.
type CommandEntry struct {
	Time      float64
	Word      uint16
	Text      string
	GoFlag    bool
	Triggered bool
}

// ByteEntry is one row of the bytes table: a byte recovered from the
// serial line.
type ByteEntry struct {
	Time  float64
	Value uint8
}

// DispenseEntry is one row of the dispenses table: one completed dispense
// run of one slot.
type DispenseEntry struct {
	StartTime float64
	EndTime   float64
	Item      string
	Count     uint8
}

// PulseEdgeEntry is one row of the pulse_edges table: one level change of
// one slot's actuator pulse output.
type PulseEdgeEntry struct {
	Time   float64
	Item   string
	Rising bool
}

// boardRecorder bridges the board's hooks to the data recorder.
type boardRecorder struct {
	timeTeller sim.TimeTeller
	recorder   datarecording.DataRecorder

	dispenseStart [snack.NumItems]float64
}

func attachRecorder(
	m *Machine,
	timeTeller sim.TimeTeller,
	recorder datarecording.DataRecorder,
) {
	r := &boardRecorder{
		timeTeller: timeTeller,
		recorder:   recorder,
	}

	recorder.CreateTable("commands", CommandEntry{})
	recorder.CreateTable("bytes", ByteEntry{})
	recorder.CreateTable("dispenses", DispenseEntry{})
	recorder.CreateTable("pulse_edges", PulseEdgeEntry{})

	m.Assembler.AcceptHook(r)
	m.Receiver.AcceptHook(r)

	for _, item := range snack.VisitOrder {
		m.Controllers[item].AcceptHook(r)
		m.pulses[item].AcceptHook(&pulseEdgeHook{recorder: r, item: item})
	}
}

// Func records the board events it recognizes and ignores every other hook
// invocation on the same domains.
func (r *boardRecorder) Func(ctx sim.HookCtx) {
	now := float64(r.timeTeller.CurrentTime())

	switch ctx.Pos {
	case assembler.HookPosCommandLatched:
		latch := ctx.Item.(assembler.CommandLatch)
		r.recorder.InsertData("commands", CommandEntry{
			Time:      now,
			Word:      uint16(latch.Command),
			Text:      latch.Command.String(),
			GoFlag:    latch.Command.Go(),
			Triggered: latch.Triggered,
		})
	case uartrx.HookPosByteRecovered:
		r.recorder.InsertData("bytes", ByteEntry{
			Time:  now,
			Value: ctx.Item.(byte),
		})
	case dispensecontroller.HookPosDispenseStarted:
		run := ctx.Item.(dispensecontroller.DispenseRun)
		r.dispenseStart[run.Item] = now
	case dispensecontroller.HookPosDispenseCompleted:
		run := ctx.Item.(dispensecontroller.DispenseRun)
		r.recorder.InsertData("dispenses", DispenseEntry{
			StartTime: r.dispenseStart[run.Item],
			EndTime:   now,
			Item:      run.Item.String(),
			Count:     run.Count,
		})
	}
}

// pulseEdgeHook records the level changes of one slot's pulse output.
type pulseEdgeHook struct {
	recorder *boardRecorder
	item     snack.Item
}

func (h *pulseEdgeHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != wiring.HookPosWireChange {
		return
	}

	change, ok := ctx.Item.(wiring.SignalChange)
	if !ok {
		return
	}

	h.recorder.recorder.InsertData("pulse_edges", PulseEdgeEntry{
		Time:   float64(change.Time),
		Item:   h.item.String(),
		Rising: change.To,
	})
}
