package assembler

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
	"github.com/chat2snack/snacksim/snack/snack"
	gomock "go.uber.org/mock/gomock"
)

type latchRecorder struct {
	latches []CommandLatch
}

func (r *latchRecorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != HookPosCommandLatched {
		return
	}

	r.latches = append(r.latches, ctx.Item.(CommandLatch))
}

var _ = Describe("Assembler", func() {
	var (
		mockCtrl   *gomock.Controller
		engine     *MockEngine
		byteIn     *MockPort
		goOut      *MockPort
		commandBus *wiring.Bus
		comp       *Comp
	)

	feedByte := func(value byte) {
		msg := snack.ByteMsgBuilder{}.
			WithSrc(sim.RemotePort("Receiver.ByteOut")).
			WithDst(sim.RemotePort("Assembler.ByteIn")).
			WithValue(value).
			Build()
		byteIn.EXPECT().RetrieveIncoming().Return(msg)

		comp.Tick()
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())

		engine = NewMockEngine(mockCtrl)
		engine.EXPECT().CurrentTime().Return(sim.VTimeInSec(0)).AnyTimes()

		commandBus = wiring.NewBus("CommandBus", 1*sim.KHz, 0)

		comp = MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.KHz).
			WithCommandBus(commandBus).
			WithGoDst(sim.RemotePort("Sequencer.GoIn")).
			Build("Assembler")

		byteIn = NewMockPort(mockCtrl)
		goOut = NewMockPort(mockCtrl)
		goOut.EXPECT().
			AsRemote().
			Return(sim.RemotePort("Assembler.GoOut")).
			AnyTimes()

		comp.byteIn = byteIn
		comp.goOut = goOut
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should do nothing without input", func() {
		byteIn.EXPECT().RetrieveIncoming().Return(nil)

		Expect(comp.Tick()).To(BeFalse())
	})

	It("should hold the low byte until its partner arrives", func() {
		feedByte(0x09)

		Expect(comp.waitingHigh).To(BeTrue())
		Expect(comp.Command()).To(Equal(snack.Command(0)))
		Expect(comp.CommandsLatched()).To(Equal(uint64(0)))
	})

	It("should latch a pair low byte first and fire the trigger", func() {
		goOut.EXPECT().
			Send(gomock.Any()).
			Do(func(msg sim.Msg) {
				goMsg := msg.(*snack.GoMsg)
				Expect(goMsg.Command).To(Equal(snack.Command(0x8009)))
				Expect(goMsg.Dst).To(Equal(sim.RemotePort("Sequencer.GoIn")))
			}).
			Return(nil)

		feedByte(0x09)
		feedByte(0x80)

		Expect(comp.Command()).To(Equal(snack.Command(0x8009)))
		Expect(commandBus.Value()).To(Equal(uint16(0x8009)))
		Expect(comp.CommandsLatched()).To(Equal(uint64(1)))
		Expect(comp.TriggersFired()).To(Equal(uint64(1)))
	})

	It("should latch without triggering when go is clear", func() {
		feedByte(0x09)
		feedByte(0x00)

		Expect(comp.Command()).To(Equal(snack.Command(0x0009)))
		Expect(commandBus.Value()).To(Equal(uint16(0x0009)))
		Expect(comp.TriggersFired()).To(Equal(uint64(0)))
	})

	It("should overwrite the register on every completed pair", func() {
		goOut.EXPECT().Send(gomock.Any()).Return(nil)

		feedByte(0x09)
		feedByte(0x80)
		feedByte(0x00)
		feedByte(0x00)

		Expect(comp.Command()).To(Equal(snack.Command(0)))
		Expect(commandBus.Value()).To(Equal(uint16(0)))
		Expect(comp.CommandsLatched()).To(Equal(uint64(2)))
	})

	It("should count a dropped trigger when the go port is full", func() {
		goOut.EXPECT().Send(gomock.Any()).Return(sim.NewSendError())

		feedByte(0x09)
		feedByte(0x80)

		Expect(comp.Command()).To(Equal(snack.Command(0x8009)))
		Expect(comp.TriggersFired()).To(Equal(uint64(0)))
		Expect(comp.TriggersDropped()).To(Equal(uint64(1)))
	})

	It("should invoke the latch hook", func() {
		recorder := &latchRecorder{}
		comp.AcceptHook(recorder)

		goOut.EXPECT().Send(gomock.Any()).Return(nil)

		feedByte(0x09)
		feedByte(0x80)
		feedByte(0x11)
		feedByte(0x00)

		Expect(recorder.latches).To(Equal([]CommandLatch{
			{Command: 0x8009, Triggered: true},
			{Command: 0x0011, Triggered: false},
		}))
	})

	It("should start over after a reset", func() {
		feedByte(0xAA)

		byteIn.EXPECT().RetrieveIncoming().Return(nil)
		goOut.EXPECT().RetrieveOutgoing().Return(nil)
		comp.Reset()

		feedByte(0x09)
		feedByte(0x00)

		Expect(comp.Command()).To(Equal(snack.Command(0x0009)))
	})

	It("should discard bytes still queued in the port on reset", func() {
		staleMsg := snack.ByteMsgBuilder{}.
			WithSrc(sim.RemotePort("Receiver.ByteOut")).
			WithDst(sim.RemotePort("Assembler.ByteIn")).
			WithValue(0x80).
			Build()

		feedByte(0xAA)

		byteIn.EXPECT().RetrieveIncoming().Return(staleMsg)
		byteIn.EXPECT().RetrieveIncoming().Return(nil)
		goOut.EXPECT().RetrieveOutgoing().Return(nil)
		comp.Reset()

		feedByte(0x09)
		feedByte(0x00)

		Expect(comp.Command()).To(Equal(snack.Command(0x0009)))
		Expect(comp.CommandsLatched()).To(Equal(uint64(1)))
		Expect(comp.TriggersFired()).To(Equal(uint64(0)))
	})
})
