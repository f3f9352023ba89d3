package uartrx

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
	"github.com/chat2snack/snacksim/snack/linedriver"
	"github.com/chat2snack/snacksim/snack/snack"
	gomock "go.uber.org/mock/gomock"
)

type driveLineEvent struct {
	*sim.EventBase
	level bool
}

type wireDriver struct {
	line *wiring.Signal
}

func (d *wireDriver) Handle(e sim.Event) error {
	evt := e.(*driveLineEvent)
	d.line.Drive(evt.level, evt.Time())

	return nil
}

func (d *wireDriver) schedule(
	engine sim.Engine,
	t sim.VTimeInSec,
	level bool,
) {
	engine.Schedule(&driveLineEvent{sim.NewEventBase(t, d), level})
}

type rxRecorder struct {
	ctxs []sim.HookCtx
}

func (r *rxRecorder) Func(ctx sim.HookCtx) {
	r.ctxs = append(r.ctxs, ctx)
}

func (r *rxRecorder) at(pos *sim.HookPos) []sim.HookCtx {
	var matched []sim.HookCtx
	for _, ctx := range r.ctxs {
		if ctx.Pos == pos {
			matched = append(matched, ctx)
		}
	}

	return matched
}

var _ = Describe("UART Receiver", func() {
	var (
		mockCtrl *gomock.Controller
		engine   sim.Engine
		line     *wiring.Signal
		byteOut  *MockPort
		receiver *Comp
		recorder *rxRecorder
		received []byte
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = sim.NewSerialEngine()
		line = wiring.NewSignal("Line", 1*sim.KHz, true)

		receiver = MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.KHz).
			WithBitRate(100).
			WithLine(line).
			WithByteDst(sim.RemotePort("Assembler.ByteIn")).
			Build("Rx")

		byteOut = NewMockPort(mockCtrl)
		byteOut.EXPECT().
			AsRemote().
			Return(sim.RemotePort("Rx.ByteOut")).
			AnyTimes()
		receiver.byteOut = byteOut

		received = nil
		byteOut.EXPECT().
			Send(gomock.Any()).
			Do(func(msg sim.Msg) {
				byteMsg := msg.(*snack.ByteMsg)
				Expect(byteMsg.Meta().Dst).
					To(Equal(sim.RemotePort("Assembler.ByteIn")))
				received = append(received, byteMsg.Value)
			}).
			Return(nil).
			AnyTimes()

		recorder = &rxRecorder{}
		receiver.AcceptHook(recorder)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should sleep while the line idles high", func() {
		madeProgress := receiver.Tick()

		Expect(madeProgress).To(BeFalse())
		Expect(receiver.BytesReceived()).To(Equal(uint64(0)))
	})

	It("should recover a byte shifted out by the driver", func() {
		driver := linedriver.MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.KHz).
			WithBitRate(100).
			WithLine(line).
			Build("Driver")
		driver.ScheduleBytes(0, 0x5A)

		err := engine.Run()

		Expect(err).To(BeNil())
		Expect(received).To(Equal([]byte{0x5A}))
		Expect(receiver.BytesReceived()).To(Equal(uint64(1)))
		Expect(receiver.FramingErrors()).To(Equal(uint64(0)))
		Expect(receiver.StartGlitches()).To(Equal(uint64(0)))

		recovered := recorder.at(HookPosByteRecovered)
		Expect(recovered).To(HaveLen(1))
		Expect(recovered[0].Item).To(Equal(byte(0x5A)))
	})

	It("should recover a command word low byte first", func() {
		driver := linedriver.MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.KHz).
			WithBitRate(100).
			WithLine(line).
			Build("Driver")
		driver.ScheduleCommand(0, snack.Command(0x8009))

		err := engine.Run()

		Expect(err).To(BeNil())
		Expect(received).To(Equal([]byte{0x09, 0x80}))
		Expect(receiver.BytesReceived()).To(Equal(uint64(2)))
	})

	It("should discard a start edge that fails confirmation", func() {
		poker := &wireDriver{line: line}
		poker.schedule(engine, 0.001, false)
		poker.schedule(engine, 0.003, true)

		err := engine.Run()

		Expect(err).To(BeNil())
		Expect(received).To(BeEmpty())
		Expect(receiver.StartGlitches()).To(Equal(uint64(1)))
		Expect(receiver.BytesReceived()).To(Equal(uint64(0)))
		Expect(recorder.at(HookPosStartGlitch)).To(HaveLen(1))
	})

	It("should drop a byte with a bad stop bit", func() {
		poker := &wireDriver{line: line}
		poker.schedule(engine, 0.001, false)
		poker.schedule(engine, 0.051, true)
		poker.schedule(engine, 0.091, false)
		poker.schedule(engine, 0.097, true)

		err := engine.Run()

		Expect(err).To(BeNil())
		Expect(received).To(BeEmpty())
		Expect(receiver.FramingErrors()).To(Equal(uint64(1)))
		Expect(receiver.StartGlitches()).To(Equal(uint64(0)))
		Expect(receiver.BytesReceived()).To(Equal(uint64(0)))

		errored := recorder.at(HookPosFramingError)
		Expect(errored).To(HaveLen(1))
		Expect(errored[0].Item).To(Equal(byte(0xF0)))
	})

	It("should count a byte lost to a full output port", func() {
		full := NewMockPort(mockCtrl)
		full.EXPECT().
			AsRemote().
			Return(sim.RemotePort("Rx.ByteOut")).
			AnyTimes()
		full.EXPECT().
			Send(gomock.Any()).
			Return(sim.NewSendError()).
			Times(1)
		receiver.byteOut = full

		driver := linedriver.MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.KHz).
			WithBitRate(100).
			WithLine(line).
			Build("Driver")
		driver.ScheduleBytes(0, 0x5A)

		err := engine.Run()

		Expect(err).To(BeNil())
		Expect(receiver.BytesDropped()).To(Equal(uint64(1)))
		Expect(receiver.BytesReceived()).To(Equal(uint64(0)))
	})

	It("should return to idle on reset", func() {
		receiver.state = stateData
		receiver.shift = 0xFF
		receiver.bitIndex = 5

		byteOut.EXPECT().RetrieveOutgoing().Return(nil)
		receiver.Reset()

		Expect(receiver.state).To(Equal(stateIdle))
		Expect(receiver.shift).To(Equal(byte(0)))
		Expect(receiver.bitIndex).To(Equal(0))
	})

	It("should panic when the tick rate cannot resolve a bit", func() {
		buildTooFast := func() {
			MakeBuilder().
				WithEngine(engine).
				WithFreq(1 * sim.KHz).
				WithBitRate(1000).
				WithLine(line).
				WithByteDst(sim.RemotePort("Assembler.ByteIn")).
				Build("Rx")
		}

		Expect(buildTooFast).To(Panic())
	})
})
