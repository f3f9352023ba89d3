package pulsegen

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
	"github.com/chat2snack/snacksim/snack/snack"
)

type driveCodeEvent struct {
	*sim.EventBase

	bus  *wiring.Bus
	code snack.ControlCode
}

type busDriver struct{}

func (d *busDriver) Handle(e sim.Event) error {
	evt := e.(driveCodeEvent)
	evt.bus.Drive(uint16(evt.code), evt.Time())

	return nil
}

var _ = Describe("PulseGen", func() {
	var (
		engine  sim.Engine
		codeBus *wiring.Bus
		out     *wiring.Signal
		comp    *Comp
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()

		codeBus = wiring.NewBus("Gen.Code", 1*sim.KHz,
			uint16(snack.CodeStop))
		out = wiring.NewSignal("Gen.Out", 1*sim.KHz, false)

		comp = MakeBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.KHz).
			WithItem(snack.ItemBurger).
			WithCodeBus(codeBus).
			WithOutputSignal(out).
			WithPeriod(0.050).
			WithPulseWidths(0.015, 0.024, 0.003).
			Build("Gen")
	})

	It("should translate widths to ticks of its own clock", func() {
		Expect(comp.PeriodTicks()).To(Equal(50))
		Expect(comp.WidthTicks(snack.CodeStop)).To(Equal(15))
		Expect(comp.WidthTicks(snack.CodePush)).To(Equal(24))
		Expect(comp.WidthTicks(snack.CodeRevert)).To(Equal(3))
		Expect(comp.WidthTicks(snack.ControlCode(9))).To(Equal(15))
	})

	It("should emit the stop pulse once and go dormant", func() {
		for i := 0; i < 15; i++ {
			Expect(comp.Tick()).To(BeTrue())
			Expect(out.Level()).To(BeTrue())
		}

		Expect(comp.Tick()).To(BeFalse())
		Expect(out.Level()).To(BeFalse())
		Expect(comp.PulsesEmitted()).To(Equal(uint64(1)))
		Expect(comp.dormant).To(BeTrue())
	})

	It("should stay awake while the code asks for pushes", func() {
		codeBus.Reset(uint16(snack.CodePush), 0)

		for i := 0; i < 24; i++ {
			Expect(comp.Tick()).To(BeTrue())
			Expect(out.Level()).To(BeTrue())
		}

		Expect(comp.Tick()).To(BeTrue())
		Expect(out.Level()).To(BeFalse())
		Expect(comp.PulsesEmitted()).To(Equal(uint64(1)))
	})

	It("should free-run on the period grid and realign after dormancy",
		func() {
			codeBus.Reset(uint16(snack.CodePush), 0)
			engine.Schedule(driveCodeEvent{
				EventBase: sim.NewEventBase(0.080, &busDriver{}),
				bus:       codeBus,
				code:      snack.CodeStop,
			})

			engine.Run()

			Expect(comp.PulsesEmitted()).To(Equal(uint64(2)))
			Expect(out.Level()).To(BeFalse())
			Expect(engine.CurrentTime()).
				To(BeNumerically("~", 0.081, 1e-9))

			codeBus.Drive(uint16(snack.CodeRevert), engine.CurrentTime())
			engine.Schedule(driveCodeEvent{
				EventBase: sim.NewEventBase(0.105, &busDriver{}),
				bus:       codeBus,
				code:      snack.CodeStop,
			})

			engine.Run()

			Expect(comp.PulsesEmitted()).To(Equal(uint64(4)))
			Expect(out.Level()).To(BeFalse())
			Expect(engine.CurrentTime()).
				To(BeNumerically("~", 0.115, 1e-9))
		})

	It("should reject pulse widths wider than the period", func() {
		Expect(func() {
			MakeBuilder().
				WithEngine(engine).
				WithFreq(1 * sim.KHz).
				WithCodeBus(codeBus).
				WithOutputSignal(out).
				WithPeriod(0.010).
				WithPulseWidths(0.015, 0.024, 0.003).
				Build("BadGen")
		}).To(Panic())
	})

	It("should reject pulse widths below one tick", func() {
		Expect(func() {
			MakeBuilder().
				WithEngine(engine).
				WithFreq(1 * sim.KHz).
				WithCodeBus(codeBus).
				WithOutputSignal(out).
				WithPulseWidths(0.0001, 0.00245, 0.00035).
				Build("BadGen")
		}).To(Panic())
	})
})
