package wiring

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/chat2snack/snacksim/sim"
)

var _ = Describe("Bus", func() {
	var (
		bus      *Bus
		listener *countingListener
	)

	BeforeEach(func() {
		bus = NewBus("Bus", 1*sim.KHz, 0)
		listener = &countingListener{}
		bus.Subscribe(listener)
	})

	It("should carry the initial value", func() {
		Expect(bus.Sample(0)).To(Equal(uint16(0)))
		Expect(bus.Value()).To(Equal(uint16(0)))
	})

	It("should make a driven value visible one cycle later", func() {
		bus.Drive(0x8009, 0.005)

		Expect(bus.Value()).To(Equal(uint16(0x8009)))
		Expect(bus.Sample(0.005)).To(Equal(uint16(0)))
		Expect(bus.Sample(0.006)).To(Equal(uint16(0x8009)))
	})

	It("should ignore driving the value already latched", func() {
		bus.Drive(0, 0.005)

		Expect(listener.wakeCount).To(Equal(0))
	})

	It("should let the last drive of a cycle win", func() {
		bus.Drive(0x8009, 0.005)
		bus.Drive(0x0009, 0.005)

		Expect(listener.wakeCount).To(Equal(1))
		Expect(bus.Sample(0.006)).To(Equal(uint16(0x0009)))
	})

	It("should panic when driven in the past", func() {
		bus.Drive(0x8009, 0.005)

		Expect(func() {
			bus.Drive(0, 0.004)
		}).To(Panic())
	})

	It("should invoke hooks with the change detail", func() {
		hook := &recordingHook{}
		bus.AcceptHook(hook)

		bus.Drive(0x8009, 0.005)
		bus.Drive(0, 0.007)

		Expect(hook.ctxs).To(HaveLen(2))

		change := hook.ctxs[1].Item.(BusChange)
		Expect(change.From).To(Equal(uint16(0x8009)))
		Expect(change.To).To(Equal(uint16(0)))
		Expect(change.Cycle).To(Equal(uint64(7)))
	})

	It("should make a reset value immediately visible", func() {
		bus.Reset(0x00FF, 0.003)

		Expect(bus.Sample(0.003)).To(Equal(uint16(0x00FF)))
		Expect(listener.wakeCount).To(Equal(1))
	})
})
