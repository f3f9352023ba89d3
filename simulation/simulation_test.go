package simulation

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/chat2snack/snacksim/sim"
)

var _ = Describe("Simulation", func() {
	var (
		ctrl *gomock.Controller
		s    *Simulation
	)

	namedPort := func(name string) *MockPort {
		p := NewMockPort(ctrl)
		p.EXPECT().Name().Return(name).AnyTimes()

		return p
	}

	component := func(name string, ports ...sim.Port) *MockComponent {
		c := NewMockComponent(ctrl)
		c.EXPECT().Name().Return(name).AnyTimes()
		c.EXPECT().Ports().Return(ports).AnyTimes()

		return c
	}

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		s = MakeBuilder().WithoutMonitoring().Build()
	})

	AfterEach(func() {
		s.Terminate()
		os.Remove("snacksim_" + s.ID() + ".sqlite3")

		ctrl.Finish()
	})

	It("should provide the simulation services", func() {
		Expect(s.ID()).ToNot(BeEmpty())
		Expect(s.GetEngine()).ToNot(BeNil())
		Expect(s.GetDataRecorder()).ToNot(BeNil())
		Expect(s.GetVisTracer()).ToNot(BeNil())
		Expect(s.GetMonitor()).To(BeNil())
	})

	It("should find components and ports by name", func() {
		rx := namedPort("Board.Rx")
		board := component("Board", rx)

		s.RegisterComponent(board)

		Expect(s.GetComponentByName("Board")).To(Equal(board))
		Expect(s.GetPortByName("Board.Rx")).To(Equal(rx))
	})

	It("should keep components in registration order", func() {
		first := component("Receiver")
		second := component("Assembler")

		s.RegisterComponent(first)
		s.RegisterComponent(second)

		Expect(s.Components()).To(HaveLen(2))
		Expect(s.Components()[0]).To(Equal(first))
		Expect(s.Components()[1]).To(Equal(second))
	})

	It("should reject duplicated component names", func() {
		s.RegisterComponent(component("Board"))

		Expect(func() {
			s.RegisterComponent(component("Board"))
		}).To(Panic())
	})

	It("should reject duplicated port names", func() {
		shared := namedPort("Board.Rx")

		s.RegisterComponent(component("Receiver", shared))

		Expect(func() {
			s.RegisterComponent(component("Assembler", shared))
		}).To(Panic())
	})

	Context("with a custom output file", func() {
		var custom *Simulation

		AfterEach(func() {
			if custom != nil {
				custom.Terminate()
				os.Remove("board_results.sqlite3")
				custom = nil
			}
		})

		It("should name the result database after the file name", func() {
			custom = MakeBuilder().
				WithoutMonitoring().
				WithOutputFileName("board_results").
				Build()

			Expect(custom).ToNot(BeNil())
			Expect(custom.GetDataRecorder()).ToNot(BeNil())
		})
	})

	Context("with invalid builder parameters", func() {
		It("should reject a monitor port without monitoring", func() {
			Expect(func() {
				MakeBuilder().WithoutMonitoring().WithMonitorPort(8080).Build()
			}).To(Panic())
		})

		It("should reject browser opening without monitoring", func() {
			Expect(func() {
				MakeBuilder().WithoutMonitoring().WithBrowserOpen().Build()
			}).To(Panic())
		})
	})
})
