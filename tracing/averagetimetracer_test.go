package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/chat2snack/snacksim/sim"
)

var _ = Describe("AverageTimeTracer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		tracer     *AverageTimeTracer
	)

	startAt := func(now sim.VTimeInSec, task Task) {
		timeTeller.EXPECT().CurrentTime().Return(now)
		tracer.StartTask(task)
	}

	endAt := func(now sim.VTimeInSec, task Task) {
		timeTeller.EXPECT().CurrentTime().Return(now)
		tracer.EndTask(task)
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)

		tracer = NewAverageTimeTracer(timeTeller, acceptAllTasks)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should average the time of the tasks", func() {
		startAt(1, Task{ID: "1"})
		endAt(2, Task{ID: "1"})
		startAt(3, Task{ID: "2"})
		endAt(6, Task{ID: "2"})

		Expect(tracer.AverageTime()).To(Equal(sim.VTimeInSec(2.0)))
		Expect(tracer.TotalCount()).To(Equal(uint64(2)))
	})

	It("should report zero before any task completes", func() {
		startAt(1, Task{ID: "1"})

		Expect(tracer.AverageTime()).To(Equal(sim.VTimeInSec(0.0)))
		Expect(tracer.TotalCount()).To(Equal(uint64(0)))
	})

	It("should ignore the end of an unknown task", func() {
		endAt(2, Task{ID: "unseen"})

		Expect(tracer.TotalCount()).To(Equal(uint64(0)))
	})
})
