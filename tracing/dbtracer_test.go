package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/chat2snack/snacksim/sim"
)

type captureBackend struct {
	initialized bool
	tasks       []Task
	flushCount  int
}

func (b *captureBackend) Init() {
	b.initialized = true
}

func (b *captureBackend) Write(task Task) {
	b.tasks = append(b.tasks, task)
}

func (b *captureBackend) Flush() {
	b.flushCount++
}

var _ = Describe("DBTracer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		backend    *captureBackend
		tracer     *DBTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		backend = &captureBackend{}

		tracer = NewDBTracer(timeTeller, backend)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should initialize the backend", func() {
		Expect(backend.initialized).To(BeTrue())
	})

	It("should write a completed task with its steps", func() {
		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(1))
		tracer.StartTask(Task{
			ID:    "t1",
			Kind:  "frame",
			What:  "byte",
			Where: "Board.Receiver",
		})

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(1.5))
		tracer.StepTask(Task{
			ID:    "t1",
			Steps: []TaskStep{{What: "start confirmed"}},
		})

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(2))
		tracer.EndTask(Task{ID: "t1"})

		Expect(backend.tasks).To(HaveLen(1))

		task := backend.tasks[0]
		Expect(task.StartTime).To(Equal(sim.VTimeInSec(1)))
		Expect(task.EndTime).To(Equal(sim.VTimeInSec(2)))
		Expect(task.Steps).To(HaveLen(1))
		Expect(task.Steps[0].What).To(Equal("start confirmed"))
		Expect(task.Steps[0].Time).To(Equal(sim.VTimeInSec(1.5)))
	})

	It("should panic on a task without the required fields", func() {
		Expect(func() {
			tracer.StartTask(Task{Kind: "frame", What: "byte", Where: "Rx"})
		}).To(Panic())
		Expect(func() {
			tracer.StartTask(Task{ID: "t1", What: "byte", Where: "Rx"})
		}).To(Panic())
		Expect(func() {
			tracer.StartTask(Task{ID: "t1", Kind: "frame", Where: "Rx"})
		}).To(Panic())
		Expect(func() {
			tracer.StartTask(Task{ID: "t1", Kind: "frame", What: "byte"})
		}).To(Panic())
	})

	It("should drop tasks that start after the traced range", func() {
		tracer.SetTimeRange(10, 20)

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(25))
		tracer.StartTask(Task{
			ID: "t1", Kind: "frame", What: "byte", Where: "Rx",
		})

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(26))
		tracer.EndTask(Task{ID: "t1"})

		Expect(backend.tasks).To(BeEmpty())
	})

	It("should drop tasks that end before the traced range", func() {
		tracer.SetTimeRange(10, 20)

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(1))
		tracer.StartTask(Task{
			ID: "t1", Kind: "frame", What: "byte", Where: "Rx",
		})

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(5))
		tracer.EndTask(Task{ID: "t1"})

		Expect(backend.tasks).To(BeEmpty())
	})

	It("should keep tasks that overlap the traced range", func() {
		tracer.SetTimeRange(10, 20)

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(15))
		tracer.StartTask(Task{
			ID: "t1", Kind: "frame", What: "byte", Where: "Rx",
		})

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(25))
		tracer.EndTask(Task{ID: "t1"})

		Expect(backend.tasks).To(HaveLen(1))
	})

	It("should ignore steps of unknown tasks", func() {
		tracer.StepTask(Task{
			ID:    "ghost",
			Steps: []TaskStep{{What: "step"}},
		})

		Expect(backend.tasks).To(BeEmpty())
	})

	It("should drop inflight tasks and flush on terminate", func() {
		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(1))
		tracer.StartTask(Task{
			ID: "t1", Kind: "frame", What: "byte", Where: "Rx",
		})

		tracer.Terminate()

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(2))
		tracer.EndTask(Task{ID: "t1"})

		Expect(backend.flushCount).To(Equal(1))
		Expect(backend.tasks).To(BeEmpty())
	})
})
