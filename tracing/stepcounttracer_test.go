package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("StepCountTracer", func() {
	var t *StepCountTracer

	BeforeEach(func() {
		t = NewStepCountTracer(acceptAllTasks)
	})

	It("should count steps across tasks", func() {
		t.StartTask(Task{ID: "1"})
		t.StartTask(Task{ID: "2"})

		t.StepTask(Task{ID: "1", Steps: []TaskStep{{What: "latched"}}})
		t.StepTask(Task{ID: "2", Steps: []TaskStep{{What: "latched"}}})
		t.StepTask(Task{ID: "1", Steps: []TaskStep{{What: "dispatched"}}})

		Expect(t.GetStepNames()).To(Equal([]string{"latched", "dispatched"}))
		Expect(t.GetStepCount("latched")).To(Equal(uint64(2)))
		Expect(t.GetTaskCount("latched")).To(Equal(uint64(2)))
		Expect(t.GetStepCount("dispatched")).To(Equal(uint64(1)))
		Expect(t.GetTaskCount("dispatched")).To(Equal(uint64(1)))
	})

	It("should not count a task for a step it already carries", func() {
		t.StartTask(Task{
			ID:    "1",
			Steps: []TaskStep{{What: "latched"}},
		})

		t.StepTask(Task{ID: "1", Steps: []TaskStep{{What: "latched"}}})

		Expect(t.GetStepCount("latched")).To(Equal(uint64(1)))
		Expect(t.GetTaskCount("latched")).To(Equal(uint64(0)))
	})

	It("should count steps of unknown tasks without a task count", func() {
		t.StepTask(Task{ID: "ghost", Steps: []TaskStep{{What: "latched"}}})

		Expect(t.GetStepCount("latched")).To(Equal(uint64(1)))
		Expect(t.GetTaskCount("latched")).To(Equal(uint64(0)))
	})

	It("should forget a task once it ends", func() {
		t.StartTask(Task{ID: "1"})
		t.EndTask(Task{ID: "1"})

		t.StepTask(Task{ID: "1", Steps: []TaskStep{{What: "latched"}}})

		Expect(t.GetStepCount("latched")).To(Equal(uint64(1)))
		Expect(t.GetTaskCount("latched")).To(Equal(uint64(0)))
	})
})
