package analysis

import (
	. "github.com/onsi/ginkgo/v2"
	"go.uber.org/mock/gomock"

	"github.com/chat2snack/snacksim/sim"
)

var _ = Describe("BufferAnalyzer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		logger     *MockPerfLogger
		buffer     *MockBuffer
		analyzer   *BufferAnalyzer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		logger = NewMockPerfLogger(mockCtrl)
		buffer = NewMockBuffer(mockCtrl)
		buffer.EXPECT().Name().Return("Buffer").AnyTimes()

		analyzer = MakeBufferAnalyzerBuilder().
			WithPerfLogger(logger).
			WithTimeTeller(timeTeller).
			WithPeriod(1).
			WithBuffer(buffer).
			Build()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	timeIs := func(now sim.VTimeInSec) {
		timeTeller.EXPECT().CurrentTime().Return(now)
	}

	// Closing a window reads the clock several times, so the last stamp of a
	// spec must stay in place for any number of reads.
	timeStaysAt := func(now sim.VTimeInSec) {
		timeTeller.EXPECT().CurrentTime().Return(now).AnyTimes()
	}

	levelBecomes := func(size int) {
		buffer.EXPECT().Size().Return(size)

		analyzer.Func(sim.HookCtx{
			Domain: buffer,
			Pos:    sim.HookPosBufPush,
		})
	}

	expectEntry := func(start, end sim.VTimeInSec, value float64) {
		logger.EXPECT().AddDataEntry(PerfAnalyzerEntry{
			Start:     start,
			End:       end,
			Where:     "Buffer",
			What:      "Level",
			EntryType: "Buffer",
			Value:     value,
		})
	}

	It("should report the average level of a closed window", func() {
		timeIs(0.1)
		levelBecomes(1)

		timeStaysAt(1.1)
		expectEntry(0.0, 1.0, 0.9)
		levelBecomes(2)
	})

	It("should catch up over windows without level changes", func() {
		timeIs(0.1)
		levelBecomes(1)

		timeStaysAt(2.1)
		expectEntry(0.0, 1.0, 0.9)
		expectEntry(1.0, 2.0, 1)
		levelBecomes(2)
	})
})
