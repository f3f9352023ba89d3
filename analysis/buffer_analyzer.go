package analysis

import (
	"math"

	"github.com/tebeka/atexit"

	"github.com/chat2snack/snacksim/sim"
)

// BufferAnalyzer reports the time-weighted average level of one buffer,
// either per sampling window or over the whole run.
type BufferAnalyzer struct {
	PerfLogger
	sim.TimeTeller

	buf       sim.Buffer
	usePeriod bool
	period    sim.VTimeInSec

	sampleStart sim.VTimeInSec
	level       int
	dwellTimes  map[int]sim.VTimeInSec
}

// Func records a buffer level change. Attach it as a hook to the buffer.
func (b *BufferAnalyzer) Func(ctx sim.HookCtx) {
	now := b.CurrentTime()
	buf := ctx.Domain.(sim.Buffer)

	if b.usePeriod && now > b.windowEnd(b.sampleStart) {
		b.drain()
		b.startWindow()
	}

	b.dwellTimes[b.level] += now - b.sampleStart
	b.level = buf.Size()
	b.sampleStart = now
}

// drain emits every whole window that ended before now.
func (b *BufferAnalyzer) drain() {
	now := b.CurrentTime()

	if !b.usePeriod {
		b.emitWindow(now, 0, now)
		return
	}

	start := b.windowStart(b.sampleStart)
	end := b.windowEnd(b.sampleStart)

	for end < now {
		b.emitWindow(now, start, end)

		b.dwellTimes = make(map[int]sim.VTimeInSec)
		b.sampleStart = end
		start = end
		end = start + b.period
	}
}

// emitWindow logs the average level of one window. Windows where the buffer
// stayed empty produce no entry.
func (b *BufferAnalyzer) emitWindow(now, start, end sim.VTimeInSec) {
	levelSeconds := 0.0
	seconds := 0.0
	for level, dwell := range b.dwellTimes {
		levelSeconds += float64(level) * float64(dwell)
		seconds += float64(dwell)
	}

	closeTime := min(end, now)
	if closeTime > b.sampleStart {
		tail := closeTime - b.sampleStart
		levelSeconds += float64(b.level) * float64(tail)
		seconds += float64(tail)
	}

	avgLevel := levelSeconds / seconds
	if avgLevel == 0 {
		return
	}

	b.AddDataEntry(PerfAnalyzerEntry{
		Start:     start,
		End:       end,
		Where:     b.buf.Name(),
		What:      "Level",
		EntryType: "Buffer",
		Value:     avgLevel,
		Unit:      "",
	})
}

func (b *BufferAnalyzer) startWindow() {
	b.dwellTimes = make(map[int]sim.VTimeInSec)
	b.sampleStart = b.windowStart(b.CurrentTime())
}

func (b *BufferAnalyzer) windowStart(t sim.VTimeInSec) sim.VTimeInSec {
	return sim.VTimeInSec(math.Floor(float64(t/b.period))) * b.period
}

func (b *BufferAnalyzer) windowEnd(t sim.VTimeInSec) sim.VTimeInSec {
	return b.windowStart(t) + b.period
}

// BufferAnalyzerBuilder can build a BufferAnalyzer.
type BufferAnalyzerBuilder struct {
	perfLogger PerfLogger
	timeTeller sim.TimeTeller
	usePeriod  bool
	period     sim.VTimeInSec
	buffer     sim.Buffer
}

// MakeBufferAnalyzerBuilder creates a BufferAnalyzerBuilder.
func MakeBufferAnalyzerBuilder() BufferAnalyzerBuilder {
	return BufferAnalyzerBuilder{}
}

// WithPerfLogger sets the PerfLogger to use.
func (b BufferAnalyzerBuilder) WithPerfLogger(
	perfLogger PerfLogger,
) BufferAnalyzerBuilder {
	b.perfLogger = perfLogger
	return b
}

// WithTimeTeller sets the TimeTeller to use.
func (b BufferAnalyzerBuilder) WithTimeTeller(
	timeTeller sim.TimeTeller,
) BufferAnalyzerBuilder {
	b.timeTeller = timeTeller
	return b
}

// WithPeriod sets the sampling window length.
func (b BufferAnalyzerBuilder) WithPeriod(
	period sim.VTimeInSec,
) BufferAnalyzerBuilder {
	b.usePeriod = true
	b.period = period
	return b
}

// WithBuffer sets the buffer to analyze.
func (b BufferAnalyzerBuilder) WithBuffer(
	buffer sim.Buffer,
) BufferAnalyzerBuilder {
	b.buffer = buffer
	return b
}

// Build creates a BufferAnalyzer. The analyzer flushes its last window on
// exit.
func (b BufferAnalyzerBuilder) Build() *BufferAnalyzer {
	b.mustBeComplete()

	analyzer := &BufferAnalyzer{
		PerfLogger: b.perfLogger,
		TimeTeller: b.timeTeller,
		buf:        b.buffer,
		usePeriod:  b.usePeriod,
		period:     b.period,
		dwellTimes: make(map[int]sim.VTimeInSec),
	}

	atexit.Register(func() {
		analyzer.drain()
	})

	return analyzer
}

func (b BufferAnalyzerBuilder) mustBeComplete() {
	if b.perfLogger == nil {
		panic("BufferAnalyzer requires a PerfLogger")
	}

	if b.timeTeller == nil {
		panic("BufferAnalyzer requires a TimeTeller")
	}

	if b.buffer == nil {
		panic("BufferAnalyzer requires a Buffer")
	}
}
