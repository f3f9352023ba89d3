package analysis

import (
	"math"

	"github.com/tebeka/atexit"

	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
)

// SignalAnalyzer periodically records the duty cycle of a board wire and the
// number of times the wire rises. It is a hook that observes the level
// changes of a wiring.Signal.
type SignalAnalyzer struct {
	PerfLogger
	sim.TimeTeller

	signal   *wiring.Signal
	windowed bool
	window   sim.VTimeInSec

	lastTime    sim.VTimeInSec
	lastLevel   bool
	highTime    sim.VTimeInSec
	lowTime     sim.VTimeInSec
	risingEdges int64
}

// Func records a level change of the signal.
func (a *SignalAnalyzer) Func(ctx sim.HookCtx) {
	change, ok := ctx.Item.(wiring.SignalChange)
	if !ok {
		return
	}

	now := a.CurrentTime()

	if a.windowed && now > a.windowEnd(a.lastTime) {
		a.drain()
		a.startWindow()
	}

	if a.lastLevel {
		a.highTime += now - a.lastTime
	} else {
		a.lowTime += now - a.lastTime
	}

	if change.To && !change.From {
		a.risingEdges++
	}

	a.lastLevel = change.To
	a.lastTime = now
}

// drain emits every whole window that ended before now.
func (a *SignalAnalyzer) drain() {
	now := a.CurrentTime()

	if !a.windowed {
		a.emitWindow(now, 0, now)
		return
	}

	start := a.windowStart(a.lastTime)
	end := a.windowEnd(a.lastTime)

	for end < now {
		a.emitWindow(now, start, end)

		a.highTime = 0
		a.lowTime = 0
		a.risingEdges = 0
		a.lastTime = end
		start = end
		end = start + a.window
	}
}

// emitWindow logs the duty cycle and the rising edge count of one window.
// Windows where the wire stayed low and never rose produce no entry.
func (a *SignalAnalyzer) emitWindow(now, start, end sim.VTimeInSec) {
	high := float64(a.highTime)
	total := float64(a.highTime + a.lowTime)

	closeTime := min(end, now)
	if closeTime > a.lastTime {
		tail := float64(closeTime - a.lastTime)
		if a.lastLevel {
			high += tail
		}
		total += tail
	}

	if total == 0 {
		return
	}

	dutyCycle := high / total
	if dutyCycle == 0 && a.risingEdges == 0 {
		return
	}

	a.AddDataEntry(PerfAnalyzerEntry{
		Start:     start,
		End:       end,
		Where:     a.signal.Name(),
		What:      "DutyCycle",
		EntryType: "Signal",
		Value:     dutyCycle,
	})

	if a.risingEdges > 0 {
		a.AddDataEntry(PerfAnalyzerEntry{
			Start:     start,
			End:       end,
			Where:     a.signal.Name(),
			What:      "RisingEdge",
			EntryType: "Signal",
			Value:     float64(a.risingEdges),
		})
	}
}

func (a *SignalAnalyzer) startWindow() {
	a.highTime = 0
	a.lowTime = 0
	a.risingEdges = 0

	a.lastTime = a.windowStart(a.CurrentTime())
}

func (a *SignalAnalyzer) windowStart(t sim.VTimeInSec) sim.VTimeInSec {
	return sim.VTimeInSec(math.Floor(float64(t/a.window))) * a.window
}

func (a *SignalAnalyzer) windowEnd(t sim.VTimeInSec) sim.VTimeInSec {
	return a.windowStart(t) + a.window
}

// SignalAnalyzerBuilder can build a SignalAnalyzer.
type SignalAnalyzerBuilder struct {
	logger   PerfLogger
	clock    sim.TimeTeller
	windowed bool
	window   sim.VTimeInSec
	signal   *wiring.Signal
}

// MakeSignalAnalyzerBuilder creates a SignalAnalyzerBuilder.
func MakeSignalAnalyzerBuilder() SignalAnalyzerBuilder {
	return SignalAnalyzerBuilder{}
}

// WithPerfLogger sets the logger that records the entries.
func (b SignalAnalyzerBuilder) WithPerfLogger(
	l PerfLogger,
) SignalAnalyzerBuilder {
	b.logger = l
	return b
}

// WithTimeTeller sets the clock the analyzer reads.
func (b SignalAnalyzerBuilder) WithTimeTeller(
	t sim.TimeTeller,
) SignalAnalyzerBuilder {
	b.clock = t
	return b
}

// WithPeriod sets the sampling window length.
func (b SignalAnalyzerBuilder) WithPeriod(
	period sim.VTimeInSec,
) SignalAnalyzerBuilder {
	b.windowed = true
	b.window = period
	return b
}

// WithSignal sets the signal to analyze. The initial level of the signal is
// taken as the level at time 0.
func (b SignalAnalyzerBuilder) WithSignal(
	signal *wiring.Signal,
) SignalAnalyzerBuilder {
	b.signal = signal
	return b
}

// Build creates a SignalAnalyzer. The analyzer flushes its last window on
// exit.
func (b SignalAnalyzerBuilder) Build() *SignalAnalyzer {
	b.mustBeComplete()

	analyzer := &SignalAnalyzer{
		PerfLogger: b.logger,
		TimeTeller: b.clock,
		signal:     b.signal,
		windowed:   b.windowed,
		window:     b.window,
		lastLevel:  b.signal.Level(),
	}

	atexit.Register(func() { analyzer.drain() })

	return analyzer
}

func (b SignalAnalyzerBuilder) mustBeComplete() {
	switch {
	case b.logger == nil:
		panic("SignalAnalyzer requires a PerfLogger")
	case b.clock == nil:
		panic("SignalAnalyzer requires a TimeTeller")
	case b.signal == nil:
		panic("SignalAnalyzer requires a Signal")
	}
}
