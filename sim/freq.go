package sim

import (
	"log"
	"math"
)

// Freq is a clock frequency in Hz.
type Freq float64

// Frequency units.
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Period returns the duration of one cycle.
func (f Freq) Period() VTimeInSec {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	return VTimeInSec(1.0 / f)
}

// Cycle returns the number of full cycles between time 0 and the given time.
func (f Freq) Cycle(time VTimeInSec) uint64 {
	return uint64(math.Round(float64(time) * float64(f)))
}

// deciCycles counts tenths of a cycle, rounded. Snapping to a tenth before
// taking a floor or ceiling keeps times that are one float ulp off a tick
// boundary on that boundary.
func (f Freq) deciCycles(now VTimeInSec) float64 {
	if math.IsNaN(float64(now)) {
		log.Panic("invalid time")
	}

	return math.Round(float64(now) * 10 * float64(f))
}

// ThisTick returns the tick at or immediately after now. A time in the
// interval (tick N-1, tick N] maps to tick N.
func (f Freq) ThisTick(now VTimeInSec) VTimeInSec {
	count := math.Ceil(f.deciCycles(now) / 10)

	return VTimeInSec(count / float64(f))
}

// NextTick returns the tick strictly after now. A time in the interval
// [tick N, tick N+1) maps to tick N+1.
func (f Freq) NextTick(now VTimeInSec) VTimeInSec {
	count := math.Floor(f.deciCycles(now) / 10)

	return VTimeInSec((count + 1) / float64(f))
}

// NCyclesLater returns the tick n cycles after now. The result always lands
// on a tick boundary.
func (f Freq) NCyclesLater(n int, now VTimeInSec) VTimeInSec {
	return f.ThisTick(now + VTimeInSec(Freq(n)/f))
}

// HalfTick returns the time halfway between ThisTick(t) and the tick after.
func (f Freq) HalfTick(t VTimeInSec) VTimeInSec {
	return f.ThisTick(t) + f.Period()/2
}
