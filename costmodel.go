package davidson

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// dynState is the explicit enum for the dynamic-switch state machine,
// implemented as an enum with dispatch methods rather than a raw integer
// with comments.
type dynState int

const (
	dynOff dynState = iota
	dynGDkFewEvalsPerRestart   // state 1
	dynJDQMRFewEvalsPerOuter   // state 2
	dynGDkManyEvalsOnConverge  // state 3
	dynJDQMRManyEvalsOnConverge // state 4
	dynRecommendGDk            // -1, terminal
	dynRecommendJDQMR          // -2, terminal
	dynRecommendStayDynamic    // -3, terminal
)

func startState(d DynamicSwitch) dynState {
	switch d {
	case DynamicState1:
		return dynGDkFewEvalsPerRestart
	case DynamicState2:
		return dynJDQMRFewEvalsPerOuter
	case DynamicState3:
		return dynGDkManyEvalsOnConverge
	case DynamicState4:
		return dynJDQMRManyEvalsOnConverge
	default:
		return dynOff
	}
}

// costModel accumulates timings and convergence rates and decides whether
// the next correction step should use GD+k or JDQMR.
type costModel struct {
	state dynState

	// timer0/numItAt0/numMVAt0 are snapshots taken at the start of a
	// measurement window.
	timer0    time.Time
	timeInInner time.Duration
	numItAt0  int
	numMVAt0  int

	// Per-method averaged costs.
	gdkPlusMV  float64
	pr         float64
	qmrPlusMVPR float64
	mvPR       float64

	// Convergence-rate accumulators, reset every 10 converged pairs,
	// carrying the running average forward as a single "virtual" sample.
	rateSamples     []float64 // log-residual-reduction rate per matvec
	numEvalsSinceReset int

	slowdown float64 // JDQMR_slowdown, clamped into [1.1, 2.5]

	firstGDkToJDQMRDone bool

	recommendation dynState // set once a terminal state is reached
}

func newCostModel(d DynamicSwitch) *costModel {
	return &costModel{
		state:    startState(d),
		slowdown: 1.1,
	}
}

// active reports whether dynamic switching governs the current method
// choice.
func (c *costModel) active() bool { return c.state != dynOff }

// usingJDQMR reports which correction family the current state implies.
func (c *costModel) usingJDQMR() bool {
	switch c.state {
	case dynJDQMRFewEvalsPerOuter, dynJDQMRManyEvalsOnConverge:
		return true
	case dynRecommendJDQMR:
		return true
	default:
		return false
	}
}

// startTiming begins a measurement window ahead of an inner correction
// solve.
func (c *costModel) startTiming(numIt, numMV int) {
	if !c.active() {
		return
	}
	c.timer0 = time.Now()
	c.numItAt0 = numIt
	c.numMVAt0 = numMV
}

// recordInnerTime accumulates wall-clock time spent in the inner solver;
// wall-clock is consulted only for timing the inner solve, never for
// control-flow decisions that must agree across processes.
func (c *costModel) recordInnerTime(d time.Duration) {
	if !c.active() {
		return
	}
	c.timeInInner += d
}

// costEMAAlpha weights the most recent sample in the per-method running
// averages below; small enough that one slow outlier step does not swing
// the switch decision on its own.
const costEMAAlpha = 0.3

func costEMA(prev, sample float64) float64 {
	if prev == 0 {
		return sample
	}
	return costEMAAlpha*sample + (1-costEMAAlpha)*prev
}

// recordCorrectionCost folds one correction step's measured wall-clock
// cost into the running averages switchByRatio consults. mvPR tracks the
// per-matvec(-plus-preconditioner) cost observed while JDQMR's inner
// Krylov iterations run; gdkPlusMV and qmrPlusMVPR track the total
// observed cost of taking a correction step via each method, inclusive of
// the matvec/precondition work that step still implies at the next
// restart.
func (c *costModel) recordCorrectionCost(usedJDQMR bool, elapsed time.Duration, matvecsUsed, blockLen int) {
	if !c.active() {
		return
	}
	seconds := elapsed.Seconds()
	if usedJDQMR {
		if matvecsUsed > 0 {
			c.mvPR = costEMA(c.mvPR, seconds/float64(matvecsUsed))
		}
		c.qmrPlusMVPR = costEMA(c.qmrPlusMVPR, seconds+c.mvPR)
	} else {
		if blockLen > 0 {
			c.pr = costEMA(c.pr, seconds/float64(blockLen))
		}
		c.gdkPlusMV = costEMA(c.gdkPlusMV, seconds+c.mvPR)
	}
}

// evaluateAtRestart implements the "after 1st restart -> measure -> maybe 2"
// and "ratio heuristic -> 1 or stay" transitions for states 1/2.
func (c *costModel) evaluateAtRestart(globalSum GlobalSum, numProcs int) {
	switch c.state {
	case dynGDkFewEvalsPerRestart:
		if !c.firstGDkToJDQMRDone {
			c.state = dynJDQMRFewEvalsPerOuter
			c.firstGDkToJDQMRDone = true
			return
		}
		c.switchByRatio(globalSum, numProcs, dynGDkFewEvalsPerRestart, dynJDQMRFewEvalsPerOuter)
	case dynJDQMRFewEvalsPerOuter:
		c.switchByRatio(globalSum, numProcs, dynGDkFewEvalsPerRestart, dynJDQMRFewEvalsPerOuter)
	}
}

// evaluateOnConvergence implements the "pair converges -> maybe 4" and
// "pair converges -> maybe 3" transitions for states 3/4, and folds the new
// sample into the rate accumulators, resetting every 10 converged pairs.
func (c *costModel) evaluateOnConvergence(rate float64, numConverged int, globalSum GlobalSum, numProcs int) {
	c.addRateSample(rate, numConverged)

	switch c.state {
	case dynGDkManyEvalsOnConverge:
		if !c.firstGDkToJDQMRDone {
			c.state = dynJDQMRManyEvalsOnConverge
			c.firstGDkToJDQMRDone = true
			return
		}
		c.switchByRatio(globalSum, numProcs, dynGDkManyEvalsOnConverge, dynJDQMRManyEvalsOnConverge)
	case dynJDQMRManyEvalsOnConverge:
		c.switchByRatio(globalSum, numProcs, dynGDkManyEvalsOnConverge, dynJDQMRManyEvalsOnConverge)
	}
}

// addRateSample folds a new log-residual-reduction-per-matvec sample into
// the accumulator, resetting every 10 converged pairs while carrying the
// current average forward as one virtual sample.
func (c *costModel) addRateSample(rate float64, numConverged int) {
	c.rateSamples = append(c.rateSamples, rate)
	c.numEvalsSinceReset++
	if c.numEvalsSinceReset >= 10 {
		avg := stat.Mean(c.rateSamples, nil)
		c.rateSamples = []float64{avg}
		c.numEvalsSinceReset = 0
	}
}

// slope returns the current log-residual-reduction slope estimate via a
// simple linear regression over the recent rate samples. switchByRatio
// does not consult it, and slowdown is not derived from it.
func (c *costModel) slope() float64 {
	n := len(c.rateSamples)
	if n < 2 {
		if n == 1 {
			return c.rateSamples[0]
		}
		return 0
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	_, beta := stat.LinearRegression(xs, c.rateSamples, nil, false)
	return beta
}

// switchByRatio implements the decision rule:
//
//	ratio = slowdown * (qmr+mv+pr + (gd-2q-pr)/ratio_MV_outer) / (gd+mv+pr)
//
// switching to GD+k when ratio > 1.05, JDQMR when ratio < 0.95, otherwise
// staying. In distributed runs ratio is averaged across processes via
// globalSum so every process reaches the same decision.
func (c *costModel) switchByRatio(globalSum GlobalSum, numProcs int, gdState, jdqmrState dynState) {
	ratioMVOuter := math.Max(1.0, float64(c.numItAt0))

	lo := math.Max(1.1, ratioMVOuter/math.Max(ratioMVOuter-1, 1e-12))
	hi := math.Min(2.5, ratioMVOuter)
	if lo > hi {
		lo, hi = hi, lo
	}
	c.slowdown = math.Min(math.Max(c.slowdown, lo), hi)

	gd := c.gdkPlusMV
	q := c.pr
	qmrMVPR := c.qmrPlusMVPR
	mvPR := c.mvPR

	local := [1]float64{0}
	if gd+mvPR != 0 {
		local[0] = c.slowdown * (qmrMVPR + (gd-2*q-mvPR)/ratioMVOuter) / (gd + mvPR)
	}
	global := [1]float64{0}
	_ = globalSum.SumInto(global[:], local[:])
	ratio := global[0] / float64(numProcs)

	switch {
	case ratio > 1.05:
		c.state = gdState
	case ratio < 0.95:
		c.state = jdqmrState
	}
}

// finalRecommendation is called once the solver returns, to set the
// terminal recommendation reported via Stats for a dynamic run: whichever
// family the state machine was using when it stopped.
func (c *costModel) finalRecommendation() dynState {
	switch c.state {
	case dynGDkFewEvalsPerRestart, dynGDkManyEvalsOnConverge:
		return dynRecommendGDk
	case dynJDQMRFewEvalsPerOuter, dynJDQMRManyEvalsOnConverge:
		return dynRecommendJDQMR
	default:
		return dynRecommendStayDynamic
	}
}
