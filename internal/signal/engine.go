package signal

import (
	"strconv"

	"main/internal/deriv"
)

// AutoBarrier asks the engine to select the barrier digit itself.
const AutoBarrier = -1

// Config names every heuristic threshold so behavior stays tunable and
// testable in isolation from the trade state machine.
type Config struct {
	// LowProbThreshold is the percentage below which a digit counts as cold.
	LowProbThreshold float64
	// SideSumThreshold is the cumulative side dominance required by the
	// over/under and even/odd modes.
	SideSumThreshold float64
	// DominanceThreshold is the parity dominance required by auto mode.
	DominanceThreshold float64
	// ConfirmCount is how many qualifying evaluations a (symbol, kind)
	// pair needs before a proposal is released.
	ConfirmCount int
	// StreakLength is the literal run length for parity and rise/fall checks.
	StreakLength int
	// MinHistory is the minimum retained window before any evaluation.
	MinHistory int
}

// DefaultConfig returns the thresholds the heuristics were tuned with.
func DefaultConfig() Config {
	return Config{
		LowProbThreshold:   10,
		SideSumThreshold:   55,
		DominanceThreshold: 60,
		ConfirmCount:       2,
		StreakLength:       3,
		MinHistory:         10,
	}
}

// Proposal is an optional tradeable condition derived from one symbol's
// history.
type Proposal struct {
	Kind       deriv.ContractKind
	Barrier    int
	HasBarrier bool
}

// Confirmer is the increment-only debounce counter. Each call that meets
// a mode's frequency condition bumps the (symbol, kind) counter; misses
// leave it untouched.
type Confirmer interface {
	Confirm(symbol, kind string) int
}

// Engine derives trade proposals from quote histories. It holds no
// per-symbol state of its own; the confirmation counters live with the
// tick store so subscribe/unsubscribe resets cover them.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.ConfirmCount <= 0 {
		cfg.ConfirmCount = 1
	}
	if cfg.StreakLength <= 0 {
		cfg.StreakLength = 3
	}
	return &Engine{cfg: cfg}
}

// Evaluate inspects one symbol's history under the configured mode and
// returns a proposal when a tradeable condition exists. barrier is a
// fixed digit or AutoBarrier.
func (e *Engine) Evaluate(symbol string, history []string, mode deriv.TradeMode, barrier int, confirm Confirmer) (Proposal, bool) {
	if len(history) < e.cfg.MinHistory {
		return Proposal{}, false
	}

	probs := Distribution(history)
	digits := Digits(history)

	switch mode {
	case deriv.ModeAuto:
		return e.evaluateAuto(probs, digits)
	case deriv.ModeOver:
		return e.evaluateOver(symbol, probs, digits, barrier, confirm)
	case deriv.ModeUnder:
		return e.evaluateUnder(symbol, probs, digits, barrier, confirm)
	case deriv.ModeDiffers:
		return e.evaluateDiffers(symbol, probs, barrier, confirm)
	case deriv.ModeEvenOdd:
		return e.evaluateEvenOdd(symbol, probs, digits, confirm)
	case deriv.ModeRiseFall:
		return e.evaluateRiseFall(symbol, digits, confirm)
	default:
		return Proposal{}, false
	}
}

// evaluateAuto applies the fixed rule priority: parity dominance, then a
// cold digit, then a three-tick monotonic run. No confirmation debounce
// in this mode.
func (e *Engine) evaluateAuto(probs [10]float64, digits []int) (Proposal, bool) {
	even := evenSum(probs)
	odd := 100 - even

	if even > e.cfg.DominanceThreshold {
		return Proposal{Kind: deriv.ContractDigitEven}, true
	}
	if odd > e.cfg.DominanceThreshold {
		return Proposal{Kind: deriv.ContractDigitOdd}, true
	}

	if cold, ok := coldestDigit(probs, e.cfg.LowProbThreshold); ok {
		return Proposal{Kind: deriv.ContractDigitDiff, Barrier: cold, HasBarrier: true}, true
	}

	if e.run(digits, 1) {
		return Proposal{Kind: deriv.ContractRise}, true
	}
	if e.run(digits, -1) {
		return Proposal{Kind: deriv.ContractFall}, true
	}
	return Proposal{}, false
}

func (e *Engine) evaluateOver(symbol string, probs [10]float64, digits []int, barrier int, confirm Confirmer) (Proposal, bool) {
	if barrier == AutoBarrier {
		barrier = e.autoOverBarrier(probs, lastDigit(digits))
	}
	if barrier < 0 || barrier > 9 {
		return Proposal{}, false
	}
	upper := sumRange(probs, barrier+1, 9)
	if upper < e.cfg.SideSumThreshold {
		return Proposal{}, false
	}
	if confirm.Confirm(symbol, "OVER"+strconv.Itoa(barrier)) < e.cfg.ConfirmCount {
		return Proposal{}, false
	}
	return Proposal{Kind: deriv.ContractDigitOver, Barrier: barrier, HasBarrier: true}, true
}

func (e *Engine) evaluateUnder(symbol string, probs [10]float64, digits []int, barrier int, confirm Confirmer) (Proposal, bool) {
	if barrier == AutoBarrier {
		barrier = e.autoUnderBarrier(probs, lastDigit(digits))
	}
	if barrier < 0 || barrier > 9 {
		return Proposal{}, false
	}
	lower := sumRange(probs, 0, barrier)
	if lower < e.cfg.SideSumThreshold {
		return Proposal{}, false
	}
	if confirm.Confirm(symbol, "UNDER"+strconv.Itoa(barrier)) < e.cfg.ConfirmCount {
		return Proposal{}, false
	}
	return Proposal{Kind: deriv.ContractDigitUnder, Barrier: barrier, HasBarrier: true}, true
}

func (e *Engine) evaluateDiffers(symbol string, probs [10]float64, barrier int, confirm Confirmer) (Proposal, bool) {
	if barrier == AutoBarrier {
		barrier = minDigit(probs)
	}
	if barrier < 0 || barrier > 9 {
		return Proposal{}, false
	}
	if probs[barrier] >= e.cfg.LowProbThreshold {
		return Proposal{}, false
	}
	if confirm.Confirm(symbol, "DIFF"+strconv.Itoa(barrier)) < e.cfg.ConfirmCount {
		return Proposal{}, false
	}
	return Proposal{Kind: deriv.ContractDigitDiff, Barrier: barrier, HasBarrier: true}, true
}

// evaluateEvenOdd requires the aggregate dominance AND a literal streak
// of the OPPOSITE parity over the last StreakLength digits: an odd
// trailing run gates the bet on even, and vice versa.
func (e *Engine) evaluateEvenOdd(symbol string, probs [10]float64, digits []int, confirm Confirmer) (Proposal, bool) {
	even := evenSum(probs)
	odd := 100 - even

	switch {
	case even > e.cfg.SideSumThreshold:
		if !e.parityStreak(digits, 1) {
			return Proposal{}, false
		}
		if confirm.Confirm(symbol, "EVEN") < e.cfg.ConfirmCount {
			return Proposal{}, false
		}
		return Proposal{Kind: deriv.ContractDigitEven}, true
	case odd > e.cfg.SideSumThreshold:
		if !e.parityStreak(digits, 0) {
			return Proposal{}, false
		}
		if confirm.Confirm(symbol, "ODD") < e.cfg.ConfirmCount {
			return Proposal{}, false
		}
		return Proposal{Kind: deriv.ContractDigitOdd}, true
	default:
		return Proposal{}, false
	}
}

func (e *Engine) evaluateRiseFall(symbol string, digits []int, confirm Confirmer) (Proposal, bool) {
	switch {
	case e.run(digits, 1):
		if confirm.Confirm(symbol, "RISE") < e.cfg.ConfirmCount {
			return Proposal{}, false
		}
		return Proposal{Kind: deriv.ContractRise}, true
	case e.run(digits, -1):
		if confirm.Confirm(symbol, "FALL") < e.cfg.ConfirmCount {
			return Proposal{}, false
		}
		return Proposal{Kind: deriv.ContractFall}, true
	default:
		return Proposal{}, false
	}
}

// autoOverBarrier scans the low candidate barriers and accepts the first
// whose entire low-side digit set stays cold and contains the most
// recent digit.
func (e *Engine) autoOverBarrier(probs [10]float64, last int) int {
	if last < 0 {
		return AutoBarrier
	}
	for _, candidate := range []int{1, 2, 3} {
		if !allBelow(probs, 0, candidate, e.cfg.LowProbThreshold) {
			continue
		}
		if last <= candidate {
			return candidate
		}
	}
	return AutoBarrier
}

func (e *Engine) autoUnderBarrier(probs [10]float64, last int) int {
	if last < 0 {
		return AutoBarrier
	}
	for _, candidate := range []int{6, 7, 8} {
		if !allBelow(probs, candidate, 9, e.cfg.LowProbThreshold) {
			continue
		}
		if last >= candidate {
			return candidate
		}
	}
	return AutoBarrier
}

// run reports a strict monotonic run of the last StreakLength digits in
// the given direction (+1 rising, -1 falling).
func (e *Engine) run(digits []int, direction int) bool {
	n := e.cfg.StreakLength
	if len(digits) < n {
		return false
	}
	tail := digits[len(digits)-n:]
	for i := 1; i < len(tail); i++ {
		if direction > 0 && tail[i] <= tail[i-1] {
			return false
		}
		if direction < 0 && tail[i] >= tail[i-1] {
			return false
		}
	}
	return true
}

func (e *Engine) parityStreak(digits []int, parity int) bool {
	n := e.cfg.StreakLength
	if len(digits) < n {
		return false
	}
	for _, d := range digits[len(digits)-n:] {
		if d%2 != parity {
			return false
		}
	}
	return true
}
