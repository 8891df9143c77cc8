package risk

import (
	"sync"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

var ErrLimitsUnset = errors.New("risk: take-profit and stop-loss must both be set")

// Limits hold the configured take-profit and stop-loss thresholds,
// immutable for the duration of a run.
type Limits struct {
	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
}

// NewLimits validates that both thresholds are set and positive. Starting
// a run without both is a precondition violation, not a default.
func NewLimits(takeProfit, stopLoss float64) (Limits, error) {
	if takeProfit <= 0 || stopLoss <= 0 {
		return Limits{}, ErrLimitsUnset
	}
	return Limits{
		TakeProfit: decimal.NewFromFloat(takeProfit),
		StopLoss:   decimal.NewFromFloat(stopLoss),
	}, nil
}

// StopReason classifies why a run halted.
type StopReason int

const (
	StopNone StopReason = iota
	StopTakeProfit
	StopLoss
	StopManual
)

func (r StopReason) String() string {
	switch r {
	case StopTakeProfit:
		return "take-profit reached"
	case StopLoss:
		return "stop-loss reached"
	case StopManual:
		return "stopped manually"
	default:
		return "running"
	}
}

// Tracker accumulates realized profit/loss since the last start and
// compares it against the limits. Settlements are keyed by the venue's
// contract id so a duplicate settlement event can never double-count.
// Mutation happens only on the controller goroutine; the lock exists for
// read-only observers.
type Tracker struct {
	mu      sync.RWMutex
	limits  Limits
	pnl     decimal.Decimal
	settled map[int64]struct{}
}

func NewTracker(limits Limits) *Tracker {
	return &Tracker{
		limits:  limits,
		settled: make(map[int64]struct{}),
	}
}

// Reset zeroes the accumulator and forgets settled ids. Called on start.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pnl = decimal.Zero
	t.settled = make(map[int64]struct{})
}

// Settle applies one settlement. It returns the new cumulative PnL and
// whether the settlement was counted; a contract id seen before leaves
// the accumulator untouched.
func (t *Tracker) Settle(contractID int64, profit float64) (decimal.Decimal, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.settled[contractID]; dup {
		return t.pnl, false
	}
	t.settled[contractID] = struct{}{}
	t.pnl = t.pnl.Add(decimal.NewFromFloat(profit))
	return t.pnl, true
}

// PnL returns the cumulative realized profit/loss since the last reset.
func (t *Tracker) PnL() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pnl
}

// Breach reports whether the current PnL crossed a configured limit.
func (t *Tracker) Breach() StopReason {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.pnl.GreaterThanOrEqual(t.limits.TakeProfit) {
		return StopTakeProfit
	}
	if t.pnl.LessThanOrEqual(t.limits.StopLoss.Neg()) {
		return StopLoss
	}
	return StopNone
}
