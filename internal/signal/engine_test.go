package signal

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/deriv"
)

type stubConfirmer map[string]int

func (s stubConfirmer) Confirm(symbol, kind string) int {
	s[symbol+kind]++
	return s[symbol+kind]
}

// quotes builds a history whose trailing digits are exactly the given
// sequence.
func quotes(digits ...int) []string {
	out := make([]string, 0, len(digits))
	for _, d := range digits {
		out = append(out, fmt.Sprintf("100.%d", d))
	}
	return out
}

func TestDistribution(t *testing.T) {
	probs := Distribution(quotes(0, 1, 2, 3, 4, 5, 6, 7, 8, 9))
	sum := 0.0
	for d, p := range probs {
		assert.InDelta(t, 10.0, p, 1e-9, "digit %d", d)
		sum += p
	}
	assert.InDelta(t, 100.0, sum, 1e-9)

	probs = Distribution(quotes(7, 7, 7, 1))
	assert.InDelta(t, 75.0, probs[7], 1e-9)
	assert.InDelta(t, 25.0, probs[1], 1e-9)
	assert.Zero(t, probs[0])
}

func TestDigitsSkipNonNumericTails(t *testing.T) {
	digits := Digits([]string{"100.5", "", "bad.", "99.0"})
	assert.Equal(t, []int{5, 0}, digits)
}

func TestEvaluateBelowMinHistory(t *testing.T) {
	e := NewEngine(DefaultConfig())
	_, ok := e.Evaluate("R_10", quotes(1, 4, 7), deriv.ModeAuto, AutoBarrier, stubConfirmer{})
	assert.False(t, ok)
}

func TestAutoParityDominanceWinsOverColdDigit(t *testing.T) {
	e := NewEngine(DefaultConfig())

	// 90% even AND several cold digits; the parity rule has priority.
	history := quotes(0, 0, 2, 2, 4, 4, 6, 6, 8, 3)
	p, ok := e.Evaluate("R_10", history, deriv.ModeAuto, AutoBarrier, stubConfirmer{})
	require.True(t, ok)
	assert.Equal(t, deriv.ContractDigitEven, p.Kind)
	assert.False(t, p.HasBarrier)

	history = quotes(1, 1, 3, 3, 5, 5, 7, 7, 9, 2)
	p, ok = e.Evaluate("R_10", history, deriv.ModeAuto, AutoBarrier, stubConfirmer{})
	require.True(t, ok)
	assert.Equal(t, deriv.ContractDigitOdd, p.Kind)
}

func TestAutoColdDigit(t *testing.T) {
	e := NewEngine(DefaultConfig())

	// Parity is 60/40 (not dominant), digit 9 never shows up.
	history := quotes(0, 1, 2, 3, 4, 5, 6, 7, 8, 8)
	p, ok := e.Evaluate("R_10", history, deriv.ModeAuto, AutoBarrier, stubConfirmer{})
	require.True(t, ok)
	assert.Equal(t, deriv.ContractDigitDiff, p.Kind)
	assert.Equal(t, 9, p.Barrier)
	assert.True(t, p.HasBarrier)
}

func TestAutoMonotonicRun(t *testing.T) {
	e := NewEngine(DefaultConfig())

	// Uniform distribution (every digit once) so only the run rule can
	// fire. No debounce in auto mode: the first pass already proposes.
	rising := quotes(0, 2, 9, 3, 5, 6, 8, 1, 4, 7)
	p, ok := e.Evaluate("R_10", rising, deriv.ModeAuto, AutoBarrier, stubConfirmer{})
	require.True(t, ok)
	assert.Equal(t, deriv.ContractRise, p.Kind)

	falling := quotes(0, 2, 3, 4, 6, 7, 8, 9, 5, 1)
	p, ok = e.Evaluate("R_10", falling, deriv.ModeAuto, AutoBarrier, stubConfirmer{})
	require.True(t, ok)
	assert.Equal(t, deriv.ContractFall, p.Kind)

	// 3,7,2 is neither rising nor falling.
	flat := quotes(0, 1, 4, 5, 6, 8, 9, 3, 7, 2)
	_, ok = e.Evaluate("R_10", flat, deriv.ModeAuto, AutoBarrier, stubConfirmer{})
	assert.False(t, ok)
}

func TestRiseFallNeedsConfirmation(t *testing.T) {
	e := NewEngine(DefaultConfig())
	confirm := stubConfirmer{}
	history := quotes(0, 2, 9, 3, 5, 6, 8, 1, 4, 7)

	_, ok := e.Evaluate("R_10", history, deriv.ModeRiseFall, AutoBarrier, confirm)
	assert.False(t, ok, "first qualifying pass only arms the counter")

	p, ok := e.Evaluate("R_10", history, deriv.ModeRiseFall, AutoBarrier, confirm)
	require.True(t, ok)
	assert.Equal(t, deriv.ContractRise, p.Kind)
}

func TestOverAutoBarrier(t *testing.T) {
	e := NewEngine(DefaultConfig())
	confirm := stubConfirmer{}

	// 20 quotes: digit 0 absent, digit 1 once (5%), rest spread high.
	// Last digit 1 sits inside the cold low set {0,1}, so the scan picks
	// barrier 1; probs[2..9] = 95% clears the side threshold.
	history := quotes(5, 6, 7, 8, 9, 5, 6, 7, 8, 9, 2, 3, 4, 2, 3, 4, 5, 6, 7, 1)
	_, ok := e.Evaluate("R_10", history, deriv.ModeOver, AutoBarrier, confirm)
	assert.False(t, ok)

	p, ok := e.Evaluate("R_10", history, deriv.ModeOver, AutoBarrier, confirm)
	require.True(t, ok)
	assert.Equal(t, deriv.ContractDigitOver, p.Kind)
	assert.Equal(t, 1, p.Barrier)
	assert.True(t, p.HasBarrier)
}

func TestOverAutoBarrierNeedsLastDigitInColdSet(t *testing.T) {
	e := NewEngine(DefaultConfig())

	// Same cold low set but the latest digit is 7; no candidate accepts.
	history := quotes(5, 6, 7, 8, 9, 5, 6, 7, 8, 9, 2, 3, 4, 2, 3, 4, 5, 6, 1, 7)
	_, ok := e.Evaluate("R_10", history, deriv.ModeOver, AutoBarrier, stubConfirmer{})
	assert.False(t, ok)
}

func TestUnderAutoBarrier(t *testing.T) {
	e := NewEngine(DefaultConfig())
	confirm := stubConfirmer{}

	// Digits 6, 7, 9 absent, 8 once; last digit 8 >= candidate 6, so the
	// first candidate barrier wins.
	history := quotes(0, 1, 2, 3, 4, 5, 0, 1, 2, 3, 4, 5, 0, 1, 2, 3, 4, 5, 0, 8)
	_, ok := e.Evaluate("R_10", history, deriv.ModeUnder, AutoBarrier, confirm)
	assert.False(t, ok)

	p, ok := e.Evaluate("R_10", history, deriv.ModeUnder, AutoBarrier, confirm)
	require.True(t, ok)
	assert.Equal(t, deriv.ContractDigitUnder, p.Kind)
	assert.Equal(t, 6, p.Barrier)
}

func TestOverFixedBarrierSideSum(t *testing.T) {
	e := NewEngine(DefaultConfig())
	confirm := stubConfirmer{}

	// probs[4..9] = 70% >= 55% over barrier 3.
	history := quotes(4, 5, 6, 7, 8, 9, 4, 0, 1, 2)
	_, ok := e.Evaluate("R_10", history, deriv.ModeOver, 3, confirm)
	assert.False(t, ok)
	p, ok := e.Evaluate("R_10", history, deriv.ModeOver, 3, confirm)
	require.True(t, ok)
	assert.Equal(t, 3, p.Barrier)

	// 50% upper share misses the threshold and never touches the counter.
	weak := quotes(4, 5, 6, 7, 8, 0, 1, 2, 3, 0)
	_, ok = e.Evaluate("R_25", weak, deriv.ModeOver, 3, confirm)
	assert.False(t, ok)
	assert.Zero(t, confirm["R_25OVER3"])
}

func TestDiffersColdBarrier(t *testing.T) {
	e := NewEngine(DefaultConfig())
	confirm := stubConfirmer{}

	// Digit 7 never appears.
	history := quotes(0, 1, 2, 3, 4, 5, 6, 8, 9, 0)
	_, ok := e.Evaluate("R_10", history, deriv.ModeDiffers, 7, confirm)
	assert.False(t, ok)
	p, ok := e.Evaluate("R_10", history, deriv.ModeDiffers, 7, confirm)
	require.True(t, ok)
	assert.Equal(t, deriv.ContractDigitDiff, p.Kind)
	assert.Equal(t, 7, p.Barrier)

	// A warm digit is never bet against.
	warm := quotes(7, 7, 0, 1, 2, 3, 4, 5, 6, 8)
	_, ok = e.Evaluate("R_10", warm, deriv.ModeDiffers, 7, confirm)
	assert.False(t, ok)
}

func TestEvenOddNeedsDominanceAndOppositeStreak(t *testing.T) {
	e := NewEngine(DefaultConfig())
	confirm := stubConfirmer{}

	// 70% even while the last three digits run odd: the bet rides the
	// dominant side snapping back after the opposite-parity streak.
	history := quotes(0, 2, 4, 6, 8, 0, 2, 1, 3, 5)
	_, ok := e.Evaluate("R_10", history, deriv.ModeEvenOdd, AutoBarrier, confirm)
	assert.False(t, ok, "first qualifying pass only arms the counter")
	p, ok := e.Evaluate("R_10", history, deriv.ModeEvenOdd, AutoBarrier, confirm)
	require.True(t, ok)
	assert.Equal(t, deriv.ContractDigitEven, p.Kind)

	// Dominance with a matching trailing streak stays silent and never
	// touches the counter.
	matching := quotes(1, 0, 2, 4, 6, 8, 0, 2, 4, 6)
	_, ok = e.Evaluate("R_25", matching, deriv.ModeEvenOdd, AutoBarrier, confirm)
	assert.False(t, ok)
	assert.Zero(t, confirm["R_25EVEN"])
}

func TestEvenOddOddSide(t *testing.T) {
	e := NewEngine(DefaultConfig())
	confirm := stubConfirmer{}

	// 70% odd with an even trailing run gates the bet on odd.
	history := quotes(1, 3, 5, 7, 9, 1, 3, 0, 2, 4)
	_, ok := e.Evaluate("R_10", history, deriv.ModeEvenOdd, AutoBarrier, confirm)
	assert.False(t, ok)
	p, ok := e.Evaluate("R_10", history, deriv.ModeEvenOdd, AutoBarrier, confirm)
	require.True(t, ok)
	assert.Equal(t, deriv.ContractDigitOdd, p.Kind)
}

func TestConfirmationKeyedPerSymbolAndKind(t *testing.T) {
	e := NewEngine(DefaultConfig())
	confirm := stubConfirmer{}
	history := quotes(0, 1, 2, 3, 4, 5, 6, 8, 9, 0)

	_, ok := e.Evaluate("R_10", history, deriv.ModeDiffers, 7, confirm)
	require.False(t, ok)

	// A different symbol starts its own counter from scratch.
	_, ok = e.Evaluate("R_25", history, deriv.ModeDiffers, 7, confirm)
	assert.False(t, ok)
	assert.Equal(t, 1, confirm["R_10DIFF7"])
	assert.Equal(t, 1, confirm["R_25DIFF7"])
}
