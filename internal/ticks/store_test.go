package ticks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendEvictsOldestFirst(t *testing.T) {
	s := NewStore(3)
	s.Reset([]string{"R_10"})

	s.Append("R_10", 1.1)
	s.Append("R_10", 2.2)
	s.Append("R_10", 3.3)
	require.Equal(t, []string{"1.1", "2.2", "3.3"}, s.History("R_10"))

	// One past capacity drops exactly the oldest entry.
	s.Append("R_10", 4.4)
	assert.Equal(t, []string{"2.2", "3.3", "4.4"}, s.History("R_10"))
	assert.Equal(t, 3, s.Len("R_10"))
}

func TestAppendIgnoresUnsubscribedSymbol(t *testing.T) {
	s := NewStore(5)
	s.Reset([]string{"R_10"})

	s.Append("R_25", 9.9)
	assert.Empty(t, s.History("R_25"))
	assert.Equal(t, []string{"R_10"}, s.Symbols())
}

func TestResetClearsHistoriesAndCounters(t *testing.T) {
	s := NewStore(5)
	s.Reset([]string{"R_10"})
	s.Append("R_10", 1.5)
	require.Equal(t, 1, s.Confirm("R_10", "OVER3"))
	require.Equal(t, 2, s.Confirm("R_10", "OVER3"))

	s.Reset([]string{"R_10", "R_25"})
	assert.Empty(t, s.History("R_10"))
	assert.Equal(t, []string{"R_10", "R_25"}, s.Symbols())
	assert.Equal(t, 1, s.Confirm("R_10", "OVER3"))
}

func TestClearDropsEverything(t *testing.T) {
	s := NewStore(5)
	s.Reset([]string{"R_10", "R_25"})
	s.Append("R_10", 1.0)

	s.Clear()
	assert.Empty(t, s.Symbols())
	assert.Empty(t, s.History("R_10"))

	// A late tick after unsubscribe is a no-op, not an error.
	s.Append("R_10", 2.0)
	assert.Empty(t, s.History("R_10"))
}

func TestSymbolsKeepSubscribeOrder(t *testing.T) {
	s := NewStore(5)
	s.Reset([]string{"R_75", "R_10", "1HZ50V"})
	assert.Equal(t, []string{"R_75", "R_10", "1HZ50V"}, s.Symbols())
}

func TestConfirmCountersNeverResetOnMiss(t *testing.T) {
	s := NewStore(5)
	s.Reset([]string{"R_10"})

	// The counter only ever increases between resets; there is no API to
	// decrement it.
	require.Equal(t, 1, s.Confirm("R_10", "RISE"))
	require.Equal(t, 1, s.Confirm("R_10", "FALL"))
	require.Equal(t, 2, s.Confirm("R_10", "RISE"))
	require.Equal(t, 3, s.Confirm("R_10", "RISE"))
}

func TestFormatQuote(t *testing.T) {
	// Shortest round-trip form: trailing zeros vanish exactly like the
	// venue's numeric JSON would through a float.
	assert.Equal(t, "1234.5", FormatQuote(1234.50))
	assert.Equal(t, "1234", FormatQuote(1234.0))
	assert.Equal(t, "0.35", FormatQuote(0.35))
}
