package ticks

import "strconv"

// DefaultCapacity matches the rolling window the signal heuristics were
// tuned against.
const DefaultCapacity = 50

// Store keeps a bounded rolling quote history per subscribed instrument,
// in subscribe order, plus the per-(symbol, signal-kind) confirmation
// counters. It is pure bookkeeping owned by the controller; nothing here
// is safe for concurrent use.
type Store struct {
	capacity  int
	symbols   []string
	histories map[string][]string
	confirms  map[string]map[string]int
}

// NewStore creates an empty store. A non-positive capacity falls back to
// the default window.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity:  capacity,
		histories: make(map[string][]string),
		confirms:  make(map[string]map[string]int),
	}
}

// Reset registers the given symbols for collection, emptying their
// histories and wiping every confirmation counter. Called on subscribe.
func (s *Store) Reset(symbols []string) {
	s.symbols = s.symbols[:0]
	s.histories = make(map[string][]string, len(symbols))
	s.confirms = make(map[string]map[string]int)
	for _, symbol := range symbols {
		if _, ok := s.histories[symbol]; ok {
			continue
		}
		s.symbols = append(s.symbols, symbol)
		s.histories[symbol] = make([]string, 0, s.capacity)
	}
}

// Clear drops every history and counter unconditionally. Called on
// unsubscribe.
func (s *Store) Clear() {
	s.symbols = nil
	s.histories = make(map[string][]string)
	s.confirms = make(map[string]map[string]int)
}

// Append records a quote for a subscribed symbol, evicting the oldest
// entry once the window is full. A tick for an unregistered symbol (late
// or duplicate after unsubscribe) is silently ignored.
func (s *Store) Append(symbol string, quote float64) {
	history, ok := s.histories[symbol]
	if !ok {
		return
	}
	history = append(history, FormatQuote(quote))
	if len(history) > s.capacity {
		history = history[1:]
	}
	s.histories[symbol] = history
}

// Symbols returns the registered symbols in subscribe order. The caller
// must not mutate the returned slice.
func (s *Store) Symbols() []string { return s.symbols }

// History returns the current window for a symbol, oldest first.
func (s *Store) History(symbol string) []string { return s.histories[symbol] }

// Len returns the number of retained quotes for a symbol.
func (s *Store) Len(symbol string) int { return len(s.histories[symbol]) }

// Confirm increments the confirmation counter for a (symbol, kind) pair
// and returns the new count. Counters only ever increase between resets;
// an evaluation that misses the frequency condition does not decrement
// or clear them.
func (s *Store) Confirm(symbol, kind string) int {
	kinds, ok := s.confirms[symbol]
	if !ok {
		kinds = make(map[string]int)
		s.confirms[symbol] = kinds
	}
	kinds[kind]++
	return kinds[kind]
}

// FormatQuote renders a quote the way the digit heuristics expect:
// shortest round-trip decimal form, so 1234.50 becomes "1234.5" and its
// trailing digit is 5, not 0.
func FormatQuote(quote float64) string {
	return strconv.FormatFloat(quote, 'f', -1, 64)
}
