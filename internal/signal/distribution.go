package signal

// Distribution computes the percentage frequency of each trailing decimal
// digit 0-9 over the full retained window. An empty history yields all
// zeros; otherwise the buckets sum to 100 within float tolerance.
func Distribution(history []string) [10]float64 {
	var probs [10]float64
	if len(history) == 0 {
		return probs
	}
	var counts [10]int
	total := 0
	for _, quote := range history {
		d, ok := trailingDigit(quote)
		if !ok {
			continue
		}
		counts[d]++
		total++
	}
	if total == 0 {
		return probs
	}
	for i, c := range counts {
		probs[i] = float64(c) / float64(len(history)) * 100
	}
	return probs
}

// Digits maps a history to its trailing digits, dropping entries whose
// string form does not end in a decimal digit.
func Digits(history []string) []int {
	out := make([]int, 0, len(history))
	for _, quote := range history {
		if d, ok := trailingDigit(quote); ok {
			out = append(out, d)
		}
	}
	return out
}

func trailingDigit(quote string) (int, bool) {
	if len(quote) == 0 {
		return 0, false
	}
	c := quote[len(quote)-1]
	if c < '0' || c > '9' {
		return 0, false
	}
	return int(c - '0'), true
}

func lastDigit(digits []int) int {
	if len(digits) == 0 {
		return -1
	}
	return digits[len(digits)-1]
}

func evenSum(probs [10]float64) float64 {
	return probs[0] + probs[2] + probs[4] + probs[6] + probs[8]
}

func sumRange(probs [10]float64, lo, hi int) float64 {
	if lo < 0 {
		lo = 0
	}
	if hi > 9 {
		hi = 9
	}
	sum := 0.0
	for i := lo; i <= hi; i++ {
		sum += probs[i]
	}
	return sum
}

// minDigit returns the first digit holding the minimum frequency.
func minDigit(probs [10]float64) int {
	min := 0
	for i := 1; i < 10; i++ {
		if probs[i] < probs[min] {
			min = i
		}
	}
	return min
}

// coldestDigit returns the least-frequent digit if any bucket falls below
// the threshold.
func coldestDigit(probs [10]float64, threshold float64) (int, bool) {
	below := false
	for _, p := range probs {
		if p < threshold {
			below = true
			break
		}
	}
	if !below {
		return 0, false
	}
	return minDigit(probs), true
}

func allBelow(probs [10]float64, lo, hi int, threshold float64) bool {
	for i := lo; i <= hi; i++ {
		if probs[i] >= threshold {
			return false
		}
	}
	return true
}
