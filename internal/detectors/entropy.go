package detectors

import "math"

// Entropy returns the Shannon entropy of s in bits per character, computed
// over the rune distribution. Entropy("") is 0.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}
	count := map[rune]int{}
	n := 0
	for _, r := range s {
		count[r]++
		n++
	}
	H := 0.0
	total := float64(n)
	for _, c := range count {
		p := float64(c) / total
		H += -p * math.Log2(p)
	}
	return H
}
