package detectors

import "unicode/utf8"

// Mask hides a secret value, keeping its first and last four runes. Values
// of eight runes or fewer are fully hidden.
func Mask(v string) string {
	r := []rune(v)
	if utf8.RuneCountInString(v) <= 8 {
		return "****"
	}
	return string(r[:4]) + "..." + string(r[len(r)-4:])
}
