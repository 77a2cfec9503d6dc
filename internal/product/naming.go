package product

import (
	"fmt"
	"strings"
)

// Slug lowercases and trims name and replaces each space with a hyphen.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// Barcode appends a five digit suffix to the slug of name. suffix is
// clamped into [10000, 99999].
func Barcode(name string, suffix int) string {
	if suffix < 10000 || suffix > 99999 {
		suffix = 10000 + (abs(suffix) % 90000)
	}
	return fmt.Sprintf("%s-%d", Slug(name), suffix)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
