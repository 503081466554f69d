package common

import "strings"

// NormalizeCity trims the input and collapses inner runs of whitespace.
// An empty result means the caller must not start a fetch.
func NormalizeCity(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CityKey returns a canonical key for indexing a city in stores.
func CityKey(s string) string {
	return strings.ToLower(NormalizeCity(s))
}
