// Package identity turns national IDs (CPF) into comparison keys.
package identity

import "strings"

// Normalize strips every non-digit character from raw.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SameClient reports whether a and b identify the same client.
// An empty key never matches anything.
func SameClient(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}

// FormatCPF renders raw as 000.000.000-00, keeping at most 11 digits.
// Partial input is formatted as far as it goes.
func FormatCPF(raw string) string {
	d := Normalize(raw)
	if len(d) > 11 {
		d = d[:11]
	}
	switch {
	case len(d) <= 3:
		return d
	case len(d) <= 6:
		return d[:3] + "." + d[3:]
	case len(d) <= 9:
		return d[:3] + "." + d[3:6] + "." + d[6:]
	default:
		return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
	}
}
