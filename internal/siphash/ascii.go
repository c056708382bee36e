// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

package siphash

// Lower returns the ASCII lowercase of c. Bytes outside A-Z pass
// through unchanged; names are treated as raw octets, not Unicode.
func Lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// EqualFold reports whether two strings are equal under ASCII case
// folding. This is the comparison every case-insensitive table scan
// uses; it must agree with Sum64Nocase on what "equal" means.
func EqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if Lower(a[i]) != Lower(b[i]) {
			return false
		}
	}
	return true
}
