// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

package throttle

// Decision is the outcome of a connection-attempt check.
type Decision int

const (
	// Deny rejects the attempt: the address exceeded its window limit.
	Deny Decision = iota
	// AllowFirst admits an untracked address. The caller must call
	// CreateBucket after the connection goes through.
	AllowFirst
	// AllowTracked admits an address that is already being counted.
	AllowTracked
	// AllowUntracked admits without tracking; throttling is disabled.
	AllowUntracked
)

// Allowed reports whether the attempt may proceed.
func (d Decision) Allowed() bool {
	return d != Deny
}

func (d Decision) String() string {
	switch d {
	case Deny:
		return "deny"
	case AllowFirst:
		return "allow-first"
	case AllowTracked:
		return "allow-tracked"
	case AllowUntracked:
		return "allow-untracked"
	default:
		return "unknown"
	}
}
