// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

package ident

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// NewClientID generates a fresh client identifier. ULIDs are unique,
// sortable by issue time, and contain no ASCII letters that fold into
// each other ambiguously, so the case-insensitive id table treats them
// consistently.
func NewClientID() string {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
