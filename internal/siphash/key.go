// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

package siphash

import "crypto/rand"

// KeySize is the hash key length in bytes.
const KeySize = 16

// Key is a secret hash key. Generate one per table at process start and
// keep it for the process lifetime; it is never persisted or sent over
// the wire. Giving each table its own key means predicting one table's
// collisions tells an attacker nothing about another's.
type Key [KeySize]byte

// RandomSource supplies unpredictable bytes at key-generation time.
type RandomSource func() byte

// GenerateKey draws a fresh key from src. A nil src uses crypto/rand.
func GenerateKey(src RandomSource) Key {
	if src == nil {
		src = cryptoRandByte
	}
	var k Key
	for i := range k {
		k[i] = src()
	}
	return k
}

func cryptoRandByte() byte {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		// No recovery path without a source of randomness; an
		// unkeyed table would be open to collision attacks.
		panic("siphash: reading random source: " + err.Error())
	}
	return b[0]
}
