// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

// Package siphash implements the keyed 64-bit hash used by every
// fixed-bucket table in the server core. Keying the hash with a random
// per-table key stops clients from precomputing bucket collisions for
// attacker-chosen names.
//
// The algorithm is SipHash-2-4. Sum64Nocase folds ASCII case while
// hashing, so bucket placement agrees with the case-insensitive name
// comparison the tables use.
package siphash

import (
	"encoding/binary"
	"math/bits"
)

// SipHash-2-4 initialization constants ("somepseudorandomlygeneratedbytes").
const (
	iv0 = 0x736f6d6570736575
	iv1 = 0x646f72616e646f6d
	iv2 = 0x6c7967656e657261
	iv3 = 0x7465646279746573
)

func round(v0, v1, v2, v3 uint64) (uint64, uint64, uint64, uint64) {
	v0 += v1
	v1 = bits.RotateLeft64(v1, 13)
	v1 ^= v0
	v0 = bits.RotateLeft64(v0, 32)
	v2 += v3
	v3 = bits.RotateLeft64(v3, 16)
	v3 ^= v2
	v0 += v3
	v3 = bits.RotateLeft64(v3, 21)
	v3 ^= v0
	v2 += v1
	v1 = bits.RotateLeft64(v1, 17)
	v1 ^= v2
	v2 = bits.RotateLeft64(v2, 32)
	return v0, v1, v2, v3
}

// Sum64 hashes raw bytes. Use this for non-name data such as printable
// IP addresses; names want Sum64Nocase.
func Sum64(data []byte, key Key) uint64 {
	v0 := uint64(iv0)
	v1 := uint64(iv1)
	v2 := uint64(iv2)
	v3 := uint64(iv3)

	k0 := binary.LittleEndian.Uint64(key[0:8])
	k1 := binary.LittleEndian.Uint64(key[8:16])
	v3 ^= k1
	v2 ^= k0
	v1 ^= k1
	v0 ^= k0

	n := len(data)
	full := n - n%8
	for i := 0; i < full; i += 8 {
		m := binary.LittleEndian.Uint64(data[i:])
		v3 ^= m
		v0, v1, v2, v3 = round(v0, v1, v2, v3)
		v0, v1, v2, v3 = round(v0, v1, v2, v3)
		v0 ^= m
	}

	// Final block: trailing bytes plus the input length in the top byte.
	b := uint64(n) << 56
	for i, c := range data[full:] {
		b |= uint64(c) << (8 * uint(i))
	}

	v3 ^= b
	v0, v1, v2, v3 = round(v0, v1, v2, v3)
	v0, v1, v2, v3 = round(v0, v1, v2, v3)
	v0 ^= b

	v2 ^= 0xff
	v0, v1, v2, v3 = round(v0, v1, v2, v3)
	v0, v1, v2, v3 = round(v0, v1, v2, v3)
	v0, v1, v2, v3 = round(v0, v1, v2, v3)
	v0, v1, v2, v3 = round(v0, v1, v2, v3)

	return v0 ^ v1 ^ v2 ^ v3
}

// Sum64String hashes a string's bytes, case-sensitively.
func Sum64String(s string, key Key) uint64 {
	return Sum64([]byte(s), key)
}

// Sum64Nocase hashes a string with every byte ASCII-lowercased before
// mixing. Two names that compare equal under EqualFold always land in
// the same bucket.
func Sum64Nocase(s string, key Key) uint64 {
	v0 := uint64(iv0)
	v1 := uint64(iv1)
	v2 := uint64(iv2)
	v3 := uint64(iv3)

	k0 := binary.LittleEndian.Uint64(key[0:8])
	k1 := binary.LittleEndian.Uint64(key[8:16])
	v3 ^= k1
	v2 ^= k0
	v1 ^= k1
	v0 ^= k0

	n := len(s)
	full := n - n%8
	for i := 0; i < full; i += 8 {
		m := uint64(Lower(s[i])) |
			uint64(Lower(s[i+1]))<<8 |
			uint64(Lower(s[i+2]))<<16 |
			uint64(Lower(s[i+3]))<<24 |
			uint64(Lower(s[i+4]))<<32 |
			uint64(Lower(s[i+5]))<<40 |
			uint64(Lower(s[i+6]))<<48 |
			uint64(Lower(s[i+7]))<<56
		v3 ^= m
		v0, v1, v2, v3 = round(v0, v1, v2, v3)
		v0, v1, v2, v3 = round(v0, v1, v2, v3)
		v0 ^= m
	}

	b := uint64(n) << 56
	for i := full; i < n; i++ {
		b |= uint64(Lower(s[i])) << (8 * uint(i-full))
	}

	v3 ^= b
	v0, v1, v2, v3 = round(v0, v1, v2, v3)
	v0, v1, v2, v3 = round(v0, v1, v2, v3)
	v0 ^= b

	v2 ^= 0xff
	v0, v1, v2, v3 = round(v0, v1, v2, v3)
	v0, v1, v2, v3 = round(v0, v1, v2, v3)
	v0, v1, v2, v3 = round(v0, v1, v2, v3)
	v0, v1, v2, v3 = round(v0, v1, v2, v3)

	return v0 ^ v1 ^ v2 ^ v3
}
