// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

package ident

// link is an intrusive node in a circular doubly-linked bucket chain.
// Each bucket owns a sentinel link; entity links hang off it. A
// detached link points to itself, which makes unlink a safe no-op and
// never requires recomputing the entity's hash — important because a
// client can be unlinked after its name has already changed.
type link struct {
	next, prev *link
	owner      *Client // nil on bucket sentinels
}

func (l *link) init() {
	l.next = l
	l.prev = l
}

func (l *link) linked() bool {
	return l.next != nil && l.next != l
}

// addFront inserts n at the front of the chain headed by l.
func (l *link) addFront(n *link) {
	n.prev = l
	n.next = l.next
	l.next.prev = n
	l.next = n
}

// unlink detaches l from whatever chain it is on. No-op when detached.
func (l *link) unlink() {
	if !l.linked() {
		l.init()
		return
	}
	l.prev.next = l.next
	l.next.prev = l.prev
	l.init()
}
