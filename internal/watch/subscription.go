// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

package watch

import "time"

// Subscriber is an entity that can watch nicknames. Implementations
// embed a SubscriberState and hand out a pointer to it; the registry
// threads the personal subscription list through that state.
type Subscriber interface {
	WatchState() *SubscriberState
}

// SubscriberState is the subscriber side of the watch machinery: the
// head of the personal subscription list plus its tracked length.
// The zero value is ready to use.
type SubscriberState struct {
	head  *Subscription
	count int
}

// Count returns the number of nicknames this subscriber watches.
func (s *SubscriberState) Count() int {
	return s.count
}

// Empty reports whether the subscriber watches nothing.
func (s *SubscriberState) Empty() bool {
	return s.head == nil
}

// Nicks returns the watched nicknames, most recently added first.
func (s *SubscriberState) Nicks() []string {
	var nicks []string
	for sp := s.head; sp != nil; sp = sp.nextPersonal {
		nicks = append(nicks, sp.header.nick)
	}
	return nicks
}

// Subscription is one edge between a watched nickname's header and a
// subscriber. The same record is threaded through two singly-linked
// lists: the header's subscriber list and the subscriber's personal
// list. Every removal path must detach it from both at once.
type Subscription struct {
	subscriber Subscriber
	header     *Header
	awayNotify bool

	nextInHeader *Subscription
	nextPersonal *Subscription
}

// Header exists for each nickname at least one subscriber watches, and
// only while that holds: the last unsubscribe removes it from the
// table. It records when the nickname's presence last changed.
type Header struct {
	nick        string
	lastChanged time.Time
	subs        *Subscription

	hashNext *Header
}

// Nick returns the watched nickname as first subscribed.
func (h *Header) Nick() string {
	return h.nick
}

// LastChanged returns the time of the last presence change notified for
// this nickname.
func (h *Header) LastChanged() time.Time {
	return h.lastChanged
}
