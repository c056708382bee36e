// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

package ident

import (
	"github.com/samber/oops"

	"github.com/relaymesh/relaycore/internal/siphash"
)

// Default bucket counts, matching the long-standing production sizing.
const (
	DefaultClientBuckets  = 32768
	DefaultChannelBuckets = 16384
)

// Registry owns the client-by-name, client-by-id, and channel tables
// plus their hash keys. Construct one at startup and pass it around;
// there is no ambient global table state.
//
// The registry takes no locks: all mutations happen synchronously on
// the caller's event loop.
type Registry struct {
	clientKey  siphash.Key // shared by the name and id tables
	chanKey    siphash.Key
	historyKey siphash.Key // reserved for the name-history table

	clientTable []link
	idTable     []link
	chanTable   []*Channel

	clients  int
	ids      int
	channels int
}

// Stats is a point-in-time census of the registry, for metrics.
type Stats struct {
	Clients  int
	IDs      int
	Channels int
}

// NewRegistry builds a registry with fixed bucket counts. Bucket counts
// never change after construction; a nil src keys the tables from
// crypto/rand.
func NewRegistry(clientBuckets, channelBuckets int, src siphash.RandomSource) (*Registry, error) {
	if clientBuckets <= 0 || channelBuckets <= 0 {
		return nil, oops.Code("BAD_BUCKET_COUNT").
			With("client_buckets", clientBuckets).
			With("channel_buckets", channelBuckets).
			Errorf("bucket counts must be positive")
	}

	r := &Registry{
		clientKey:   siphash.GenerateKey(src),
		chanKey:     siphash.GenerateKey(src),
		historyKey:  siphash.GenerateKey(src),
		clientTable: make([]link, clientBuckets),
		idTable:     make([]link, clientBuckets),
		chanTable:   make([]*Channel, channelBuckets),
	}
	for i := range r.clientTable {
		r.clientTable[i].init()
	}
	for i := range r.idTable {
		r.idTable[i].init()
	}
	return r, nil
}

// HistoryKey returns the key reserved for the name-history table, which
// lives outside this registry but must not share collision structure
// with the live tables.
func (r *Registry) HistoryKey() siphash.Key {
	return r.historyKey
}

func (r *Registry) clientBucket(name string) uint64 {
	return siphash.Sum64Nocase(name, r.clientKey) % uint64(len(r.clientTable))
}

func (r *Registry) chanBucket(name string) uint64 {
	return siphash.Sum64Nocase(name, r.chanKey) % uint64(len(r.chanTable))
}

// AddClient links c into the name table under c.Name. No uniqueness
// check: inserting a name twice yields two independently findable
// entries, and keeping names unique is the caller's job.
func (r *Registry) AddClient(c *Client) {
	c.nameLink.owner = c
	r.clientTable[r.clientBucket(c.Name)].addFront(&c.nameLink)
	r.clients++
}

// RemoveClient unlinks c from the name table. Safe no-op when c is not
// linked; never rehashes, so it works after c.Name has changed.
func (r *Registry) RemoveClient(c *Client) {
	if !c.nameLink.linked() {
		return
	}
	c.nameLink.unlink()
	r.clients--
}

// AddClientID links c into the id table under c.ID.
func (r *Registry) AddClientID(c *Client) {
	c.idLink.owner = c
	r.idTable[r.clientBucket(c.ID)].addFront(&c.idLink)
	r.ids++
}

// RemoveClientID unlinks c from the id table. Safe no-op when unlinked.
func (r *Registry) RemoveClientID(c *Client) {
	if !c.idLink.linked() {
		return
	}
	c.idLink.unlink()
	r.ids--
}

// FindClientByName scans the name bucket for a case-insensitive match.
// Nil means not found; that is an ordinary outcome, not an error.
func (r *Registry) FindClientByName(name string) *Client {
	head := &r.clientTable[r.clientBucket(name)]
	for l := head.next; l != head; l = l.next {
		if siphash.EqualFold(name, l.owner.Name) {
			return l.owner
		}
	}
	return nil
}

// FindClientByID scans the id bucket for a case-insensitive match.
func (r *Registry) FindClientByID(id string) *Client {
	head := &r.idTable[r.clientBucket(id)]
	for l := head.next; l != head; l = l.next {
		if siphash.EqualFold(id, l.owner.ID) {
			return l.owner
		}
	}
	return nil
}

// AddChannel links ch into the channel table under ch.Name.
func (r *Registry) AddChannel(ch *Channel) {
	bucket := r.chanBucket(ch.Name)
	ch.hashNext = r.chanTable[bucket]
	ch.linked = true
	r.chanTable[bucket] = ch
	r.channels++
}

// RemoveChannel unlinks ch from the channel table, rescanning the chain
// for its predecessor. Safe no-op when ch is not linked.
func (r *Registry) RemoveChannel(ch *Channel) {
	if !ch.linked {
		return
	}
	bucket := r.chanBucket(ch.Name)
	var prev *Channel
	for cur := r.chanTable[bucket]; cur != nil; cur = cur.hashNext {
		if cur == ch {
			if prev != nil {
				prev.hashNext = cur.hashNext
			} else {
				r.chanTable[bucket] = cur.hashNext
			}
			ch.hashNext = nil
			ch.linked = false
			r.channels--
			return
		}
		prev = cur
	}
}

// FindChannel scans the channel bucket for a case-insensitive match.
func (r *Registry) FindChannel(name string) *Channel {
	for ch := r.chanTable[r.chanBucket(name)]; ch != nil; ch = ch.hashNext {
		if siphash.EqualFold(name, ch.Name) {
			return ch
		}
	}
	return nil
}

// ChannelBucket returns the head of channel chain i, or nil when i is
// out of range. Used for paginated channel listing.
func (r *Registry) ChannelBucket(i int) *Channel {
	if i < 0 || i >= len(r.chanTable) {
		return nil
	}
	return r.chanTable[i]
}

// NextInBucket returns the channel chained after ch, if any.
func (ch *Channel) NextInBucket() *Channel {
	return ch.hashNext
}

// Stats returns current entity counts.
func (r *Registry) Stats() Stats {
	return Stats{Clients: r.clients, IDs: r.ids, Channels: r.channels}
}
