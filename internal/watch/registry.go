// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

// Package watch implements the presence-subscription registry: who
// watches which nickname, and fan-out of presence and away transitions
// to the watchers.
package watch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/relaymesh/relaycore/internal/siphash"
)

// DefaultBuckets matches the production watch-table sizing.
const DefaultBuckets = 32768

// Rough per-record costs for the memory census, in bytes.
const (
	headerOverhead       = 64
	subscriptionOverhead = 48
)

// Stats is a census of the registry, for metrics and /STATS output.
type Stats struct {
	Headers       int
	Subscriptions int
	Memory        int // estimated bytes
}

// Registry maps watched nicknames to their subscriber lists through a
// fixed-bucket keyed hash table. Mutations are synchronous on the
// caller's event loop; the registry takes no locks.
type Registry struct {
	key      siphash.Key
	buckets  []*Header
	notifier Notifier
	clock    func() time.Time

	headers int
	subs    int

	headerGauge       prometheus.Gauge
	inconsistencies   prometheus.Counter
	notificationsSent *prometheus.CounterVec
}

// NewRegistry builds a watch registry. The notifier may be nil, in
// which case presence changes still update header timestamps but fan
// out nowhere (useful in tests and during startup).
func NewRegistry(bucketCount int, notifier Notifier, src siphash.RandomSource) (*Registry, error) {
	return NewRegistryWithMetrics(bucketCount, notifier, src, nil)
}

// NewRegistryWithMetrics additionally registers watch metrics with reg.
func NewRegistryWithMetrics(bucketCount int, notifier Notifier, src siphash.RandomSource, reg prometheus.Registerer) (*Registry, error) {
	if bucketCount <= 0 {
		return nil, oops.Code("BAD_BUCKET_COUNT").
			With("buckets", bucketCount).
			Errorf("watch bucket count must be positive")
	}

	r := &Registry{
		key:      siphash.GenerateKey(src),
		buckets:  make([]*Header, bucketCount),
		notifier: notifier,
		clock:    time.Now,
	}

	if reg != nil {
		r.headerGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relaycore_watch_headers",
			Help: "Number of nicknames currently watched by at least one subscriber",
		})
		r.inconsistencies = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relaycore_watch_inconsistencies_total",
			Help: "Subscription records found on one side of the watch linkage but not the other",
		})
		r.notificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relaycore_watch_notifications_total",
			Help: "Watch notifications delivered, by event kind",
		}, []string{"kind"})
		reg.MustRegister(r.headerGauge, r.inconsistencies, r.notificationsSent)
	}

	return r, nil
}

// SetClock overrides the registry's time source. Tests use this to pin
// header timestamps.
func (r *Registry) SetClock(clock func() time.Time) {
	r.clock = clock
}

func (r *Registry) bucket(nick string) uint64 {
	return siphash.Sum64Nocase(nick, r.key) % uint64(len(r.buckets))
}

// Lookup returns the header for nick, or nil when nobody watches it.
func (r *Registry) Lookup(nick string) *Header {
	for h := r.buckets[r.bucket(nick)]; h != nil; h = h.hashNext {
		if siphash.EqualFold(nick, h.nick) {
			return h
		}
	}
	return nil
}

// Subscribe adds sub to nick's watcher list, creating the header when
// nick gains its first watcher. Subscribing twice is a no-op: the
// original edge, including its away-notify flag, stays as it was.
func (r *Registry) Subscribe(nick string, sub Subscriber, awayNotify bool) {
	bucket := r.bucket(nick)

	var h *Header
	for h = r.buckets[bucket]; h != nil; h = h.hashNext {
		if siphash.EqualFold(nick, h.nick) {
			break
		}
	}
	if h == nil {
		h = &Header{nick: nick, lastChanged: r.clock()}
		h.hashNext = r.buckets[bucket]
		r.buckets[bucket] = h
		r.headers++
		if r.headerGauge != nil {
			r.headerGauge.Inc()
		}
	}

	for sp := h.subs; sp != nil; sp = sp.nextInHeader {
		if sp.subscriber == sub {
			return
		}
	}

	sp := &Subscription{
		subscriber: sub,
		header:     h,
		awayNotify: awayNotify,
	}
	sp.nextInHeader = h.subs
	h.subs = sp

	state := sub.WatchState()
	sp.nextPersonal = state.head
	state.head = sp
	state.count++
	r.subs++
}

// Unsubscribe removes sub from nick's watcher list, detaching the edge
// from both the header side and the personal side, and releases the
// header when its list empties. No-op when nick is unwatched or sub
// never subscribed.
func (r *Registry) Unsubscribe(nick string, sub Subscriber) {
	h := r.Lookup(nick)
	if h == nil {
		return
	}

	sp := r.detachFromHeader(h, sub)
	if sp == nil {
		return
	}

	state := sub.WatchState()
	var prev *Subscription
	for cur := state.head; cur != nil; cur = cur.nextPersonal {
		if cur == sp {
			if prev != nil {
				prev.nextPersonal = cur.nextPersonal
			} else {
				state.head = cur.nextPersonal
			}
			break
		}
		prev = cur
	}
	state.count--
	r.subs--

	if h.subs == nil {
		r.releaseHeader(h)
	}
}

// UnsubscribeAll drains sub's personal watch list on disconnect. A
// header that no longer references the subscriber is a linkage bug;
// it is reported to operators and the drain carries on — availability
// beats crashing on a bookkeeping error.
func (r *Registry) UnsubscribeAll(sub Subscriber) {
	state := sub.WatchState()

	for sp := state.head; sp != nil; {
		next := sp.nextPersonal
		h := sp.header

		if detached := r.detachFromHeader(h, sub); detached == nil {
			slog.Error("watch linkage error: personal entry missing from header list",
				"nick", h.nick,
			)
			if r.inconsistencies != nil {
				r.inconsistencies.Inc()
			}
		} else {
			r.subs--
			if h.subs == nil {
				r.releaseHeader(h)
			}
		}

		sp.nextPersonal = nil
		sp = next
	}

	state.head = nil
	state.count = 0
}

// detachFromHeader removes sub's edge from h's subscriber list and
// returns it, or nil when h does not reference sub.
func (r *Registry) detachFromHeader(h *Header, sub Subscriber) *Subscription {
	var prev *Subscription
	for sp := h.subs; sp != nil; sp = sp.nextInHeader {
		if sp.subscriber == sub {
			if prev != nil {
				prev.nextInHeader = sp.nextInHeader
			} else {
				h.subs = sp.nextInHeader
			}
			sp.nextInHeader = nil
			return sp
		}
		prev = sp
	}
	return nil
}

// releaseHeader unlinks h from its bucket chain. Called only once h's
// subscriber list is empty; a later subscribe allocates a fresh header.
func (r *Registry) releaseHeader(h *Header) {
	bucket := r.bucket(h.nick)
	var prev *Header
	for cur := r.buckets[bucket]; cur != nil; cur = cur.hashNext {
		if cur == h {
			if prev != nil {
				prev.hashNext = cur.hashNext
			} else {
				r.buckets[bucket] = cur.hashNext
			}
			h.hashNext = nil
			break
		}
		prev = cur
	}
	r.headers--
	if r.headerGauge != nil {
		r.headerGauge.Dec()
	}
}

// Notify fans ev out to everyone watching ev.Nick. The header's
// last-change timestamp advances on every call, watcher list or not.
// General presence kinds reach all subscribers; away kinds reach only
// subscribers that opted into away notifications.
func (r *Registry) Notify(ev Event) {
	h := r.Lookup(ev.Nick)
	if h == nil {
		return
	}

	h.lastChanged = r.clock()
	if !ev.Kind.awayKind() {
		ev.Seen = h.lastChanged
	}

	if r.notifier == nil {
		return
	}
	for sp := h.subs; sp != nil; sp = sp.nextInHeader {
		if ev.Kind.awayKind() && !sp.awayNotify {
			continue
		}
		r.notifier.Notify(sp.subscriber, ev)
		if r.notificationsSent != nil {
			r.notificationsSent.WithLabelValues(ev.Kind.String()).Inc()
		}
	}
}

// Stats returns the current header and subscription census with an
// estimated memory footprint.
func (r *Registry) Stats() Stats {
	mem := r.subs * subscriptionOverhead
	for _, h := range r.buckets {
		for ; h != nil; h = h.hashNext {
			mem += headerOverhead + len(h.nick)
		}
	}
	return Stats{Headers: r.headers, Subscriptions: r.subs, Memory: mem}
}
