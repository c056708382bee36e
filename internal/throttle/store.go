// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

// Package throttle implements connection-attempt admission control:
// per-address attempt counts over a rolling window, backed by a
// fixed-bucket keyed hash table that a periodic sweep keeps bounded.
package throttle

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/relaymesh/relaycore/internal/siphash"
)

// DefaultBuckets matches the production throttling-table sizing.
const DefaultBuckets = 8192

// fallbackWindow is the eviction window used by the sweep when
// throttling is configured off but stale buckets still linger.
const fallbackWindow = 15 * time.Second

// Config carries the read-only throttling parameters, injected at
// construction time.
type Config struct {
	// Period is the rolling window. Zero disables throttling.
	Period time.Duration
	// Limit is the attempt count above which connections are denied.
	// Zero disables throttling.
	Limit int
	// Buckets is the fixed table size. Defaults to DefaultBuckets.
	Buckets int
}

// Enabled reports whether the configuration throttles at all.
func (c Config) Enabled() bool {
	return c.Period > 0 && c.Limit > 0
}

// bucket tracks one source address. Doubly linked within its chain so
// the sweep can unlink in O(1).
type bucket struct {
	addr  string
	count int
	since time.Time

	next, prev *bucket
}

// Store is the throttling table. Unlike the identity tables it guards
// itself with a mutex: the sweep arrives from a scheduler goroutine,
// not from the caller's event loop.
type Store struct {
	mu     sync.Mutex
	key    siphash.Key
	chains []*bucket
	cfg    Config

	exceptions ExceptionList
	clock      func() time.Time

	live int

	decisions *prometheus.CounterVec
	liveGauge prometheus.Gauge
	evicted   prometheus.Counter
}

// NewStore builds a throttling store. exceptions may be nil (nothing is
// excepted); a nil src keys the table from crypto/rand.
func NewStore(cfg Config, exceptions ExceptionList, src siphash.RandomSource) (*Store, error) {
	return NewStoreWithMetrics(cfg, exceptions, src, nil)
}

// NewStoreWithMetrics additionally registers throttle metrics with reg.
func NewStoreWithMetrics(cfg Config, exceptions ExceptionList, src siphash.RandomSource, reg prometheus.Registerer) (*Store, error) {
	if cfg.Buckets == 0 {
		cfg.Buckets = DefaultBuckets
	}
	if cfg.Buckets < 0 || cfg.Period < 0 || cfg.Limit < 0 {
		return nil, oops.Code("BAD_THROTTLE_CONFIG").
			With("buckets", cfg.Buckets).
			With("period", cfg.Period).
			With("limit", cfg.Limit).
			Errorf("throttle parameters must not be negative")
	}

	s := &Store{
		key:        siphash.GenerateKey(src),
		chains:     make([]*bucket, cfg.Buckets),
		cfg:        cfg,
		exceptions: exceptions,
		clock:      time.Now,
	}

	if reg != nil {
		s.decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relaycore_throttle_decisions_total",
			Help: "Connection admission decisions, by outcome",
		}, []string{"decision"})
		s.liveGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relaycore_throttle_buckets",
			Help: "Source addresses currently tracked by the throttle",
		})
		s.evicted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relaycore_throttle_evictions_total",
			Help: "Throttle buckets evicted by the sweep",
		})
		reg.MustRegister(s.decisions, s.liveGauge, s.evicted)
	}

	return s, nil
}

// SetClock overrides the store's time source. Tests use this to walk
// the window forward deterministically.
func (s *Store) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

func (s *Store) chain(addr string) uint64 {
	// Addresses are exact text, so the case-sensitive hash applies.
	return siphash.Sum64String(addr, s.key) % uint64(len(s.chains))
}

func (s *Store) find(addr string) *bucket {
	for b := s.chains[s.chain(addr)]; b != nil; b = b.next {
		if b.addr == addr {
			return b
		}
	}
	return nil
}

// RecordAttempt classifies a connection attempt from addr.
//
// AllowFirst means addr was untracked; the caller must follow up with
// CreateBucket once the connection is actually admitted. Excepted
// addresses are allowed without their count moving; every other
// tracked attempt increments the count whether admitted or denied, so
// the count keeps rising past the limit for as long as the flood runs.
func (s *Store) RecordAttempt(addr string) Decision {
	d := s.recordAttempt(addr)
	if s.decisions != nil {
		s.decisions.WithLabelValues(d.String()).Inc()
	}
	return d
}

func (s *Store) recordAttempt(addr string) Decision {
	if !s.cfg.Enabled() {
		return AllowUntracked
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.find(addr)
	if b == nil {
		return AllowFirst
	}
	if s.exceptions != nil && s.exceptions.IsExcepted(CategoryConnect, addr) {
		return AllowTracked
	}
	b.count++
	if b.count > s.cfg.Limit {
		return Deny
	}
	return AllowTracked
}

// CreateBucket starts tracking addr with one counted attempt. Call it
// only after RecordAttempt returned AllowFirst.
func (s *Store) CreateBucket(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.chain(addr)
	b := &bucket{addr: addr, count: 1, since: s.clock()}
	b.next = s.chains[idx]
	if b.next != nil {
		b.next.prev = b
	}
	s.chains[idx] = b
	s.live++
	if s.liveGauge != nil {
		s.liveGauge.Set(float64(s.live))
	}
}

// Sweep walks every chain and evicts buckets older than the window.
// Cost is proportional to live buckets, not to attempt rate, and
// running it again immediately is harmless.
func (s *Store) Sweep(now time.Time) {
	window := s.cfg.Period
	if window <= 0 {
		window = fallbackWindow
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, b := range s.chains {
		for b != nil {
			next := b.next
			if now.Sub(b.since) > window {
				s.unlink(i, b)
			}
			b = next
		}
	}
	if s.liveGauge != nil {
		s.liveGauge.Set(float64(s.live))
	}
}

func (s *Store) unlink(idx int, b *bucket) {
	if b.prev != nil {
		b.prev.next = b.next
	} else {
		s.chains[idx] = b.next
	}
	if b.next != nil {
		b.next.prev = b.prev
	}
	b.next = nil
	b.prev = nil
	s.live--
	if s.evicted != nil {
		s.evicted.Inc()
	}
}

// Count returns the attempt count currently recorded for addr, or
// zero when addr is untracked.
func (s *Store) Count(addr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b := s.find(addr); b != nil {
		return b.count
	}
	return 0
}

// Len returns the number of tracked addresses.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// SweepInterval returns how often the sweep should run: half the
// window, clamped between one and five seconds so a huge window cannot
// let the table grow unswept and a tiny one cannot spin the scheduler.
// With throttling disabled the sweep only has stale leftovers to clear
// and runs every two minutes.
func (s *Store) SweepInterval() time.Duration {
	if s.cfg.Period <= 0 {
		return 2 * time.Minute
	}
	v := s.cfg.Period / 2
	if v > 5*time.Second {
		v = 5 * time.Second
	}
	if v < time.Second {
		v = time.Second
	}
	return v
}
