// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

//go:build integration

package integration

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/relaymesh/relaycore/internal/ident"
	"github.com/relaymesh/relaycore/internal/throttle"
	"github.com/relaymesh/relaycore/internal/watch"
)

// capture records watch notifications for assertion.
type capture struct {
	mu     sync.Mutex
	events []delivered
}

type delivered struct {
	to string
	ev watch.Event
}

func (c *capture) Notify(sub watch.Subscriber, ev watch.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	to := ""
	if cl, ok := sub.(*ident.Client); ok {
		to = cl.Name
	}
	c.events = append(c.events, delivered{to: to, ev: ev})
}

func (c *capture) snapshot() []delivered {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]delivered, len(c.events))
	copy(out, c.events)
	return out
}

func (c *capture) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

var _ = Describe("client lifecycle", func() {
	var (
		idents   *ident.Registry
		watches  *watch.Registry
		admitted *capture
		now      time.Time
	)

	BeforeEach(func() {
		var err error
		idents, err = ident.NewRegistry(64, 64, nil)
		Expect(err).NotTo(HaveOccurred())

		admitted = &capture{}
		watches, err = watch.NewRegistry(64, admitted, nil)
		Expect(err).NotTo(HaveOccurred())

		now = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
		watches.SetClock(func() time.Time { return now })
	})

	It("runs registration, watch fan-out, rename, and disconnect end to end", func() {
		// Bob is online and watching for alice before she connects.
		bob := ident.NewClient("Bob", ident.KindUser)
		bob.ID = ident.NewClientID()
		idents.AddClient(bob)
		idents.AddClientID(bob)
		watches.Subscribe("alice", bob, true)

		// Alice registers.
		alice := ident.NewClient("Alice", ident.KindUser)
		alice.Username = "alice"
		alice.Host = "host.example.net"
		alice.ID = ident.NewClientID()
		idents.AddClient(alice)
		idents.AddClientID(alice)

		Expect(idents.FindClientByName("ALICE")).To(BeIdenticalTo(alice))
		Expect(idents.FindClientByID(alice.ID)).To(BeIdenticalTo(alice))

		// Registration fans out to her watcher.
		watches.Notify(watch.Event{
			Kind:     watch.EventOnline,
			Nick:     alice.Name,
			Username: alice.Username,
			Host:     alice.Host,
		})
		events := admitted.snapshot()
		Expect(events).To(HaveLen(1))
		Expect(events[0].to).To(Equal("Bob"))
		Expect(events[0].ev.Kind).To(Equal(watch.EventOnline))
		Expect(events[0].ev.Seen).To(Equal(now))

		// Alice goes away; bob asked for away notifications.
		admitted.reset()
		now = now.Add(time.Minute)
		watches.Notify(watch.Event{
			Kind:        watch.EventAway,
			Nick:        alice.Name,
			Seen:        now,
			AwayMessage: "lunch",
		})
		events = admitted.snapshot()
		Expect(events).To(HaveLen(1))
		Expect(events[0].ev.AwayMessage).To(Equal("lunch"))

		// Alice renames: old nick offline, new nick intact in the index.
		admitted.reset()
		idents.RemoveClient(alice)
		watches.Notify(watch.Event{Kind: watch.EventOffline, Nick: "Alice"})
		alice.Name = "Alicia"
		idents.AddClient(alice)

		Expect(idents.FindClientByName("alice")).To(BeNil())
		Expect(idents.FindClientByName("alicia")).To(BeIdenticalTo(alice))
		events = admitted.snapshot()
		Expect(events).To(HaveLen(1))
		Expect(events[0].ev.Kind).To(Equal(watch.EventOffline))

		// Bob disconnects; all his subscriptions drain.
		watches.UnsubscribeAll(bob)
		Expect(bob.WatchState().Count()).To(BeZero())
		Expect(watches.Lookup("alice")).To(BeNil())

		idents.RemoveClient(bob)
		idents.RemoveClientID(bob)
		idents.RemoveClient(alice)
		idents.RemoveClientID(alice)
		Expect(idents.Stats().Clients).To(BeZero())
		Expect(idents.Stats().IDs).To(BeZero())
	})

	It("resolves lookups by requester trust", func() {
		server := ident.NewClient("hub.example.net", ident.KindServer)
		idents.AddClient(server)

		carol := ident.NewClient("Carol", ident.KindUser)
		carol.ID = "001CAROLID"
		idents.AddClient(carol)
		idents.AddClientID(carol)

		// Server contexts may resolve by ID, user contexts may not.
		Expect(idents.FindClient("001CAROLID", server)).To(BeIdenticalTo(carol))
		Expect(idents.FindClient("001CAROLID", carol)).To(BeNil())
		Expect(idents.FindServer("HUB.example.NET")).To(BeIdenticalTo(server))
	})
})

var _ = Describe("connection admission", func() {
	var (
		store *throttle.Store
		now   time.Time
	)

	BeforeEach(func() {
		exceptions, err := throttle.NewMaskList(map[throttle.Category][]string{
			throttle.CategoryConnect: {"192.0.2.*"},
		})
		Expect(err).NotTo(HaveOccurred())

		store, err = throttle.NewStore(throttle.Config{
			Period:  time.Minute,
			Limit:   3,
			Buckets: 64,
		}, exceptions, nil)
		Expect(err).NotTo(HaveOccurred())

		now = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
		store.SetClock(func() time.Time { return now })
	})

	It("throttles a reconnect flood and recovers after the window", func() {
		const addr = "203.0.113.7"

		Expect(store.RecordAttempt(addr)).To(Equal(throttle.AllowFirst))
		store.CreateBucket(addr)

		Expect(store.RecordAttempt(addr)).To(Equal(throttle.AllowTracked))
		Expect(store.RecordAttempt(addr)).To(Equal(throttle.AllowTracked))
		Expect(store.RecordAttempt(addr)).To(Equal(throttle.Deny))
		Expect(store.RecordAttempt(addr)).To(Equal(throttle.Deny))

		// The window expires; the sweep frees the address again.
		now = now.Add(61 * time.Second)
		store.Sweep(now)
		Expect(store.Len()).To(BeZero())
		Expect(store.RecordAttempt(addr)).To(Equal(throttle.AllowFirst))
	})

	It("admits excepted addresses through a flood", func() {
		const addr = "192.0.2.9"

		Expect(store.RecordAttempt(addr)).To(Equal(throttle.AllowFirst))
		store.CreateBucket(addr)

		for i := 0; i < 10; i++ {
			Expect(store.RecordAttempt(addr).Allowed()).To(BeTrue())
		}
	})

	It("evicts in the background with a running sweeper", func() {
		fast, err := throttle.NewStore(throttle.Config{
			Period:  2 * time.Second,
			Limit:   3,
			Buckets: 64,
		}, nil, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(fast.RecordAttempt("198.51.100.4")).To(Equal(throttle.AllowFirst))
		fast.CreateBucket("198.51.100.4")

		sweeper := throttle.StartSweeper(fast)
		defer sweeper.Close()

		Eventually(fast.Len, 5*time.Second, 50*time.Millisecond).Should(BeZero())
	})
})
