// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

//go:build integration

package integration

import (
	"context"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/relaymesh/relaycore/internal/ident"
	"github.com/relaymesh/relaycore/internal/observability"
	"github.com/relaymesh/relaycore/internal/throttle"
	"github.com/relaymesh/relaycore/internal/watch"
)

var _ = Describe("observability surface", func() {
	var server *observability.Server

	BeforeEach(func() {
		server = observability.NewServer("127.0.0.1:0", func() bool { return true })
		_, err := server.Start()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(server.Stop(ctx)).To(Succeed())
	})

	scrape := func(path string) (int, string) {
		resp, err := http.Get("http://" + server.Addr() + path)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode, string(body)
	}

	It("exports core metrics as traffic flows", func() {
		watches, err := watch.NewRegistryWithMetrics(64, nopNotifier{}, nil, server.Registry())
		Expect(err).NotTo(HaveOccurred())
		store, err := throttle.NewStoreWithMetrics(throttle.Config{
			Period:  time.Minute,
			Limit:   3,
			Buckets: 64,
		}, nil, nil, server.Registry())
		Expect(err).NotTo(HaveOccurred())

		dan := ident.NewClient("Dan", ident.KindUser)
		watches.Subscribe("erin", dan, false)
		watches.Notify(watch.Event{Kind: watch.EventOnline, Nick: "erin"})

		Expect(store.RecordAttempt("203.0.113.1")).To(Equal(throttle.AllowFirst))
		store.CreateBucket("203.0.113.1")

		code, body := scrape("/metrics")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("relaycore_watch_headers 1"))
		Expect(body).To(ContainSubstring(`relaycore_watch_notifications_total{kind="online"} 1`))
		Expect(body).To(ContainSubstring("relaycore_throttle_buckets 1"))
		Expect(body).To(ContainSubstring(`relaycore_throttle_decisions_total{decision="allow-first"} 1`))
	})

	It("answers health probes", func() {
		code, body := scrape("/healthz/liveness")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(Equal("ok\n"))

		code, body = scrape("/healthz/readiness")
		Expect(code).To(Equal(http.StatusOK))
		Expect(body).To(Equal("ok\n"))
	})
})

type nopNotifier struct{}

func (nopNotifier) Notify(watch.Subscriber, watch.Event) {}
