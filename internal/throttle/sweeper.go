// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

package throttle

import (
	"log/slog"
	"sync"
	"time"
)

// Sweeper drives the store's periodic sweep from a background ticker.
// The store itself only supplies the callback body; scheduling lives
// here. Call Close to stop the goroutine.
type Sweeper struct {
	store    *Store
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// StartSweeper launches the sweep loop at the store's clamped interval.
func StartSweeper(store *Store) *Sweeper {
	s := &Sweeper{
		store:    store,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop(store.SweepInterval())
	return s
}

func (s *Sweeper) loop(interval time.Duration) {
	defer s.wg.Done()

	slog.Debug("throttle sweeper started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			s.store.Sweep(now)
		}
	}
}

// Close stops the sweep loop and waits for it to exit.
func (s *Sweeper) Close() {
	close(s.stopChan)
	s.wg.Wait()
}
