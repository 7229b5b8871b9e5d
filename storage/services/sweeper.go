// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"sync"
	"time"

	"github.com/lumen-chat/lumen/internal/pkg/log"
)

// Sweeper periodically runs the expiry sweep. When a sweep reports more work
// remaining it is re-run after a short backoff instead of waiting a full
// interval, so backlogs drain promptly.
type Sweeper struct {
	sweep    *SweepService
	opts     SweepOptions
	interval time.Duration

	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSweeper creates a periodic sweep runner
func NewSweeper(sweep *SweepService, opts SweepOptions, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Sweeper{
		sweep:    sweep,
		opts:     opts,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background sweep loop
func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()

	log.Info("expiry sweeper started: interval=%v batchSize=%d", s.interval, s.opts.BatchSize)
}

// Stop stops the background sweep loop and waits for it to finish
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	log.Info("expiry sweeper stopped")
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Sweeper) runOnce() {
	for {
		result, err := s.sweep.SweepExpired(context.Background(), s.opts)
		if err != nil {
			log.Error("expiry sweep failed: %v", err)
			return
		}
		if result.DeletedCount > 0 || result.FailedCount > 0 {
			log.Info("expiry sweep: selected=%d deleted=%d failed=%d runtime=%v",
				result.SelectedCount, result.DeletedCount, result.FailedCount, result.Runtime)
		}
		if !result.HasMore {
			return
		}
		// Back off briefly between follow-up batches, bailing out on Stop.
		select {
		case <-time.After(time.Second):
		case <-s.stopChan:
			return
		}
	}
}
