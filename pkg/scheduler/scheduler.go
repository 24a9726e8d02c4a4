// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scheduler

import (
	"sync"
	"time"

	"github.com/tejzpr/armis/internal/logger"
)

// Job is the unit of work run on every tick
type Job func() error

// Scheduler runs a job periodically
type Scheduler struct {
	name     string
	interval time.Duration
	job      Job
	log      *logger.Logger
	stopChan chan struct{}
	done     chan struct{}
	once     sync.Once
	mu       sync.Mutex
	started  bool
}

// NewScheduler creates a new scheduler that runs job every interval
func NewScheduler(name string, interval time.Duration, job Job, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		job:      job,
		log:      log.With("component", "scheduler", "job", name),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the scheduler. Calling Start more than once has no effect.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		for {
			select {
			case <-ticker.C:
				s.RunOnce()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
	s.log.Info("scheduler started", "interval", s.interval.String())
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.stopChan)
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.done
		}
		s.log.Info("scheduler stopped")
	})
}

// RunOnce runs the job immediately on the caller's goroutine
func (s *Scheduler) RunOnce() {
	if err := s.job(); err != nil {
		s.log.Warn("scheduled job failed", "error", err)
	}
}
