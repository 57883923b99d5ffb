/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/arnavk-polka/gavin-ai/analyze"
)

// session is the mutable record behind a Snapshot. Only the session's own
// goroutine writes to snap while it runs.
type session struct {
	mu   sync.Mutex
	snap analyze.Snapshot

	cancel context.CancelCauseFunc
	done   chan struct{}
}

func (s *session) update(fn func(*analyze.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snap)
}

func (s *session) setStatus(st analyze.Status) {
	s.update(func(snap *analyze.Snapshot) {
		snap.Status = st
		snap.Progress.CurrentStep = st
	})
}

// finish moves the session to a terminal status.
func (s *session) finish(st analyze.Status, msg string) {
	s.update(func(snap *analyze.Snapshot) {
		if snap.Status.Terminal() {
			return
		}
		end := time.Now().UTC()
		snap.Status = st
		snap.Progress.CurrentStep = st
		snap.EndTime = &end
		snap.DurationSeconds = end.Sub(snap.StartTime).Seconds()
		snap.Error = msg
	})
}

func (s *session) coarse() *analyze.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Coarse()
}

func (s *session) full() *analyze.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

func (s *session) terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Status.Terminal()
}

func (s *session) id() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.ID
}

func (s *session) kind() analyze.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Kind
}

// stop cancels the session with cause and waits for its goroutine.
func (s *session) stop(cause error) {
	s.cancel(cause)
	<-s.done
}
