/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package store persists terminal session snapshots as JSON objects, one per
// session, keyed by session id.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/arnavk-polka/gavin-ai/analyze"
)

// ErrNotFound is returned by Get for an unknown session id.
var ErrNotFound = errors.New("snapshot not found")

// Key is the object name for a session id under prefix.
func Key(prefix, id string) string {
	return path.Join(prefix, id+".json")
}

func encode(snap *analyze.Snapshot) ([]byte, error) {
	if snap == nil || snap.ID == "" {
		return nil, errors.New("snapshot has no session id")
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot %s: %w", snap.ID, err)
	}
	return b, nil
}

func decode(id string, b []byte) (*analyze.Snapshot, error) {
	var snap analyze.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// Memory keeps encoded snapshots in process.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// Put stores snap, replacing any earlier snapshot of the same session.
func (m *Memory) Put(_ context.Context, snap *analyze.Snapshot) error {
	b, err := encode(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[snap.ID] = b
	return nil
}

// Get returns the stored snapshot for id.
func (m *Memory) Get(_ context.Context, id string) (*analyze.Snapshot, error) {
	m.mu.RLock()
	b, ok := m.objects[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return decode(id, b)
}

// Len reports how many sessions are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
