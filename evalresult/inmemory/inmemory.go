//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides a memory-backed result store, suitable for tests
// and one-shot runs that only need the final report.
package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"trpc.group/trpc-go/finbot-eval/evalresult"
)

type manager struct {
	mu   sync.RWMutex
	runs map[string]*evalresult.RunRecord
}

// New returns an empty in-memory result store.
func New() evalresult.Manager {
	return &manager{runs: make(map[string]*evalresult.RunRecord)}
}

// Save stores a deep copy of the record, so later mutations by the caller do
// not leak into the store.
func (m *manager) Save(_ context.Context, rec *evalresult.RunRecord) error {
	if rec == nil || rec.Info.RunID == "" {
		return fmt.Errorf("run record requires a run ID")
	}
	cloned, err := clone(rec)
	if err != nil {
		return fmt.Errorf("clone run record: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[rec.Info.RunID] = cloned
	return nil
}

func (m *manager) Get(_ context.Context, runID string) (*evalresult.RunRecord, error) {
	m.mu.RLock()
	rec, ok := m.runs[runID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("run %q not found", runID)
	}
	return clone(rec)
}

func (m *manager) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.runs))
	for id := range m.runs {
		ids = append(ids, id)
	}
	// Run IDs embed their creation timestamp, so reverse-lexical order is
	// most recent first.
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

func (m *manager) Close() error { return nil }

func clone(rec *evalresult.RunRecord) (*evalresult.RunRecord, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	out := &evalresult.RunRecord{}
	if err := json.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}
