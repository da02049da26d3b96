//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

// Package local provides a filesystem-backed result store. Each run is one
// JSON file named <runID>.run.json under the base directory.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"trpc.group/trpc-go/finbot-eval/evalresult"
)

const fileSuffix = ".run.json"

type manager struct {
	mu      sync.Mutex
	baseDir string
}

// Option configures the local result store.
type Option func(*manager)

// WithBaseDir sets the directory run files are written to. Default "results".
func WithBaseDir(dir string) Option {
	return func(m *manager) { m.baseDir = dir }
}

// New returns a filesystem result store, creating the base directory when
// needed.
func New(opts ...Option) (evalresult.Manager, error) {
	m := &manager{baseDir: "results"}
	for _, opt := range opts {
		opt(m)
	}
	if err := os.MkdirAll(m.baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir %s: %w", m.baseDir, err)
	}
	return m, nil
}

// Save writes the record atomically: marshal to a temp file, then rename over
// the destination. Re-saving the same run ID replaces the previous snapshot,
// which is how incremental persistence works during a run.
func (m *manager) Save(_ context.Context, rec *evalresult.RunRecord) error {
	if rec == nil || rec.Info.RunID == "" {
		return fmt.Errorf("run record requires a run ID")
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", rec.Info.RunID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	path := m.path(rec.Info.RunID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write run %s: %w", rec.Info.RunID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish run %s: %w", rec.Info.RunID, err)
	}
	return nil
}

func (m *manager) Get(_ context.Context, runID string) (*evalresult.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := os.ReadFile(m.path(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %q not found", runID)
		}
		return nil, fmt.Errorf("read run %s: %w", runID, err)
	}
	rec := &evalresult.RunRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return rec, nil
}

func (m *manager) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list results dir %s: %w", m.baseDir, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), fileSuffix))
	}
	// Run IDs embed their creation timestamp, so reverse-lexical order is
	// most recent first.
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

func (m *manager) Close() error { return nil }

func (m *manager) path(runID string) string {
	return filepath.Join(m.baseDir, runID+fileSuffix)
}
