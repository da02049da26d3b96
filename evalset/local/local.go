//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

// Package local provides a local file implementation of evalset.Manager.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"trpc.group/trpc-go/finbot-eval/evalset"
)

// manager implements evalset.Manager backed by the local filesystem.
type manager struct {
	mu        sync.RWMutex
	baseDir   string
	extension string
}

// New creates a local file suite manager.
func New(opt ...evalset.Option) evalset.Manager {
	opts := evalset.NewOptions(opt...)
	return &manager{
		baseDir:   opts.BaseDir,
		extension: opts.Extension,
	}
}

// Get returns the Suite identified by suiteID.
func (m *manager) Get(_ context.Context, suiteID string) (*evalset.Suite, error) {
	if suiteID == "" {
		return nil, errors.New("suite id is empty")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	suite, err := LoadFile(filepath.Join(m.baseDir, suiteID+m.extension))
	if err != nil {
		return nil, fmt.Errorf("load suite %s: %w", suiteID, err)
	}
	if suite.Name == "" {
		suite.Name = suiteID
	}
	return suite, nil
}

// List returns the identifiers of all suites under the base directory.
func (m *manager) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read suite dir %s: %w", m.baseDir, err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, m.extension) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, m.extension))
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadFile loads a suite from an explicit file path. Cases missing a
// Test_Case_ID are rejected so results always reference a stable identifier.
func LoadFile(path string) (*evalset.Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var suite evalset.Suite
	if err := json.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("decode suite file %s: %w", path, err)
	}
	for i, tc := range suite.TestCases {
		if tc == nil {
			return nil, fmt.Errorf("suite file %s: test case %d is null", path, i)
		}
		if tc.TestCaseID == "" {
			return nil, fmt.Errorf("suite file %s: test case %d has no Test_Case_ID", path, i)
		}
	}
	return &suite, nil
}
