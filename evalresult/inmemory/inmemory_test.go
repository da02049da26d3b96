//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/finbot-eval/evalresult"
	"trpc.group/trpc-go/finbot-eval/status"
)

func sampleRecord(runID string) *evalresult.RunRecord {
	return &evalresult.RunRecord{
		Info: evalresult.RunInfo{RunID: runID, SuiteID: "smoke"},
		Results: []evalresult.TestRunResult{
			{TestCaseID: "TC_001", Verdict: status.VerdictPass},
		},
	}
}

func TestSaveGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New()
	defer store.Close()

	rec := sampleRecord("RUN_20250301_120000_aaaaaa")
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, rec.Info.RunID)
	require.NoError(t, err)
	assert.Equal(t, rec.Info, got.Info)
	require.Len(t, got.Results, 1)
	assert.Equal(t, status.VerdictPass, got.Results[0].Verdict)
}

func TestSaveIsolatesCaller(t *testing.T) {
	ctx := context.Background()
	store := New()
	rec := sampleRecord("RUN_20250301_120000_bbbbbb")
	require.NoError(t, store.Save(ctx, rec))

	rec.Results[0].Verdict = status.VerdictFail
	got, err := store.Get(ctx, rec.Info.RunID)
	require.NoError(t, err)
	assert.Equal(t, status.VerdictPass, got.Results[0].Verdict)
}

func TestSaveReplacesRun(t *testing.T) {
	ctx := context.Background()
	store := New()
	rec := sampleRecord("RUN_20250301_120000_cccccc")
	require.NoError(t, store.Save(ctx, rec))

	rec.Results = append(rec.Results, evalresult.TestRunResult{
		TestCaseID: "TC_002", Verdict: status.VerdictFail,
	})
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, rec.Info.RunID)
	require.NoError(t, err)
	assert.Len(t, got.Results, 2)
}

func TestListMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	store := New()
	require.NoError(t, store.Save(ctx, sampleRecord("RUN_20250301_100000_aaaaaa")))
	require.NoError(t, store.Save(ctx, sampleRecord("RUN_20250301_110000_aaaaaa")))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"RUN_20250301_110000_aaaaaa",
		"RUN_20250301_100000_aaaaaa",
	}, ids)
}

func TestGetUnknownRun(t *testing.T) {
	store := New()
	_, err := store.Get(context.Background(), "RUN_missing")
	assert.Error(t, err)
}

func TestSaveRequiresRunID(t *testing.T) {
	store := New()
	assert.Error(t, store.Save(context.Background(), &evalresult.RunRecord{}))
}
