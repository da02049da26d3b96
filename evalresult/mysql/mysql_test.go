//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

package mysql

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/finbot-eval/evalresult"
	"trpc.group/trpc-go/finbot-eval/status"
)

func newMockStore(t *testing.T) (evalresult.Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	store, err := New(WithDB(db), WithSkipDBInit())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mock
}

func sampleRecord() *evalresult.RunRecord {
	return &evalresult.RunRecord{
		Info: evalresult.RunInfo{
			RunID:       "RUN_20250301_120000_aaaaaa",
			SuiteID:     "smoke",
			Environment: "Staging",
			StartTime:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Summary: evalresult.RunSummary{TotalTests: 1, Passed: 1, PassRatePercent: 100},
		Results: []evalresult.TestRunResult{
			{TestCaseID: "TC_001", Verdict: status.VerdictPass},
		},
	}
}

func TestSaveUpserts(t *testing.T) {
	store, mock := newMockStore(t)
	rec := sampleRecord()

	mock.ExpectExec("INSERT INTO finbot_eval_runs").
		WithArgs(rec.Info.RunID, rec.Info.SuiteID, rec.Info.Environment,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Save(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRequiresRunID(t *testing.T) {
	store, _ := newMockStore(t)
	assert.Error(t, store.Save(context.Background(), &evalresult.RunRecord{}))
	assert.Error(t, store.Save(context.Background(), nil))
}

func TestGetRoundTrip(t *testing.T) {
	store, mock := newMockStore(t)
	rec := sampleRecord()

	infoPayload, err := json.Marshal(rec.Info)
	require.NoError(t, err)
	summaryPayload, err := json.Marshal(rec.Summary)
	require.NoError(t, err)
	resultsPayload, err := json.Marshal(rec.Results)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"run_info", "summary", "results"}).
		AddRow(infoPayload, summaryPayload, resultsPayload)
	mock.ExpectQuery("SELECT run_info, summary, results FROM finbot_eval_runs").
		WithArgs(rec.Info.RunID).
		WillReturnRows(rows)

	got, err := store.Get(context.Background(), rec.Info.RunID)
	require.NoError(t, err)
	assert.Equal(t, rec.Info.RunID, got.Info.RunID)
	assert.Equal(t, 1, got.Summary.Passed)
	require.Len(t, got.Results, 1)
	assert.Equal(t, status.VerdictPass, got.Results[0].Verdict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT run_info, summary, results FROM finbot_eval_runs").
		WithArgs("RUN_missing").
		WillReturnRows(sqlmock.NewRows([]string{"run_info", "summary", "results"}))

	_, err := store.Get(context.Background(), "RUN_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListOrdersByCreation(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"run_id"}).
		AddRow("RUN_20250301_110000_aaaaaa").
		AddRow("RUN_20250301_100000_aaaaaa")
	mock.ExpectQuery("SELECT run_id FROM finbot_eval_runs ORDER BY created_at DESC").
		WillReturnRows(rows)

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"RUN_20250301_110000_aaaaaa",
		"RUN_20250301_100000_aaaaaa",
	}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
