//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/finbot-eval/client"
	"trpc.group/trpc-go/finbot-eval/evalresult"
	"trpc.group/trpc-go/finbot-eval/evalresult/inmemory"
	"trpc.group/trpc-go/finbot-eval/evalset"
	"trpc.group/trpc-go/finbot-eval/evaluator"
	"trpc.group/trpc-go/finbot-eval/status"
	"trpc.group/trpc-go/finbot-eval/transaction"
)

// scriptedAnswer maps one user message to its canned transport outcome.
type scriptedAnswer struct {
	answer  *client.Answer
	askErr  error
	initErr error
}

// fakeConversation replays scripted answers and records call ordering so
// tests can assert the init, ask, reset discipline.
type fakeConversation struct {
	mu      sync.Mutex
	script  map[string]scriptedAnswer
	calls   []string
	inits   int
	resets  int
	pending bool
}

func (f *fakeConversation) InitSession(ctx context.Context) (*client.SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	f.calls = append(f.calls, "init")
	if f.pending {
		return nil, errors.New("init before reset")
	}
	f.pending = true
	return &client.SessionInfo{OwnerID: "guest-1", OwnerType: "guest"}, nil
}

func (f *fakeConversation) Ask(ctx context.Context, question string) (*client.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "ask")
	s, ok := f.script[question]
	if !ok {
		return nil, errors.New("unscripted question: " + question)
	}
	if s.askErr != nil {
		return s.answer, s.askErr
	}
	return s.answer, nil
}

func (f *fakeConversation) ResetSession() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.calls = append(f.calls, "reset")
	f.pending = false
	return nil
}

type fakeSuiteManager struct {
	suites map[string]*evalset.Suite
}

func (m *fakeSuiteManager) Get(ctx context.Context, suiteID string) (*evalset.Suite, error) {
	s, ok := m.suites[suiteID]
	if !ok {
		return nil, errors.New("suite not found: " + suiteID)
	}
	return s, nil
}

func (m *fakeSuiteManager) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.suites))
	for id := range m.suites {
		ids = append(ids, id)
	}
	return ids, nil
}

func expenseCase(id, message string) *evalset.TestCase {
	return &evalset.TestCase{
		TestCaseID:  id,
		FeatureArea: "Expense",
		Priority:    "High",
		UserMessage: message,
		ExpectedTransaction: &transaction.Record{
			TransactionType:   transaction.String("expense"),
			Amount:            transaction.Float(50000),
			TransactionsCount: transaction.Int(1),
		},
	}
}

func passingAnswer() *client.Answer {
	return &client.Answer{
		Text: `{"transactions": [{"transaction_type": "expense", "amount": 50000}]}`,
		Parsed: &transaction.Record{
			TransactionType:   transaction.String("expense"),
			Amount:            transaction.Float(50000),
			TransactionsCount: transaction.Int(1),
		},
		LatencyMs: 1200,
	}
}

func newTestRunner(t *testing.T, suite *evalset.Suite, conv *fakeConversation, opts ...Option) (*Runner, evalresult.Manager) {
	t.Helper()
	store := inmemory.New()
	base := []Option{
		WithSuiteManager(&fakeSuiteManager{suites: map[string]*evalset.Suite{"smoke": suite}}),
		WithResultManagers(store),
		WithClientFactory(func() (Conversation, error) { return conv, nil }),
		WithEvaluatorOptions(evaluator.WithRunID("RUN_TEST")),
	}
	r, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return r, store
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New()
	assert.ErrorContains(t, err, "suite manager")

	_, err = New(WithSuiteManager(&fakeSuiteManager{}))
	assert.ErrorContains(t, err, "result manager")

	_, err = New(
		WithSuiteManager(&fakeSuiteManager{}),
		WithResultManagers(inmemory.New()),
	)
	assert.ErrorContains(t, err, "client factory")

	_, err = New(
		WithSuiteManager(&fakeSuiteManager{}),
		WithResultManagers(inmemory.New()),
		WithClientFactory(func() (Conversation, error) { return &fakeConversation{}, nil }),
		WithConcurrency(0),
	)
	assert.ErrorContains(t, err, "concurrency")
}

func TestRunAllPass(t *testing.T) {
	suite := &evalset.Suite{TestCases: []*evalset.TestCase{
		expenseCase("TC_001", "ăn sáng 50k"),
		expenseCase("TC_002", "ăn trưa 50k"),
	}}
	conv := &fakeConversation{script: map[string]scriptedAnswer{
		"ăn sáng 50k": {answer: passingAnswer()},
		"ăn trưa 50k": {answer: passingAnswer()},
	}}
	r, store := newTestRunner(t, suite, conv)
	defer r.Close()

	rec, err := r.Run(context.Background(), "smoke")
	require.NoError(t, err)
	assert.Equal(t, "RUN_TEST", rec.Info.RunID)
	assert.Equal(t, "smoke", rec.Info.SuiteID)
	assert.Equal(t, "Staging", rec.Info.Environment)
	assert.Len(t, rec.Results, 2)
	assert.Equal(t, 2, rec.Summary.Passed)
	assert.InDelta(t, 100.0, rec.Summary.PassRatePercent, 0.001)
	assert.False(t, rec.Info.EndTime.IsZero())

	// every case runs init, ask, reset before the next starts
	assert.Equal(t, []string{"init", "ask", "reset", "init", "ask", "reset"}, conv.calls)

	stored, err := store.Get(context.Background(), "RUN_TEST")
	require.NoError(t, err)
	assert.Equal(t, rec.Summary, stored.Summary)
}

func TestRunIsolatesTransportErrors(t *testing.T) {
	suite := &evalset.Suite{TestCases: []*evalset.TestCase{
		expenseCase("TC_OK", "ăn sáng 50k"),
		expenseCase("TC_TIMEOUT", "câu hỏi chậm"),
		expenseCase("TC_OK_2", "ăn trưa 50k"),
	}}
	conv := &fakeConversation{script: map[string]scriptedAnswer{
		"ăn sáng 50k": {answer: passingAnswer()},
		"câu hỏi chậm": {
			answer: &client.Answer{LatencyMs: 30000},
			askErr: errors.New("request timeout after 30000ms"),
		},
		"ăn trưa 50k": {answer: passingAnswer()},
	}}
	r, _ := newTestRunner(t, suite, conv)
	defer r.Close()

	rec, err := r.Run(context.Background(), "smoke")
	require.NoError(t, err)
	assert.Len(t, rec.Results, 3)
	assert.Equal(t, 2, rec.Summary.Passed)
	assert.Equal(t, 1, rec.Summary.Errors)

	byID := map[string]evalresult.TestRunResult{}
	for _, res := range rec.Results {
		byID[res.TestCaseID] = res
	}
	failed := byID["TC_TIMEOUT"]
	assert.Equal(t, status.VerdictError, failed.Verdict)
	assert.Equal(t, status.StabilityTimeout, failed.Stability)
	assert.Equal(t, 30000, failed.MeasuredLatencyMs)
	// the conversation is still reset so the next case starts clean
	assert.Equal(t, 3, conv.resets)
}

func TestRunFilterByFeature(t *testing.T) {
	income := expenseCase("TC_INC", "nhận lương 10 triệu")
	income.FeatureArea = "Income"
	suite := &evalset.Suite{TestCases: []*evalset.TestCase{
		expenseCase("TC_EXP", "ăn sáng 50k"),
		income,
	}}
	conv := &fakeConversation{script: map[string]scriptedAnswer{
		"ăn sáng 50k": {answer: passingAnswer()},
	}}
	r, _ := newTestRunner(t, suite, conv, WithFilter("Expense", ""))
	defer r.Close()

	rec, err := r.Run(context.Background(), "smoke")
	require.NoError(t, err)
	require.Len(t, rec.Results, 1)
	assert.Equal(t, "TC_EXP", rec.Results[0].TestCaseID)
}

func TestRunNoMatchingCases(t *testing.T) {
	suite := &evalset.Suite{TestCases: []*evalset.TestCase{expenseCase("TC_EXP", "ăn sáng 50k")}}
	conv := &fakeConversation{script: map[string]scriptedAnswer{}}
	r, _ := newTestRunner(t, suite, conv, WithFilter("Savings", ""))
	defer r.Close()

	_, err := r.Run(context.Background(), "smoke")
	assert.ErrorContains(t, err, "no matching test cases")
}

func TestRunUnknownSuite(t *testing.T) {
	conv := &fakeConversation{}
	r, _ := newTestRunner(t, &evalset.Suite{TestCases: []*evalset.TestCase{expenseCase("TC", "x")}}, conv)
	defer r.Close()

	_, err := r.Run(context.Background(), "missing")
	assert.ErrorContains(t, err, "load suite missing")
}

func TestRunConcurrentIdentities(t *testing.T) {
	script := map[string]scriptedAnswer{}
	var cases []*evalset.TestCase
	for _, msg := range []string{"c1", "c2", "c3", "c4", "c5", "c6"} {
		cases = append(cases, expenseCase("TC_"+msg, msg))
		script[msg] = scriptedAnswer{answer: passingAnswer()}
	}
	var created atomic.Int32
	store := inmemory.New()
	r, err := New(
		WithSuiteManager(&fakeSuiteManager{suites: map[string]*evalset.Suite{"smoke": {TestCases: cases}}}),
		WithResultManagers(store),
		WithClientFactory(func() (Conversation, error) {
			created.Add(1)
			return &fakeConversation{script: script}, nil
		}),
		WithConcurrency(3),
		WithEvaluatorOptions(evaluator.WithRunID("RUN_CONC")),
	)
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.Run(context.Background(), "smoke")
	require.NoError(t, err)
	assert.Len(t, rec.Results, 6)
	assert.Equal(t, 6, rec.Summary.Passed)
	assert.Equal(t, int32(3), created.Load())
}

func TestRunWithEvalPool(t *testing.T) {
	script := map[string]scriptedAnswer{}
	var cases []*evalset.TestCase
	for _, msg := range []string{"p1", "p2", "p3", "p4"} {
		cases = append(cases, expenseCase("TC_"+msg, msg))
		script[msg] = scriptedAnswer{answer: passingAnswer()}
	}
	conv := &fakeConversation{script: script}
	r, _ := newTestRunner(t, &evalset.Suite{TestCases: cases}, conv, WithEvalParallelism(2))
	defer r.Close()

	rec, err := r.Run(context.Background(), "smoke")
	require.NoError(t, err)
	assert.Len(t, rec.Results, 4)
	assert.Equal(t, 4, rec.Summary.Passed)
}

func TestRunExportsFailedTests(t *testing.T) {
	dir := t.TempDir()
	suite := &evalset.Suite{TestCases: []*evalset.TestCase{
		expenseCase("TC_OK", "ăn sáng 50k"),
		expenseCase("TC_BAD", "ăn tối 70k"),
	}}
	conv := &fakeConversation{script: map[string]scriptedAnswer{
		"ăn sáng 50k": {answer: passingAnswer()},
		"ăn tối 70k":  {answer: &client.Answer{Text: "xin lỗi, tôi không hiểu", LatencyMs: 500}},
	}}
	r, _ := newTestRunner(t, suite, conv, WithFailedExportDir(dir))
	defer r.Close()

	_, err := r.Run(context.Background(), "smoke")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "failed_tests_")

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	var report evalresult.FailedReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 1, report.Summary.TotalFailed)
	require.Len(t, report.FailedTestCases, 1)
	assert.Equal(t, "TC_BAD", report.FailedTestCases[0].TestCaseID)
}

func TestRunSkipsExportWhenAllPass(t *testing.T) {
	dir := t.TempDir()
	suite := &evalset.Suite{TestCases: []*evalset.TestCase{expenseCase("TC_OK", "ăn sáng 50k")}}
	conv := &fakeConversation{script: map[string]scriptedAnswer{
		"ăn sáng 50k": {answer: passingAnswer()},
	}}
	r, _ := newTestRunner(t, suite, conv, WithFailedExportDir(dir))
	defer r.Close()

	_, err := r.Run(context.Background(), "smoke")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPartitionRoundRobin(t *testing.T) {
	cases := []*evalset.TestCase{
		{TestCaseID: "a"}, {TestCaseID: "b"}, {TestCaseID: "c"},
		{TestCaseID: "d"}, {TestCaseID: "e"},
	}
	first := partition(cases, 2, 0)
	second := partition(cases, 2, 1)
	require.Len(t, first, 3)
	require.Len(t, second, 2)
	assert.Equal(t, "a", first[0].TestCaseID)
	assert.Equal(t, "b", second[0].TestCaseID)
	assert.Empty(t, partition(nil, 2, 0))
}
