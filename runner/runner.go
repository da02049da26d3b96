//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

// Package runner executes test suites against the chatbot service. It fans
// test cases out across independent conversation identities, keeps each
// identity's init, ask, reset sequence strictly ordered, and funnels every
// completed response through the evaluator into an append-only run record
// with incremental persistence. A failing test case never aborts the batch.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"trpc.group/trpc-go/finbot-eval/client"
	"trpc.group/trpc-go/finbot-eval/evalresult"
	"trpc.group/trpc-go/finbot-eval/evalset"
	"trpc.group/trpc-go/finbot-eval/evaluator"
	"trpc.group/trpc-go/finbot-eval/log"
)

// Conversation is the transport surface the runner drives. *client.Client
// implements it.
type Conversation interface {
	InitSession(ctx context.Context) (*client.SessionInfo, error)
	Ask(ctx context.Context, question string) (*client.Answer, error)
	ResetSession() error
}

// ClientFactory creates one independent conversation per worker identity.
type ClientFactory func() (Conversation, error)

// Runner executes suites and owns the result stores handed to it.
type Runner struct {
	opts *Options
	pool *evalPool
}

// New creates a runner. A suite manager, at least one result manager and a
// client factory are required.
func New(opts ...Option) (*Runner, error) {
	o := NewOptions(opts...)
	if o.SuiteManager == nil {
		return nil, errors.New("suite manager is nil")
	}
	if len(o.ResultManagers) == 0 {
		return nil, errors.New("at least one result manager is required")
	}
	if o.ClientFactory == nil {
		return nil, errors.New("client factory is nil")
	}
	if o.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", o.Concurrency)
	}
	r := &Runner{opts: o}
	if o.EvalParallelism > 0 {
		pool, err := newEvalPool(o.EvalParallelism)
		if err != nil {
			return nil, fmt.Errorf("create evaluation pool: %w", err)
		}
		r.pool = pool
	}
	return r, nil
}

// Close releases the evaluation pool and every result store.
func (r *Runner) Close() error {
	var merr *multierror.Error
	if r.pool != nil {
		r.pool.release()
	}
	for _, m := range r.opts.ResultManagers {
		if err := m.Close(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("close result store: %w", err))
		}
	}
	return merr.ErrorOrNil()
}

// Run executes one suite and returns the persisted run record. Transport
// failures are isolated per test case; Run itself only fails when the suite
// cannot be loaded, a worker cannot start its conversation, or the context
// is cancelled.
func (r *Runner) Run(ctx context.Context, suiteID string) (*evalresult.RunRecord, error) {
	suite, err := r.opts.SuiteManager.Get(ctx, suiteID)
	if err != nil {
		return nil, fmt.Errorf("load suite %s: %w", suiteID, err)
	}
	cases := evalset.Filter(suite.TestCases, r.opts.Feature, r.opts.Priority)
	if len(cases) == 0 {
		return nil, fmt.Errorf("suite %s has no matching test cases", suiteID)
	}

	eval := evaluator.New(r.opts.EvaluatorOptions...)
	start := time.Now()
	rec := &evalresult.RunRecord{
		Info: evalresult.RunInfo{
			RunID:       eval.RunID(),
			SuiteID:     suiteID,
			Environment: eval.Environment(),
			LLMModel:    eval.LLMModel(),
			Tester:      eval.Tester(),
			StartTime:   start,
		},
	}
	agg := newAggregator(rec, r.opts.ResultManagers)
	log.Infof("run %s: %d test cases across %d identities",
		rec.Info.RunID, len(cases), r.opts.Concurrency)

	workers := r.opts.Concurrency
	if workers > len(cases) {
		workers = len(cases)
	}
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		share := partition(cases, workers, w)
		g.Go(func() error {
			return r.runWorker(gctx, eval, agg, share)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if r.pool != nil {
		r.pool.wait()
	}

	rec = agg.finalize(ctx, start, time.Now())
	log.Infof("run %s: %d/%d passed", rec.Info.RunID, rec.Summary.Passed, rec.Summary.TotalTests)
	if r.opts.FailedExportDir != "" {
		if err := r.exportFailed(rec, cases); err != nil {
			log.Warnf("export failed tests: %v", err)
		}
	}
	return rec, nil
}

// runWorker drives one conversation identity through its share of cases in
// strict init, ask, reset order.
func (r *Runner) runWorker(ctx context.Context, eval *evaluator.Evaluator,
	agg *aggregator, cases []*evalset.TestCase) error {
	if len(cases) == 0 {
		return nil
	}
	conv, err := r.opts.ClientFactory()
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	for _, tc := range cases {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp := r.executeCase(ctx, conv, tc)
		r.evaluate(ctx, eval, agg, tc, resp)
	}
	return nil
}

// executeCase performs one init, ask, reset sequence. Transport errors
// become Response.Err so the evaluator records them instead of the runner
// dropping the case.
func (r *Runner) executeCase(ctx context.Context, conv Conversation,
	tc *evalset.TestCase) evaluator.Response {
	if _, err := conv.InitSession(ctx); err != nil {
		return evaluator.Response{Err: fmt.Sprintf("init session: %v", err)}
	}
	answer, err := conv.Ask(ctx, tc.UserMessage)
	if err != nil {
		resp := evaluator.Response{Err: err.Error()}
		if answer != nil {
			resp.LatencyMs = answer.LatencyMs
		}
		_ = conv.ResetSession()
		return resp
	}
	if err := conv.ResetSession(); err != nil {
		log.Warnf("reset session after %s: %v", tc.TestCaseID, err)
	}
	return evaluator.Response{
		Answer:     answer.Text,
		Parsed:     answer.Parsed,
		LatencyMs:  answer.LatencyMs,
		TokenUsage: answer.TokenUsage,
	}
}

func (r *Runner) evaluate(ctx context.Context, eval *evaluator.Evaluator,
	agg *aggregator, tc *evalset.TestCase, resp evaluator.Response) {
	if r.pool != nil {
		r.pool.submit(ctx, eval, agg, tc, resp)
		return
	}
	agg.append(ctx, *eval.Evaluate(tc, resp))
}

func (r *Runner) exportFailed(rec *evalresult.RunRecord, cases []*evalset.TestCase) error {
	report := evalresult.ExtractFailed(rec, cases, time.Now())
	if report == nil {
		return nil
	}
	if err := os.MkdirAll(r.opts.FailedExportDir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal failed report: %w", err)
	}
	name := fmt.Sprintf("failed_tests_%s.json", time.Now().Format("20060102_150405"))
	path := filepath.Join(r.opts.FailedExportDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write failed report: %w", err)
	}
	log.Infof("run %s: exported %d failed tests to %s",
		rec.Info.RunID, report.Summary.TotalFailed, path)
	return nil
}

// partition deals cases round-robin so every worker receives a similar mix
// of early and late suite entries.
func partition(cases []*evalset.TestCase, workers, worker int) []*evalset.TestCase {
	var out []*evalset.TestCase
	for i := worker; i < len(cases); i += workers {
		out = append(out, cases[i])
	}
	return out
}

// aggregator is the single shared mutable resource of a run: an append-only
// result list with incremental persistence. Appends are atomic per record;
// completion order, not submission order, decides the persisted order.
type aggregator struct {
	mu       sync.Mutex
	rec      *evalresult.RunRecord
	managers []evalresult.Manager
}

func newAggregator(rec *evalresult.RunRecord, managers []evalresult.Manager) *aggregator {
	return &aggregator{rec: rec, managers: managers}
}

func (a *aggregator) append(ctx context.Context, result evalresult.TestRunResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rec.Results = append(a.rec.Results, result)
	a.persistLocked(ctx)
}

// persistLocked saves the current snapshot so a crash loses at most the
// in-flight test case. Store failures are logged, not propagated: one slow
// mirror must not stall the run.
func (a *aggregator) persistLocked(ctx context.Context) {
	for _, m := range a.managers {
		if err := m.Save(ctx, a.rec); err != nil {
			log.Warnf("persist run %s: %v", a.rec.Info.RunID, err)
		}
	}
}

func (a *aggregator) finalize(ctx context.Context, start, end time.Time) *evalresult.RunRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rec.Info.EndTime = end
	a.rec.Summary = evalresult.Summarize(a.rec.Results, start, end)
	a.persistLocked(ctx)
	return a.rec
}
