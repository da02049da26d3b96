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
	"trpc.group/trpc-go/finbot-eval/evalresult"
	"trpc.group/trpc-go/finbot-eval/evalset"
	"trpc.group/trpc-go/finbot-eval/evaluator"
)

// Options configures a Runner.
type Options struct {
	// SuiteManager loads test suites. Required.
	SuiteManager evalset.Manager
	// ResultManagers receive every incremental and final save. At least
	// one is required; extra managers mirror runs to other stores.
	ResultManagers []evalresult.Manager
	// ClientFactory creates one conversation per worker. Each call must
	// return an independent identity. Required.
	ClientFactory ClientFactory
	// Concurrency is the number of independent identities asking in
	// parallel. Test cases under one identity stay strictly sequential.
	Concurrency int
	// EvalParallelism sizes the evaluation worker pool; zero evaluates
	// inline on the asking workers.
	EvalParallelism int
	// FailedExportDir, when set, receives a failed_tests_<ts>.json file
	// after runs with non-passing results.
	FailedExportDir string
	// EvaluatorOptions configure verdict thresholds and labels per run.
	EvaluatorOptions []evaluator.Option
	// Feature and Priority filter the loaded suite before running.
	Feature  string
	Priority string
}

// Option updates runner options.
type Option func(*Options)

// NewOptions returns options with defaults applied, then the given overrides.
func NewOptions(opts ...Option) *Options {
	o := &Options{Concurrency: 1}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithSuiteManager sets the test-suite source.
func WithSuiteManager(m evalset.Manager) Option {
	return func(o *Options) { o.SuiteManager = m }
}

// WithResultManagers sets the stores that receive run records.
func WithResultManagers(ms ...evalresult.Manager) Option {
	return func(o *Options) { o.ResultManagers = ms }
}

// WithClientFactory sets the conversation factory.
func WithClientFactory(f ClientFactory) Option {
	return func(o *Options) { o.ClientFactory = f }
}

// WithConcurrency sets how many identities converse in parallel.
func WithConcurrency(n int) Option {
	return func(o *Options) { o.Concurrency = n }
}

// WithEvalParallelism enables pooled evaluation with the given worker count.
func WithEvalParallelism(n int) Option {
	return func(o *Options) { o.EvalParallelism = n }
}

// WithFailedExportDir enables the failed-test export into the directory.
func WithFailedExportDir(dir string) Option {
	return func(o *Options) { o.FailedExportDir = dir }
}

// WithEvaluatorOptions forwards options to the per-run evaluator.
func WithEvaluatorOptions(opts ...evaluator.Option) Option {
	return func(o *Options) { o.EvaluatorOptions = append(o.EvaluatorOptions, opts...) }
}

// WithFilter restricts the run to matching feature area and priority;
// empty values match everything.
func WithFilter(feature, priority string) Option {
	return func(o *Options) {
		o.Feature = feature
		o.Priority = priority
	}
}
