//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

package evaluator

// Options configures an Evaluator.
type Options struct {
	// Environment labels results, e.g. "Staging" or "Production".
	Environment string
	// LLMModel is the model under test, recorded on every result.
	LLMModel string
	// Tester identifies the agent producing results.
	Tester string
	// LatencyWarningMs is the latency above which a warning is noted.
	LatencyWarningMs int
	// LatencyCriticalMs is the latency above which stability is Timeout.
	LatencyCriticalMs int
	// AccuracyPassThreshold is the pass fraction for the accuracy fallback.
	AccuracyPassThreshold float64
	// InputTokenRate is USD per 1K prompt tokens.
	InputTokenRate float64
	// OutputTokenRate is USD per 1K completion tokens.
	OutputTokenRate float64
	// USDToVNDRate converts the USD cost estimate to VND.
	USDToVNDRate float64
	// RunID stamps every result; generated when empty.
	RunID string
}

// Option updates evaluator options.
type Option func(*Options)

// NewOptions returns options with defaults applied, then the given overrides.
func NewOptions(opts ...Option) *Options {
	o := &Options{
		Environment:           "Staging",
		LLMModel:              "gpt-4o-mini",
		Tester:                "LLM_Test_Agent",
		LatencyWarningMs:      5000,
		LatencyCriticalMs:     8000,
		AccuracyPassThreshold: 0.8,
		InputTokenRate:        0.00015,
		OutputTokenRate:       0.0006,
		USDToVNDRate:          24500,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithEnvironment sets the environment label.
func WithEnvironment(env string) Option {
	return func(o *Options) { o.Environment = env }
}

// WithLLMModel sets the model label.
func WithLLMModel(model string) Option {
	return func(o *Options) { o.LLMModel = model }
}

// WithTester sets the tester label.
func WithTester(tester string) Option {
	return func(o *Options) { o.Tester = tester }
}

// WithLatencyThresholds sets the warning and critical latency thresholds.
func WithLatencyThresholds(warningMs, criticalMs int) Option {
	return func(o *Options) {
		o.LatencyWarningMs = warningMs
		o.LatencyCriticalMs = criticalMs
	}
}

// WithAccuracyPassThreshold sets the pass fraction for the accuracy fallback.
func WithAccuracyPassThreshold(threshold float64) Option {
	return func(o *Options) { o.AccuracyPassThreshold = threshold }
}

// WithCostRates sets the USD-per-1K-token rates and the USD to VND rate.
func WithCostRates(inputRate, outputRate, usdToVND float64) Option {
	return func(o *Options) {
		o.InputTokenRate = inputRate
		o.OutputTokenRate = outputRate
		o.USDToVNDRate = usdToVND
	}
}

// WithRunID stamps all results with the given run identifier.
func WithRunID(runID string) Option {
	return func(o *Options) { o.RunID = runID }
}
