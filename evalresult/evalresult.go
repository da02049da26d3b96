//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

// Package evalresult defines evaluation result records and the storage
// interface for persisting them across runs.
package evalresult

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/finbot-eval/status"
	"trpc.group/trpc-go/finbot-eval/transaction"
)

// TokenUsage holds estimated token counts for one exchange.
type TokenUsage struct {
	Prompt     int `json:"prompt_tokens"`
	Completion int `json:"completion_tokens"`
	Total      int `json:"total_tokens"`
}

// TestRunResult is the evaluation outcome of one test case execution.
type TestRunResult struct {
	TestRunID         string                      `json:"Test_Run_ID"`
	TestCaseID        string                      `json:"Test_Case_ID"`
	Date              string                      `json:"Date"`
	Tester            string                      `json:"Tester"`
	Environment       string                      `json:"Environment"`
	LLMModel          string                      `json:"LLM_Model"`
	ActualBotResponse string                      `json:"Actual_Bot_Response"`
	ActualParsed      *transaction.Record         `json:"Actual_Parsed_Transaction,omitempty"`
	Verdict           status.Verdict              `json:"Pass_Fail"`
	IssuesFound       bool                        `json:"Issues_Found"`
	MeasuredLatencyMs int                         `json:"Measured_Latency_ms"`
	MeasuredCostVND   float64                     `json:"Measured_Cost_VND"`
	TokenUsage        *TokenUsage                 `json:"Token_Usage,omitempty"`
	AccuracyPercent   float64                     `json:"Accuracy_Score_percent"`
	Security          status.SecurityObservation  `json:"Security_Observation"`
	Stability         status.StabilityObservation `json:"Stability_Observation"`
	Notes             string                      `json:"Notes"`
	PrinciplesCheck   map[string]bool             `json:"CLASS_Principles_Check,omitempty"`
	OWASPCheck        map[string]string           `json:"OWASP_Check,omitempty"`
}

// RunInfo identifies one evaluation run.
type RunInfo struct {
	RunID       string    `json:"Run_ID"`
	SuiteID     string    `json:"Suite_ID"`
	Environment string    `json:"Environment"`
	LLMModel    string    `json:"LLM_Model"`
	Tester      string    `json:"Tester"`
	StartTime   time.Time `json:"Start_Time"`
	EndTime     time.Time `json:"End_Time"`
}

// RunSummary aggregates the results of one run.
type RunSummary struct {
	TotalTests      int     `json:"Total_Tests"`
	Passed          int     `json:"Passed"`
	Failed          int     `json:"Failed"`
	Partial         int     `json:"Partial"`
	Skipped         int     `json:"Skipped"`
	Errors          int     `json:"Errors"`
	PassRatePercent float64 `json:"Pass_Rate_Percent"`
	AvgLatencyMs    float64 `json:"Avg_Latency_ms"`
	TotalCostVND    float64 `json:"Total_Cost_VND"`
	AvgAccuracy     float64 `json:"Avg_Accuracy_Percent"`
	SecurityIssues  int     `json:"Security_Issues"`
	StabilityIssues int     `json:"Stability_Issues"`
	DurationSeconds float64 `json:"Duration_Seconds"`
}

// RunRecord is the persisted unit: one run's identity, summary and results.
type RunRecord struct {
	Info    RunInfo         `json:"Run_Info"`
	Summary RunSummary      `json:"Summary"`
	Results []TestRunResult `json:"Results"`
}

// Manager persists and retrieves run records. A run may be saved repeatedly
// as it progresses; each Save replaces the stored record for that run ID.
type Manager interface {
	// Save stores or replaces the record keyed by rec.Info.RunID.
	Save(ctx context.Context, rec *RunRecord) error
	// Get returns the record for the run ID, or an error when not found.
	Get(ctx context.Context, runID string) (*RunRecord, error)
	// List returns all stored run IDs, most recent first.
	List(ctx context.Context) ([]string, error)
	// Close releases any underlying resources.
	Close() error
}

// NewRunID returns a fresh run identifier such as RUN_20250301_153012_a1b2c3.
func NewRunID(now time.Time) string {
	suffix := uuid.NewString()
	suffix = suffix[:6]
	return fmt.Sprintf("RUN_%s_%s", now.Format("20060102_150405"), suffix)
}

// Summarize folds results into a run summary. Average accuracy is computed
// over positive scores only, so transport errors do not drag the mean down.
func Summarize(results []TestRunResult, start, end time.Time) RunSummary {
	s := RunSummary{TotalTests: len(results)}
	var latencySum, accuracySum float64
	accuracyCount := 0
	for _, r := range results {
		switch r.Verdict {
		case status.VerdictPass:
			s.Passed++
		case status.VerdictFail:
			s.Failed++
		case status.VerdictPartial:
			s.Partial++
		case status.VerdictSkip:
			s.Skipped++
		case status.VerdictError:
			s.Errors++
		}
		latencySum += float64(r.MeasuredLatencyMs)
		s.TotalCostVND += r.MeasuredCostVND
		if r.AccuracyPercent > 0 {
			accuracySum += r.AccuracyPercent
			accuracyCount++
		}
		if r.Security != status.SecurityOK {
			s.SecurityIssues++
		}
		if r.Stability != status.StabilityOK {
			s.StabilityIssues++
		}
	}
	if s.TotalTests > 0 {
		s.PassRatePercent = float64(s.Passed) / float64(s.TotalTests) * 100.0
		s.AvgLatencyMs = latencySum / float64(s.TotalTests)
	}
	if accuracyCount > 0 {
		s.AvgAccuracy = accuracySum / float64(accuracyCount)
	}
	if !start.IsZero() && !end.IsZero() {
		s.DurationSeconds = end.Sub(start).Seconds()
	}
	return s
}
