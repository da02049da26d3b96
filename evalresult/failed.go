//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

package evalresult

import (
	"time"

	"trpc.group/trpc-go/finbot-eval/evalset"
	"trpc.group/trpc-go/finbot-eval/status"
)

// FailedRunInfo describes the run a failure report was extracted from.
type FailedRunInfo struct {
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
	LLMModel    string    `json:"llm_model"`
	TotalTests  int       `json:"total_tests"`
	FailedCount int       `json:"failed_count"`
	FailRate    float64   `json:"fail_rate"`
}

// FailedSummary groups failures for triage.
type FailedSummary struct {
	TotalFailed int            `json:"total_failed"`
	ByStatus    map[string]int `json:"by_status"`
	ByFeature   map[string]int `json:"by_feature"`
	ByPriority  map[string]int `json:"by_priority"`
}

// FailedReport is the exportable view of a run's non-passing results,
// bundled with the originating test cases so failures can be replayed.
type FailedReport struct {
	RunInfo         FailedRunInfo       `json:"run_info"`
	Summary         FailedSummary       `json:"summary"`
	FailedResults   []TestRunResult     `json:"failed_results"`
	FailedTestCases []*evalset.TestCase `json:"failed_test_cases"`
}

// ExtractFailed builds a failure report from a run record and the test cases
// it executed. Fail, Error and Partial verdicts all count as failures;
// returns nil when every result passed.
func ExtractFailed(rec *RunRecord, cases []*evalset.TestCase, now time.Time) *FailedReport {
	var failed []TestRunResult
	for _, r := range rec.Results {
		switch r.Verdict {
		case status.VerdictFail, status.VerdictError, status.VerdictPartial:
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 {
		return nil
	}

	caseByID := make(map[string]*evalset.TestCase, len(cases))
	for _, tc := range cases {
		caseByID[tc.TestCaseID] = tc
	}

	report := &FailedReport{
		RunInfo: FailedRunInfo{
			Timestamp:   now,
			Environment: rec.Info.Environment,
			LLMModel:    rec.Info.LLMModel,
			TotalTests:  rec.Summary.TotalTests,
			FailedCount: len(failed),
		},
		Summary: FailedSummary{
			TotalFailed: len(failed),
			ByStatus:    make(map[string]int),
			ByFeature:   make(map[string]int),
			ByPriority:  make(map[string]int),
		},
		FailedResults: failed,
	}
	if rec.Summary.TotalTests > 0 {
		report.RunInfo.FailRate = float64(len(failed)) / float64(rec.Summary.TotalTests) * 100.0
	}

	seen := make(map[string]bool)
	for _, r := range failed {
		report.Summary.ByStatus[r.Verdict.String()]++
		feature, priority := "Unknown", "Unknown"
		tc, ok := caseByID[r.TestCaseID]
		if ok {
			if tc.FeatureArea != "" {
				feature = tc.FeatureArea
			}
			if tc.Priority != "" {
				priority = tc.Priority
			}
			if !seen[tc.TestCaseID] {
				seen[tc.TestCaseID] = true
				report.FailedTestCases = append(report.FailedTestCases, tc)
			}
		}
		report.Summary.ByFeature[feature]++
		report.Summary.ByPriority[priority]++
	}
	return report
}
