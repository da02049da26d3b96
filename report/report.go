//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

// Package report renders persisted run records into human-readable markdown
// and flat CSV exports. It works entirely from stored data, so reports can
// be regenerated offline long after a run finished.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"trpc.group/trpc-go/finbot-eval/evalresult"
	"trpc.group/trpc-go/finbot-eval/status"
)

const responsePreviewLimit = 150

// Markdown renders one run record as a markdown document: run metadata,
// summary, latency and cost metrics, the per-test table, OWASP coverage,
// the design-principle checklist and failure details.
func Markdown(rec *evalresult.RunRecord) string {
	var b strings.Builder

	b.WriteString("# MoneyCare Chatbot Evaluation Report\n\n")
	writeRunInfo(&b, rec)
	writeSummary(&b, rec)
	writeMetrics(&b, rec)
	writeResultsTable(&b, rec.Results)
	writeOWASPCoverage(&b, rec.Results)
	writePrincipleChecklist(&b, rec.Results)
	writeFailureDetails(&b, rec.Results)

	return b.String()
}

func writeRunInfo(b *strings.Builder, rec *evalresult.RunRecord) {
	info := rec.Info
	b.WriteString("## Run\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Run ID | %s |\n", info.RunID)
	if info.SuiteID != "" {
		fmt.Fprintf(b, "| Suite | %s |\n", info.SuiteID)
	}
	fmt.Fprintf(b, "| Environment | %s |\n", info.Environment)
	fmt.Fprintf(b, "| LLM Model | %s |\n", info.LLMModel)
	fmt.Fprintf(b, "| Tester | %s |\n", info.Tester)
	if !info.StartTime.IsZero() {
		fmt.Fprintf(b, "| Started | %s |\n", info.StartTime.Format(time.RFC3339))
	}
	if !info.EndTime.IsZero() {
		fmt.Fprintf(b, "| Finished | %s |\n", info.EndTime.Format(time.RFC3339))
	}
	b.WriteString("\n")
}

func writeSummary(b *strings.Builder, rec *evalresult.RunRecord) {
	s := rec.Summary
	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Total tests | %d |\n", s.TotalTests)
	fmt.Fprintf(b, "| Passed | %d |\n", s.Passed)
	fmt.Fprintf(b, "| Failed | %d |\n", s.Failed)
	fmt.Fprintf(b, "| Partial | %d |\n", s.Partial)
	fmt.Fprintf(b, "| Skipped | %d |\n", s.Skipped)
	fmt.Fprintf(b, "| Errors | %d |\n", s.Errors)
	fmt.Fprintf(b, "| Pass rate | %.1f%% |\n", s.PassRatePercent)
	fmt.Fprintf(b, "| Avg accuracy | %.1f%% |\n", s.AvgAccuracy)
	fmt.Fprintf(b, "| Security issues | %d |\n", s.SecurityIssues)
	fmt.Fprintf(b, "| Stability issues | %d |\n", s.StabilityIssues)
	fmt.Fprintf(b, "| Duration | %.1fs |\n", s.DurationSeconds)
	b.WriteString("\n")
}

func writeMetrics(b *strings.Builder, rec *evalresult.RunRecord) {
	stats := latencyStats(rec.Results)
	errorRate := 0.0
	if len(rec.Results) > 0 {
		errorRate = float64(rec.Summary.Errors) / float64(len(rec.Results)) * 100
	}
	costPerTest := 0.0
	if len(rec.Results) > 0 {
		costPerTest = rec.Summary.TotalCostVND / float64(len(rec.Results))
	}

	b.WriteString("## Metrics\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Avg latency | %.0f ms |\n", stats.avg)
	fmt.Fprintf(b, "| P95 latency | %d ms |\n", stats.p95)
	fmt.Fprintf(b, "| Min latency | %d ms |\n", stats.min)
	fmt.Fprintf(b, "| Max latency | %d ms |\n", stats.max)
	fmt.Fprintf(b, "| Error rate | %.1f%% |\n", errorRate)
	fmt.Fprintf(b, "| Total cost | %.2f VND |\n", rec.Summary.TotalCostVND)
	fmt.Fprintf(b, "| Avg cost per test | %.2f VND |\n", costPerTest)
	b.WriteString("\n")
}

func writeResultsTable(b *strings.Builder, results []evalresult.TestRunResult) {
	b.WriteString("## Results\n\n")
	if len(results) == 0 {
		b.WriteString("No results recorded.\n\n")
		return
	}
	b.WriteString("| Test Case | Verdict | Accuracy | Latency | Security | Stability |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, r := range results {
		fmt.Fprintf(b, "| %s | %s | %.1f%% | %d ms | %s | %s |\n",
			r.TestCaseID, r.Verdict, r.AccuracyPercent, r.MeasuredLatencyMs,
			r.Security, r.Stability)
	}
	b.WriteString("\n")
}

func writeOWASPCoverage(b *strings.Builder, results []evalresult.TestRunResult) {
	type riskStat struct {
		cases  []string
		passed int
		total  int
	}
	stats := map[string]*riskStat{}
	for _, r := range results {
		for riskID, check := range r.OWASPCheck {
			st := stats[riskID]
			if st == nil {
				st = &riskStat{}
				stats[riskID] = st
			}
			st.cases = append(st.cases, r.TestCaseID)
			st.total++
			if check == "OK" {
				st.passed++
			}
		}
	}
	if len(stats) == 0 {
		return
	}

	b.WriteString("## OWASP LLM Coverage\n\n")
	b.WriteString("| Risk | Name | Severity | Tested | Pass rate |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, riskID := range owaspOrder {
		info := owaspRisks[riskID]
		st := stats[riskID]
		if st == nil {
			fmt.Fprintf(b, "| %s | %s | %s | 0 | - |\n", riskID, info.Name, info.Severity)
			continue
		}
		sort.Strings(st.cases)
		rate := float64(st.passed) / float64(st.total) * 100
		fmt.Fprintf(b, "| %s | %s | %s | %d | %.1f%% |\n",
			riskID, info.Name, info.Severity, st.total, rate)
	}
	b.WriteString("\n")
}

func writePrincipleChecklist(b *strings.Builder, results []evalresult.TestRunResult) {
	type principleStat struct {
		passed int
		total  int
	}
	stats := map[string]*principleStat{}
	for _, r := range results {
		for name, ok := range r.PrinciplesCheck {
			st := stats[name]
			if st == nil {
				st = &principleStat{}
				stats[name] = st
			}
			st.total++
			if ok {
				st.passed++
			}
		}
	}
	if len(stats) == 0 {
		return
	}

	b.WriteString("## Design Principle Checklist\n\n")
	b.WriteString("| Principle | Description | Tested | Pass rate |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, p := range principleCatalog {
		st := stats[p.Name]
		if st == nil {
			fmt.Fprintf(b, "| %s | %s | 0 | - |\n", p.Name, p.Description)
			continue
		}
		rate := float64(st.passed) / float64(st.total) * 100
		fmt.Fprintf(b, "| %s | %s | %d | %.1f%% |\n", p.Name, p.Description, st.total, rate)
	}
	b.WriteString("\n")
}

func writeFailureDetails(b *strings.Builder, results []evalresult.TestRunResult) {
	var failed []evalresult.TestRunResult
	for _, r := range results {
		switch r.Verdict {
		case status.VerdictFail, status.VerdictError, status.VerdictPartial:
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 {
		return
	}

	b.WriteString("## Failure Details\n\n")
	for _, r := range failed {
		fmt.Fprintf(b, "### %s (%s)\n\n", r.TestCaseID, r.Verdict)
		if r.ActualBotResponse != "" {
			fmt.Fprintf(b, "Response: %s\n\n", preview(r.ActualBotResponse))
		}
		if r.Notes != "" {
			fmt.Fprintf(b, "Notes:\n\n```\n%s\n```\n\n", r.Notes)
		}
	}
}

type latencySummary struct {
	avg           float64
	p95, min, max int
}

// latencyStats folds measured latencies; zero-latency results (never sent)
// are excluded so they do not drag the averages down.
func latencyStats(results []evalresult.TestRunResult) latencySummary {
	var latencies []int
	for _, r := range results {
		if r.MeasuredLatencyMs > 0 {
			latencies = append(latencies, r.MeasuredLatencyMs)
		}
	}
	if len(latencies) == 0 {
		return latencySummary{}
	}
	sort.Ints(latencies)
	sum := 0
	for _, l := range latencies {
		sum += l
	}
	idx := int(float64(len(latencies)) * 0.95)
	if idx >= len(latencies) {
		idx = len(latencies) - 1
	}
	return latencySummary{
		avg: float64(sum) / float64(len(latencies)),
		p95: latencies[idx],
		min: latencies[0],
		max: latencies[len(latencies)-1],
	}
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= responsePreviewLimit {
		return s
	}
	return string(runes[:responsePreviewLimit]) + "..."
}

// Save writes the markdown report and the CSV export next to each other in
// dir, named after the run ID. It returns both paths.
func Save(dir string, rec *evalresult.RunRecord) (mdPath, csvPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create report dir: %w", err)
	}
	mdPath = filepath.Join(dir, fmt.Sprintf("test_report_%s.md", rec.Info.RunID))
	if err := os.WriteFile(mdPath, []byte(Markdown(rec)), 0o644); err != nil {
		return "", "", fmt.Errorf("write markdown report: %w", err)
	}
	csvPath = filepath.Join(dir, fmt.Sprintf("test_results_%s.csv", rec.Info.RunID))
	f, err := os.Create(csvPath)
	if err != nil {
		return "", "", fmt.Errorf("create csv export: %w", err)
	}
	defer f.Close()
	if err := WriteCSV(f, rec.Results); err != nil {
		return "", "", fmt.Errorf("write csv export: %w", err)
	}
	return mdPath, csvPath, nil
}
