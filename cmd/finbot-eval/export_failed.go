//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/finbot-eval/evalresult"
	resultlocal "trpc.group/trpc-go/finbot-eval/evalresult/local"
	"trpc.group/trpc-go/finbot-eval/evalset"
	evalsetlocal "trpc.group/trpc-go/finbot-eval/evalset/local"
)

var (
	exportRunID string
	exportSuite string
	exportOut   string

	exportFailedCmd = &cobra.Command{
		Use:   "export-failed",
		Short: "Export the non-passing tests of a stored run for replay",
		Long: `Extracts Fail, Error and Partial results from a stored run together
with their originating test cases, so the failures can be re-run as a suite.`,
		RunE: exportFailedRun,
	}
)

func init() {
	exportFailedCmd.Flags().StringVar(&exportRunID, "run", "", "run ID (default: most recent)")
	exportFailedCmd.Flags().StringVar(&exportSuite, "suite", "", "suite the run executed, for test case lookup")
	exportFailedCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default results dir)")
	rootCmd.AddCommand(exportFailedCmd)
}

func exportFailedRun(cmd *cobra.Command, args []string) error {
	store, err := resultlocal.New(resultlocal.WithBaseDir(cfg.ResultsDir))
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}
	defer store.Close()

	runID := exportRunID
	if runID == "" {
		ids, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(ids) == 0 {
			return fmt.Errorf("no stored runs under %s", cfg.ResultsDir)
		}
		runID = ids[0]
	}
	rec, err := store.Get(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}

	var cases []*evalset.TestCase
	suiteID := exportSuite
	if suiteID == "" {
		suiteID = rec.Info.SuiteID
	}
	if suiteID != "" {
		suites := evalsetlocal.New(evalset.WithBaseDir(cfg.SuitesDir))
		suite, err := suites.Get(cmd.Context(), suiteID)
		if err != nil {
			cmd.PrintErrf("Warning: suite %s not found, exporting results only\n", suiteID)
		} else {
			cases = suite.TestCases
		}
	}

	report := evalresult.ExtractFailed(rec, cases, time.Now())
	if report == nil {
		cmd.Printf("Run %s has no failed tests\n", runID)
		return nil
	}

	out := exportOut
	if out == "" {
		out = filepath.Join(cfg.ResultsDir,
			fmt.Sprintf("failed_tests_%s.json", time.Now().Format("20060102_150405")))
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal failed report: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	cmd.Printf("Exported %d failed tests to %s\n", report.Summary.TotalFailed, out)
	return nil
}
