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
	"fmt"

	"github.com/spf13/cobra"

	resultlocal "trpc.group/trpc-go/finbot-eval/evalresult/local"
	"trpc.group/trpc-go/finbot-eval/report"
)

var (
	reportRunID  string
	reportStdout bool

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Regenerate the markdown and CSV report for a stored run",
		Long: `Renders a previously persisted run into markdown and CSV without
touching the chatbot. Defaults to the most recent run.`,
		RunE: reportRun,
	}
)

func init() {
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "run ID (default: most recent)")
	reportCmd.Flags().BoolVar(&reportStdout, "stdout", false, "print markdown to stdout instead of writing files")
	rootCmd.AddCommand(reportCmd)
}

func reportRun(cmd *cobra.Command, args []string) error {
	store, err := resultlocal.New(resultlocal.WithBaseDir(cfg.ResultsDir))
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}
	defer store.Close()

	runID := reportRunID
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

	if reportStdout {
		cmd.Print(report.Markdown(rec))
		return nil
	}
	mdPath, csvPath, err := report.Save(cfg.ResultsDir, rec)
	if err != nil {
		return err
	}
	cmd.Printf("Report: %s\n", mdPath)
	cmd.Printf("CSV:    %s\n", csvPath)
	return nil
}
