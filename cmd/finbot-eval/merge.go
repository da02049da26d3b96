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

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/finbot-eval/evalset"
	evalsetlocal "trpc.group/trpc-go/finbot-eval/evalset/local"
)

var (
	mergeOut string

	mergeCmd = &cobra.Command{
		Use:   "merge <suite-file>...",
		Short: "Merge suite files into one, last duplicate Test_Case_ID wins",
		Args:  cobra.MinimumNArgs(2),
		RunE:  mergeRun,
	}
)

func init() {
	mergeCmd.Flags().StringVarP(&mergeOut, "out", "o", "merged_suite.json", "output suite file")
	rootCmd.AddCommand(mergeCmd)
}

func mergeRun(cmd *cobra.Command, args []string) error {
	suites := make([]*evalset.Suite, 0, len(args))
	for _, path := range args {
		suite, err := evalsetlocal.LoadFile(path)
		if err != nil {
			return err
		}
		suites = append(suites, suite)
	}
	merged := evalset.Merge(suites...)

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal merged suite: %w", err)
	}
	if err := os.WriteFile(mergeOut, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", mergeOut, err)
	}
	cmd.Printf("Merged %d files into %s (%d test cases)\n", len(args), mergeOut, len(merged.TestCases))
	return nil
}
