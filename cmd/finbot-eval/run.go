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
	"time"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/finbot-eval/client"
	"trpc.group/trpc-go/finbot-eval/evalresult"
	resultlocal "trpc.group/trpc-go/finbot-eval/evalresult/local"
	resultmysql "trpc.group/trpc-go/finbot-eval/evalresult/mysql"
	"trpc.group/trpc-go/finbot-eval/evalset"
	evalsetlocal "trpc.group/trpc-go/finbot-eval/evalset/local"
	"trpc.group/trpc-go/finbot-eval/evaluator"
	"trpc.group/trpc-go/finbot-eval/log"
	"trpc.group/trpc-go/finbot-eval/report"
	"trpc.group/trpc-go/finbot-eval/runner"
)

var (
	runSuite       string
	runFeature     string
	runPriority    string
	runConcurrency int
	runEvalWorkers int
	runIdentity    string
	runJWT         string
	runUserID      string
	runFingerprint string
	runGuestID     string
	runSkipReport  bool

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Execute a test suite against the chatbot",
		RunE:  runSuiteCmd,
	}
)

func init() {
	runCmd.Flags().StringVarP(&runSuite, "suite", "s", "", "suite ID to run (required)")
	runCmd.Flags().StringVar(&runFeature, "feature", "", "only run cases in this feature area")
	runCmd.Flags().StringVar(&runPriority, "priority", "", "only run cases with this priority")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "parallel identities (default from config)")
	runCmd.Flags().IntVar(&runEvalWorkers, "eval-workers", 0, "evaluation pool size, 0 evaluates inline")
	runCmd.Flags().StringVar(&runIdentity, "identity", string(client.ModeGuestNew),
		"identity mode: guest_new, guest_existing or user")
	runCmd.Flags().StringVar(&runJWT, "jwt", "", "JWT token for user identity")
	runCmd.Flags().StringVar(&runUserID, "user-id", "", "user ID for user identity")
	runCmd.Flags().StringVar(&runFingerprint, "fingerprint", "", "fingerprint for guest_existing identity")
	runCmd.Flags().StringVar(&runGuestID, "guest-id", "", "guest ID for guest_existing identity")
	runCmd.Flags().BoolVar(&runSkipReport, "skip-report", false, "skip markdown/CSV report generation")
	_ = runCmd.MarkFlagRequired("suite")
	rootCmd.AddCommand(runCmd)
}

func runSuiteCmd(cmd *cobra.Command, args []string) error {
	identity, err := buildIdentity()
	if err != nil {
		return err
	}

	managers := []evalresult.Manager{}
	localStore, err := resultlocal.New(resultlocal.WithBaseDir(cfg.ResultsDir))
	if err != nil {
		return fmt.Errorf("create local result store: %w", err)
	}
	managers = append(managers, localStore)
	if cfg.MySQLDSN != "" {
		mysqlStore, err := resultmysql.New(resultmysql.WithDSN(cfg.MySQLDSN))
		if err != nil {
			return fmt.Errorf("create mysql result store: %w", err)
		}
		managers = append(managers, mysqlStore)
	}

	concurrency := runConcurrency
	if concurrency <= 0 {
		concurrency = cfg.Concurrency
	}

	r, err := runner.New(
		runner.WithSuiteManager(evalsetlocal.New(evalset.WithBaseDir(cfg.SuitesDir))),
		runner.WithResultManagers(managers...),
		runner.WithClientFactory(clientFactory(identity)),
		runner.WithConcurrency(concurrency),
		runner.WithEvalParallelism(runEvalWorkers),
		runner.WithFailedExportDir(cfg.ResultsDir),
		runner.WithFilter(runFeature, runPriority),
		runner.WithEvaluatorOptions(
			evaluator.WithEnvironment(cfg.Environment),
			evaluator.WithLLMModel(cfg.LLMModel),
			evaluator.WithTester(cfg.Tester),
			evaluator.WithLatencyThresholds(cfg.LatencyWarningMs, cfg.LatencyCriticalMs),
			evaluator.WithAccuracyPassThreshold(cfg.AccuracyPassThreshold),
			evaluator.WithCostRates(cfg.InputTokenRate, cfg.OutputTokenRate, cfg.USDToVNDRate),
		),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Warnf("close runner: %v", err)
		}
	}()

	rec, err := r.Run(cmd.Context(), runSuite)
	if err != nil {
		return err
	}
	printSummary(cmd, rec)

	if !runSkipReport {
		mdPath, csvPath, err := report.Save(cfg.ResultsDir, rec)
		if err != nil {
			return err
		}
		cmd.Printf("Report:  %s\n", mdPath)
		cmd.Printf("CSV:     %s\n", csvPath)
	}
	return nil
}

func buildIdentity() (client.Identity, error) {
	switch client.Mode(runIdentity) {
	case client.ModeGuestNew:
		return client.GuestNew(), nil
	case client.ModeGuestExisting:
		if runFingerprint == "" || runGuestID == "" {
			return client.Identity{}, fmt.Errorf("guest_existing identity requires --fingerprint and --guest-id")
		}
		return client.GuestExisting(runFingerprint, runGuestID), nil
	case client.ModeUser:
		if runJWT == "" {
			return client.Identity{}, fmt.Errorf("user identity requires --jwt")
		}
		return client.User(runJWT, runUserID), nil
	default:
		return client.Identity{}, fmt.Errorf("unknown identity mode %q", runIdentity)
	}
}

// clientFactory builds one conversation per worker. Guest-new identities
// get a fresh fingerprint per worker so parallel conversations stay
// independent on the server side.
func clientFactory(identity client.Identity) runner.ClientFactory {
	return func() (runner.Conversation, error) {
		id := identity
		if id.Mode == client.ModeGuestNew {
			id = client.GuestNew()
		}
		return client.New(cfg.ChatbotBaseURL, id,
			client.WithTimeout(time.Duration(cfg.DefaultTimeoutMs)*time.Millisecond),
			client.WithMaxRetries(uint64(cfg.MaxRetries)),
			client.WithEndpoints(cfg.InitSessionPath, cfg.AskPath),
		)
	}
}

func printSummary(cmd *cobra.Command, rec *evalresult.RunRecord) {
	s := rec.Summary
	cmd.Printf("Run %s finished: %d tests, %d passed, %d failed, %d partial, %d errors\n",
		rec.Info.RunID, s.TotalTests, s.Passed, s.Failed, s.Partial, s.Errors)
	cmd.Printf("Pass rate %.1f%%, avg accuracy %.1f%%, avg latency %.0fms, total cost %.2f VND\n",
		s.PassRatePercent, s.AvgAccuracy, s.AvgLatencyMs, s.TotalCostVND)
	if s.SecurityIssues > 0 {
		cmd.Printf("SECURITY ISSUES: %d\n", s.SecurityIssues)
	}
}
