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
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"trpc.group/trpc-go/finbot-eval/config"
	"trpc.group/trpc-go/finbot-eval/log"
)

var (
	cfgFile  string
	envFile  string
	logLevel string

	// cfg is resolved once before any subcommand runs.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "finbot-eval",
		Short: "Black-box evaluation harness for the MoneyCare chatbot",
		Long: `finbot-eval runs black-box test suites against the MoneyCare
financial-tracking chatbot: it drives conversations over HTTP, scores the
answers for accuracy, security and stability, and persists per-run reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("load env file %s: %w", envFile, err)
				}
			} else {
				_ = godotenv.Load()
			}
			log.SetLevel(logLevel)
			var err error
			if cfgFile != "" {
				cfg, err = config.Load(cfgFile)
			} else {
				cfg = config.FromEnv()
				err = cfg.Validate()
			}
			return err
		},
	}
)

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to .env file (default .env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}
