//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

// Package config holds the harness configuration, with per-environment
// presets and YAML and environment-variable loading.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration surface of the harness.
type Config struct {
	// ChatbotBaseURL is the service under test.
	ChatbotBaseURL string `yaml:"chatbot_base_url"`
	// AskPath and InitSessionPath are the API endpoints.
	AskPath         string `yaml:"ask_endpoint"`
	InitSessionPath string `yaml:"init_session_endpoint"`

	// DefaultTimeoutMs is the per-request deadline.
	DefaultTimeoutMs int `yaml:"default_timeout_ms"`
	// MaxRetries bounds transport-level retries of transient failures.
	MaxRetries int `yaml:"max_retries"`

	// Cost model (GPT-4o-mini pricing by default).
	InputTokenRate  float64 `yaml:"input_token_rate"`
	OutputTokenRate float64 `yaml:"output_token_rate"`
	USDToVNDRate    float64 `yaml:"usd_to_vnd_rate"`

	// ResultsDir is where run records and reports land.
	ResultsDir string `yaml:"results_dir"`
	// SuitesDir is where test-suite files are loaded from.
	SuitesDir string `yaml:"suites_dir"`
	// MySQLDSN, when set, mirrors run records into MySQL.
	MySQLDSN string `yaml:"mysql_dsn"`

	// Environment and LLMModel label every result.
	Environment string `yaml:"environment"`
	LLMModel    string `yaml:"llm_model"`
	Tester      string `yaml:"tester"`

	// Verdict thresholds.
	LatencyWarningMs      int     `yaml:"latency_warning_ms"`
	LatencyCriticalMs     int     `yaml:"latency_critical_ms"`
	AccuracyPassThreshold float64 `yaml:"accuracy_pass_threshold"`

	// Concurrency is the number of identities evaluated in parallel.
	Concurrency int `yaml:"concurrency"`
}

// Default returns the localhost development configuration.
func Default() *Config {
	return &Config{
		ChatbotBaseURL:        "http://127.0.0.1:3333",
		AskPath:               "/api/ask",
		InitSessionPath:       "/api/init-session",
		DefaultTimeoutMs:      30000,
		MaxRetries:            3,
		InputTokenRate:        0.00015,
		OutputTokenRate:       0.0006,
		USDToVNDRate:          24500,
		ResultsDir:            "test_results",
		SuitesDir:             "test_suites",
		Environment:           "localhost",
		LLMModel:              "gpt-4o-mini",
		Tester:                "LLM_Test_Agent",
		LatencyWarningMs:      5000,
		LatencyCriticalMs:     8000,
		AccuracyPassThreshold: 0.8,
		Concurrency:           1,
	}
}

// Staging returns the staging preset: same thresholds, longer timeout.
func Staging(baseURL string) *Config {
	cfg := Default()
	cfg.ChatbotBaseURL = baseURL
	cfg.Environment = "staging"
	cfg.DefaultTimeoutMs = 45000
	return cfg
}

// Production returns the production preset. Production runs get a longer
// timeout and fewer retries to keep load down; prefer read-only suites.
func Production(baseURL string) *Config {
	cfg := Default()
	cfg.ChatbotBaseURL = baseURL
	cfg.Environment = "production"
	cfg.DefaultTimeoutMs = 60000
	cfg.MaxRetries = 1
	return cfg
}

// FromEnv returns the default configuration overridden by environment
// variables, for CI pipelines that do not ship a config file.
func FromEnv() *Config {
	cfg := Default()
	if v := os.Getenv("CHATBOT_URL"); v != "" {
		cfg.ChatbotBaseURL = v
	}
	if v := os.Getenv("TEST_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	if v := os.Getenv("TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.DefaultTimeoutMs = ms
		}
	}
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		cfg.MySQLDSN = v
	}
	if v := os.Getenv("RESULTS_DIR"); v != "" {
		cfg.ResultsDir = v
	}
	return cfg
}

// Load reads a YAML config file over the defaults, then validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations that would make runs meaningless.
func (c *Config) Validate() error {
	if c.ChatbotBaseURL == "" {
		return fmt.Errorf("chatbot_base_url is required")
	}
	if c.DefaultTimeoutMs <= 0 {
		return fmt.Errorf("default_timeout_ms must be positive, got %d", c.DefaultTimeoutMs)
	}
	if c.AccuracyPassThreshold < 0 || c.AccuracyPassThreshold > 1 {
		return fmt.Errorf("accuracy_pass_threshold must be in [0, 1], got %g", c.AccuracyPassThreshold)
	}
	if c.LatencyWarningMs > c.LatencyCriticalMs {
		return fmt.Errorf("latency_warning_ms %d exceeds latency_critical_ms %d",
			c.LatencyWarningMs, c.LatencyCriticalMs)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	return nil
}
