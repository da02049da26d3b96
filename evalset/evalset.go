//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

// Package evalset provides the test suite definition consumed by a run.
package evalset

import (
	"context"

	"trpc.group/trpc-go/finbot-eval/transaction"
)

// TestCase is an immutable test definition. It is loaded once from a suite
// file and read-only thereafter. JSON keys follow the suite file format that
// reporting tools already depend on.
type TestCase struct {
	// TestCaseID uniquely identifies this case.
	TestCaseID string `json:"Test_Case_ID"`
	// FeatureArea groups cases by the bot feature they exercise.
	FeatureArea string `json:"Feature_Area,omitempty"`
	// Description describes the case for human review.
	Description string `json:"Description_VN,omitempty"`
	// UserMessage is the message sent to the bot.
	UserMessage string `json:"User_Message_Input"`
	// Precondition documents required state before the case runs.
	Precondition string `json:"Precondition,omitempty"`
	// ExpectedBotResponse is the informal expected reply, for human review only.
	ExpectedBotResponse string `json:"Expected_Bot_Response,omitempty"`
	// ExpectedTransaction holds the structured expectation, when the case
	// expects the bot to record a transaction.
	ExpectedTransaction *transaction.Record `json:"Expected_Parsed_Transaction,omitempty"`
	// TargetOWASPRisks lists the security risk identifiers this case probes.
	TargetOWASPRisks []string `json:"Target_OWASP_Risks,omitempty"`
	// TargetPrinciples lists the interaction-design principles this case probes.
	TargetPrinciples []string `json:"Target_CLASS_Principles,omitempty"`
	// Priority is Critical, High, Medium or Low.
	Priority string `json:"Priority,omitempty"`
	// SeverityIfFailed records the business impact of a failure.
	SeverityIfFailed string `json:"Severity_if_Failed,omitempty"`
}

// Suite is an ordered collection of test cases with no cross-case
// dependencies.
type Suite struct {
	// Name of the suite, informational.
	Name string `json:"name,omitempty"`
	// TestCases contains the ordered cases.
	TestCases []*TestCase `json:"test_cases"`
}

// Manager defines the interface for loading test suites.
type Manager interface {
	// Get returns the Suite identified by suiteID.
	Get(ctx context.Context, suiteID string) (*Suite, error)
	// List returns the identifiers of all available suites.
	List(ctx context.Context) ([]string, error)
}

// Filter returns the cases matching the given feature area and priority.
// Empty filter values match everything. The input order is preserved.
func Filter(cases []*TestCase, feature, priority string) []*TestCase {
	filtered := make([]*TestCase, 0, len(cases))
	for _, tc := range cases {
		if tc == nil {
			continue
		}
		if feature != "" && tc.FeatureArea != feature {
			continue
		}
		if priority != "" && tc.Priority != priority {
			continue
		}
		filtered = append(filtered, tc)
	}
	return filtered
}

// Merge combines suites into one. When the same Test_Case_ID appears more
// than once the last occurrence wins, so later suites can override earlier
// ones. Case order follows first appearance.
func Merge(suites ...*Suite) *Suite {
	merged := &Suite{TestCases: []*TestCase{}}
	index := make(map[string]int)
	for _, suite := range suites {
		if suite == nil {
			continue
		}
		if merged.Name == "" {
			merged.Name = suite.Name
		}
		for _, tc := range suite.TestCases {
			if tc == nil {
				continue
			}
			if i, ok := index[tc.TestCaseID]; ok {
				merged.TestCases[i] = tc
				continue
			}
			index[tc.TestCaseID] = len(merged.TestCases)
			merged.TestCases = append(merged.TestCases, tc)
		}
	}
	return merged
}
