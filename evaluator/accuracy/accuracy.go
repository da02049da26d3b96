//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

// Package accuracy scores a parsed transaction against an expected one using
// weighted field-by-field comparison with partial credit.
package accuracy

import (
	"fmt"
	"math"
	"strings"

	"trpc.group/trpc-go/finbot-eval/transaction"
)

// Class partitions transaction fields by how much a mismatch matters.
type Class int

const (
	// ClassDiagnostic fields are tracked but carry no weight.
	ClassDiagnostic Class = iota
	// ClassCritical fields alone decide pass/fail: wrong money or wrong
	// direction is a business failure regardless of cosmetic fields.
	ClassCritical
	// ClassImportant fields should match closely.
	ClassImportant
	// ClassMinor fields are AI-generated and legitimately variable.
	ClassMinor
)

// String returns the lower-case class label used in notes.
func (c Class) String() string {
	switch c {
	case ClassCritical:
		return "critical"
	case ClassImportant:
		return "important"
	case ClassMinor:
		return "minor"
	default:
		return "diagnostic"
	}
}

// FieldMatch records the comparison outcome for one expected field.
type FieldMatch struct {
	// Field is the transaction field name.
	Field string
	// Class is the weight class of the field.
	Class Class
	// Weight is the field's share of the total score.
	Weight float64
	// Expected is the rendered expected value.
	Expected string
	// Actual is the rendered actual value, or "<none>" when absent.
	Actual string
	// Matched reports whether the match score crossed the field's
	// acceptance threshold. Partial credit can contribute weight without
	// counting as matched.
	Matched bool
	// Score is the match score in [0, 1].
	Score float64
}

// Mismatch renders the field for mismatch notes.
func (m FieldMatch) Mismatch() string {
	return fmt.Sprintf("%s: exp=%s, act=%s", m.Field, m.Expected, m.Actual)
}

// Result is the outcome of scoring one expectation against one response.
type Result struct {
	// Percent is the weighted accuracy in [0, 100].
	Percent float64
	// Fields lists per-field outcomes in a fixed field order, so identical
	// inputs always produce identical results.
	Fields []FieldMatch
	// ParsedPresent reports whether a parsed transaction existed at all.
	ParsedPresent bool
}

// Matched returns the matched fields of the given class.
func (r Result) Matched(class Class) []FieldMatch {
	return r.filter(class, true)
}

// Mismatched returns the unmatched fields of the given class.
func (r Result) Mismatched(class Class) []FieldMatch {
	return r.filter(class, false)
}

func (r Result) filter(class Class, matched bool) []FieldMatch {
	var out []FieldMatch
	for _, f := range r.Fields {
		if f.Class == class && f.Matched == matched {
			out = append(out, f)
		}
	}
	return out
}

// Field weights. All weights sum to 1.0 when every weighted field is present;
// only fields present in the expectation contribute, and the denominator is
// renormalized over those.
const (
	weightTransactionType   = 0.30
	weightAmount            = 0.30
	weightTransactionsCount = 0.10
	weightCategoryName      = 0.15
	weightCurrency          = 0.05
	weightDescription       = 0.05
	weightTransactionDate   = 0.03
	weightMemberID          = 0.01
	weightDisplayName       = 0.01
)

// amountTolerance is the absolute difference treated as an exact amount match.
const amountTolerance = 1.0

// relativeDateSentinels are expectation values that accept any actual date.
var relativeDateSentinels = map[string]bool{
	"today":          true,
	"yesterday":      true,
	"tomorrow":       true,
	"relative:-1day": true,
}

const absentValue = "<none>"

// fieldSpec describes how one field is rendered and compared.
type fieldSpec struct {
	name    string
	class   Class
	weight  float64
	efields func(expected *transaction.Record) (rendered string, present bool)
	compare func(expected, actual *transaction.Record) (score float64, matched bool, actualRendered string)
}

// fieldSpecs fixes the comparison order. Scoring iterates this slice, never a
// map, to keep results bit-identical across calls.
var fieldSpecs = []fieldSpec{
	{
		name:    "transaction_type",
		class:   ClassCritical,
		weight:  weightTransactionType,
		efields: func(e *transaction.Record) (string, bool) { return renderString(e.TransactionType) },
		compare: compareTransactionType,
	},
	{
		name:    "amount",
		class:   ClassCritical,
		weight:  weightAmount,
		efields: func(e *transaction.Record) (string, bool) { return renderFloat(e.Amount) },
		compare: compareAmount,
	},
	{
		name:    "transactions_count",
		class:   ClassCritical,
		weight:  weightTransactionsCount,
		efields: func(e *transaction.Record) (string, bool) { return renderInt(e.TransactionsCount) },
		compare: compareTransactionsCount,
	},
	{
		name:    "category_name",
		class:   ClassImportant,
		weight:  weightCategoryName,
		efields: func(e *transaction.Record) (string, bool) { return renderString(e.CategoryName) },
		compare: compareCategoryName,
	},
	{
		name:    "currency",
		class:   ClassImportant,
		weight:  weightCurrency,
		efields: func(e *transaction.Record) (string, bool) { return renderString(e.Currency) },
		compare: compareCurrency,
	},
	{
		name:    "description",
		class:   ClassMinor,
		weight:  weightDescription,
		efields: func(e *transaction.Record) (string, bool) { return renderString(e.Description) },
		compare: compareDescription,
	},
	{
		name:    "transaction_date",
		class:   ClassMinor,
		weight:  weightTransactionDate,
		efields: func(e *transaction.Record) (string, bool) { return renderString(e.TransactionDate) },
		compare: compareTransactionDate,
	},
	{
		name:    "member_id",
		class:   ClassMinor,
		weight:  weightMemberID,
		efields: func(e *transaction.Record) (string, bool) { return renderString(e.MemberID) },
		compare: compareMemberID,
	},
	{
		name:    "display_name",
		class:   ClassMinor,
		weight:  weightDisplayName,
		efields: func(e *transaction.Record) (string, bool) { return renderString(e.DisplayName) },
		compare: compareDisplayName,
	},
	{
		name:    "category_id",
		class:   ClassDiagnostic,
		weight:  0,
		efields: func(e *transaction.Record) (string, bool) { return renderString(e.CategoryID) },
		compare: compareCategoryID,
	},
}

// Score compares an actual parsed transaction against the expectation and
// returns the weighted accuracy plus per-field outcomes. It is a pure
// function: identical inputs yield identical results, and a type-mismatched
// or missing actual field simply scores 0 instead of failing.
func Score(expected, actual *transaction.Record) Result {
	result := Result{ParsedPresent: actual != nil}
	if expected == nil {
		result.Percent = 100.0
		return result
	}
	var totalWeight, achievedWeight float64
	for _, spec := range fieldSpecs {
		expectedRendered, present := spec.efields(expected)
		if !present {
			continue
		}
		match := FieldMatch{
			Field:    spec.name,
			Class:    spec.class,
			Weight:   spec.weight,
			Expected: expectedRendered,
			Actual:   absentValue,
		}
		if actual != nil {
			match.Score, match.Matched, match.Actual = spec.compare(expected, actual)
		}
		totalWeight += spec.weight
		achievedWeight += spec.weight * match.Score
		result.Fields = append(result.Fields, match)
	}
	switch {
	case actual == nil:
		// No parsed transaction at all: nothing can match.
		result.Percent = 0.0
	case totalWeight > 0:
		result.Percent = achievedWeight / totalWeight * 100.0
	default:
		result.Percent = 100.0
	}
	return result
}

func compareTransactionType(expected, actual *transaction.Record) (float64, bool, string) {
	rendered, present := renderString(actual.TransactionType)
	if !present {
		return 0, false, absentValue
	}
	if strings.EqualFold(*expected.TransactionType, *actual.TransactionType) {
		return 1.0, true, rendered
	}
	return 0, false, rendered
}

func compareAmount(expected, actual *transaction.Record) (float64, bool, string) {
	rendered, present := renderFloat(actual.Amount)
	if !present {
		return 0, false, absentValue
	}
	diff := math.Abs(*actual.Amount - *expected.Amount)
	if diff < amountTolerance {
		return 1.0, true, rendered
	}
	if diff < math.Abs(*expected.Amount)*0.05 {
		// Within 5%: partial weight but still a critical mismatch.
		return 0.8, false, rendered
	}
	return 0, false, rendered
}

func compareTransactionsCount(expected, actual *transaction.Record) (float64, bool, string) {
	rendered, present := renderInt(actual.TransactionsCount)
	if !present {
		return 0, false, absentValue
	}
	if *expected.TransactionsCount == *actual.TransactionsCount {
		return 1.0, true, rendered
	}
	return 0, false, rendered
}

func compareCategoryName(expected, actual *transaction.Record) (float64, bool, string) {
	rendered, present := renderString(actual.CategoryName)
	if !present {
		return 0, false, absentValue
	}
	expectedLower := strings.ToLower(strings.TrimSpace(*expected.CategoryName))
	actualLower := strings.ToLower(strings.TrimSpace(*actual.CategoryName))
	if expectedLower == actualLower {
		return 1.0, true, rendered
	}
	if strings.Contains(actualLower, expectedLower) || strings.Contains(expectedLower, actualLower) {
		return 0.8, true, rendered
	}
	ratio := overlapRatio(expectedLower, actualLower)
	return math.Min(1.0, ratio*0.7), ratio >= 0.5, rendered
}

func compareCurrency(expected, actual *transaction.Record) (float64, bool, string) {
	rendered, present := renderString(actual.Currency)
	if !present {
		return 0, false, absentValue
	}
	if strings.EqualFold(*expected.Currency, *actual.Currency) {
		return 1.0, true, rendered
	}
	return 0, false, rendered
}

func compareDescription(expected, actual *transaction.Record) (float64, bool, string) {
	rendered, present := renderString(actual.Description)
	if !present {
		return 0, false, absentValue
	}
	expectedLower := strings.ToLower(*expected.Description)
	actualLower := strings.ToLower(*actual.Description)
	if expectedLower == actualLower {
		return 1.0, true, rendered
	}
	ratio := overlapRatio(expectedLower, actualLower)
	return math.Min(1.0, ratio), ratio >= 0.5, rendered
}

func compareTransactionDate(expected, actual *transaction.Record) (float64, bool, string) {
	rendered, present := renderString(actual.TransactionDate)
	if relativeDateSentinels[*expected.TransactionDate] {
		// Relative expectations accept any concrete date.
		if present {
			return 1.0, true, rendered
		}
		return 0, false, absentValue
	}
	if !present {
		return 0, false, absentValue
	}
	if *expected.TransactionDate == *actual.TransactionDate {
		return 1.0, true, rendered
	}
	return 0, false, rendered
}

func compareMemberID(_, actual *transaction.Record) (float64, bool, string) {
	// Existence check only; member IDs are opaque.
	rendered, present := renderString(actual.MemberID)
	if present {
		return 1.0, true, rendered
	}
	return 0, false, absentValue
}

func compareDisplayName(expected, actual *transaction.Record) (float64, bool, string) {
	rendered, present := renderString(actual.DisplayName)
	if !present {
		return 0, false, absentValue
	}
	expectedLower := strings.ToLower(*expected.DisplayName)
	actualLower := strings.ToLower(*actual.DisplayName)
	if expectedLower == actualLower {
		return 1.0, true, rendered
	}
	if strings.Contains(actualLower, expectedLower) || strings.Contains(expectedLower, actualLower) {
		return 0.8, true, rendered
	}
	return 0, false, rendered
}

func compareCategoryID(_, actual *transaction.Record) (float64, bool, string) {
	rendered, present := renderString(actual.CategoryID)
	if present {
		return 1.0, true, rendered
	}
	return 0, false, absentValue
}

// overlapRatio returns shared words divided by expected word count.
func overlapRatio(expected, actual string) float64 {
	expectedWords := wordSet(expected)
	if len(expectedWords) == 0 {
		return 0
	}
	actualWords := wordSet(actual)
	shared := 0
	for w := range expectedWords {
		if actualWords[w] {
			shared++
		}
	}
	return float64(shared) / float64(len(expectedWords))
}

func wordSet(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		words[w] = true
	}
	return words
}

func renderString(v *string) (string, bool) {
	if v == nil {
		return absentValue, false
	}
	return *v, true
}

func renderFloat(v *float64) (string, bool) {
	if v == nil {
		return absentValue, false
	}
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", *v), "0"), "."), true
}

func renderInt(v *int) (string, bool) {
	if v == nil {
		return absentValue, false
	}
	return fmt.Sprintf("%d", *v), true
}
