//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

package accuracy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/finbot-eval/transaction"
)

func expenseExpectation() *transaction.Record {
	return &transaction.Record{
		TransactionType:   transaction.String("expense"),
		Amount:            transaction.Float(50000),
		Currency:          transaction.String("VND"),
		CategoryName:      transaction.String("Ăn uống"),
		TransactionsCount: transaction.Int(1),
	}
}

func TestScoreExactMatch(t *testing.T) {
	actual := &transaction.Record{
		TransactionType:   transaction.String("expense"),
		Amount:            transaction.Float(50000),
		Currency:          transaction.String("vnd"),
		CategoryName:      transaction.String("ăn uống"),
		TransactionsCount: transaction.Int(1),
	}
	result := Score(expenseExpectation(), actual)
	assert.InDelta(t, 100.0, result.Percent, 0.001)
	assert.Empty(t, result.Mismatched(ClassCritical))
	assert.Empty(t, result.Mismatched(ClassImportant))
}

func TestScoreAmountMismatchDominates(t *testing.T) {
	actual := &transaction.Record{
		TransactionType:   transaction.String("expense"),
		Amount:            transaction.Float(45000),
		Currency:          transaction.String("VND"),
		CategoryName:      transaction.String("Ăn uống"),
		TransactionsCount: transaction.Int(1),
	}
	result := Score(expenseExpectation(), actual)
	// Weighted fields present: 0.30+0.30+0.10+0.15+0.05 = 0.90; amount
	// contributes nothing, the rest fully match: 0.60/0.90 ≈ 66.7%.
	assert.InDelta(t, 66.667, result.Percent, 0.01)

	mismatched := result.Mismatched(ClassCritical)
	require.Len(t, mismatched, 1)
	assert.Equal(t, "amount", mismatched[0].Field)
	assert.Equal(t, "amount: exp=50000, act=45000", mismatched[0].Mismatch())
}

func TestScoreAmountWithinTolerance(t *testing.T) {
	expected := expenseExpectation()
	actual := &transaction.Record{Amount: transaction.Float(50000.7)}
	result := Score(expected, actual)
	for _, f := range result.Fields {
		if f.Field == "amount" {
			assert.True(t, f.Matched)
			assert.Equal(t, 1.0, f.Score)
		}
	}
}

func TestScoreAmountNearMissPartialCredit(t *testing.T) {
	expected := &transaction.Record{Amount: transaction.Float(100000)}
	actual := &transaction.Record{Amount: transaction.Float(97000)}
	result := Score(expected, actual)
	require.Len(t, result.Fields, 1)
	// Within 5% earns partial weight but still counts as a mismatch.
	assert.False(t, result.Fields[0].Matched)
	assert.Equal(t, 0.8, result.Fields[0].Score)
	assert.InDelta(t, 80.0, result.Percent, 0.001)
}

func TestScoreCategorySubstring(t *testing.T) {
	expected := &transaction.Record{CategoryName: transaction.String("Ăn uống")}
	actual := &transaction.Record{CategoryName: transaction.String("Chi phí ăn uống")}
	result := Score(expected, actual)
	require.Len(t, result.Fields, 1)
	assert.True(t, result.Fields[0].Matched)
	assert.Equal(t, 0.8, result.Fields[0].Score)
}

func TestScoreCategoryWordOverlap(t *testing.T) {
	expected := &transaction.Record{CategoryName: transaction.String("mua sắm quần áo")}
	actual := &transaction.Record{CategoryName: transaction.String("quần áo thời trang")}
	result := Score(expected, actual)
	require.Len(t, result.Fields, 1)
	// 2 of 4 expected words shared: ratio 0.5 is matched, score 0.5*0.7.
	assert.True(t, result.Fields[0].Matched)
	assert.InDelta(t, 0.35, result.Fields[0].Score, 0.001)
}

func TestScoreRelativeDateAcceptsAnyActual(t *testing.T) {
	expected := &transaction.Record{TransactionDate: transaction.String("yesterday")}
	result := Score(expected, &transaction.Record{TransactionDate: transaction.String("2025-03-14")})
	require.Len(t, result.Fields, 1)
	assert.True(t, result.Fields[0].Matched)

	result = Score(expected, &transaction.Record{})
	require.Len(t, result.Fields, 1)
	assert.False(t, result.Fields[0].Matched)
}

func TestScoreMissingActual(t *testing.T) {
	result := Score(expenseExpectation(), nil)
	assert.Equal(t, 0.0, result.Percent)
	assert.False(t, result.ParsedPresent)
	for _, f := range result.Fields {
		assert.False(t, f.Matched, f.Field)
		assert.Equal(t, absentValue, f.Actual)
	}
}

func TestScoreNoWeightedFieldsDefaultsFull(t *testing.T) {
	expected := &transaction.Record{CategoryID: transaction.String("cat-7")}
	result := Score(expected, &transaction.Record{CategoryID: transaction.String("cat-9")})
	assert.Equal(t, 100.0, result.Percent)
	require.Len(t, result.Fields, 1)
	assert.Equal(t, ClassDiagnostic, result.Fields[0].Class)
	assert.True(t, result.Fields[0].Matched)
}

func TestScoreDeterministic(t *testing.T) {
	expected := expenseExpectation()
	actual := &transaction.Record{
		TransactionType: transaction.String("income"),
		Amount:          transaction.Float(49000),
		CategoryName:    transaction.String("lương tháng"),
	}
	first := Score(expected, actual)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(expected, actual))
	}
}
