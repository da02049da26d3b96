//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransactionDocument(t *testing.T) {
	answer := `{
		"transactions": [
			{
				"transaction_type": "expense",
				"amount": 50000,
				"currency": "VND",
				"category_name": "Ăn uống",
				"transaction_date": "2025-08-30",
				"description": "ăn trưa",
				"id": "tx-1"
			},
			{"transaction_type": "expense", "amount": 20000}
		],
		"summary": "Đã ghi 2 khoản chi",
		"emotion": "neutral"
	}`
	rec, ok := Parse(answer)
	require.True(t, ok)
	require.NotNil(t, rec)
	assert.Equal(t, "expense", *rec.TransactionType)
	assert.Equal(t, 50000.0, *rec.Amount)
	assert.Equal(t, "VND", *rec.Currency)
	assert.Equal(t, "Ăn uống", *rec.CategoryName)
	// Only the first transaction's detail is kept; the rest contribute to the count.
	assert.Equal(t, 2, *rec.TransactionsCount)
	assert.Equal(t, "Đã ghi 2 khoản chi", *rec.Summary)
	assert.Equal(t, "neutral", *rec.Emotion)
	assert.Nil(t, rec.Error)
}

func TestParseDefaultsCurrencyToVND(t *testing.T) {
	rec, ok := Parse(`{"transactions": [{"transaction_type": "expense", "amount": 50000}]}`)
	require.True(t, ok)
	require.NotNil(t, rec.Currency)
	assert.Equal(t, "VND", *rec.Currency)

	// an explicit currency is never overridden
	rec, ok = Parse(`{"transactions": [{"transaction_type": "expense", "amount": 2, "currency": "USD"}]}`)
	require.True(t, ok)
	assert.Equal(t, "USD", *rec.Currency)
}

func TestParseErrorDocument(t *testing.T) {
	rec, ok := Parse(`{"error": "limit exceeded"}`)
	require.True(t, ok)
	require.NotNil(t, rec.Error)
	assert.Equal(t, "limit exceeded", *rec.Error)
	assert.Nil(t, rec.TransactionType)
}

func TestParsePlainText(t *testing.T) {
	for _, answer := range []string{
		"Xin chào! Mình có thể giúp gì cho bạn?",
		"",
		"   Bạn muốn ghi khoản chi nào?",
	} {
		rec, ok := Parse(answer)
		assert.False(t, ok)
		assert.Nil(t, rec)
	}
}

func TestParseMalformedJSONFallsBack(t *testing.T) {
	rec, ok := Parse(`{"transactions": [ {"amount": 50000 `)
	assert.False(t, ok)
	assert.Nil(t, rec)
}

func TestParseOtherShapesYieldNothing(t *testing.T) {
	// Valid JSON without transactions or error keys is a text-only answer.
	rec, ok := Parse(`{"answer": "hi"}`)
	assert.False(t, ok)
	assert.Nil(t, rec)

	// Arrays parse but carry no transaction document.
	rec, ok = Parse(`[1, 2, 3]`)
	assert.False(t, ok)
	assert.Nil(t, rec)

	// Empty transactions array means no structured data.
	rec, ok = Parse(`{"transactions": []}`)
	assert.False(t, ok)
	assert.Nil(t, rec)
}

func TestParseNumericStringAmount(t *testing.T) {
	rec, ok := Parse(`{"transactions": [{"transaction_type": "income", "amount": "150000"}]}`)
	require.True(t, ok)
	require.NotNil(t, rec.Amount)
	assert.Equal(t, 150000.0, *rec.Amount)

	rec, ok = Parse(`{"transactions": [{"amount": {"value": 1}}]}`)
	require.True(t, ok)
	assert.Nil(t, rec.Amount)
}
