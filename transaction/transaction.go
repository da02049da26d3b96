//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

// Package transaction defines the transaction record shared by test
// expectations and parsed bot responses.
package transaction

// Record is a single financial transaction as the bot reports it.
// Every field is optional; a nil field means the value was not present.
// Expectations use the same shape: only non-nil fields carry weight during
// scoring.
type Record struct {
	// TransactionType is expense, income or transfer.
	TransactionType *string `json:"transaction_type,omitempty"`
	// Amount is the transaction amount in the given currency.
	Amount *float64 `json:"amount,omitempty"`
	// Currency is the ISO-ish currency code, usually VND.
	Currency *string `json:"currency,omitempty"`
	// CategoryID is the internal category identifier.
	CategoryID *string `json:"category_id,omitempty"`
	// CategoryName is the human-readable category label.
	CategoryName *string `json:"category_name,omitempty"`
	// TransactionDate is the transaction date. Expectations may use the
	// relative sentinels "today", "yesterday", "tomorrow" or "relative:-1day".
	TransactionDate *string `json:"transaction_date,omitempty"`
	// Description is the free-text description the bot generated.
	Description *string `json:"description,omitempty"`
	// MemberID identifies the family member the transaction belongs to.
	MemberID *string `json:"member_id,omitempty"`
	// DisplayName is the display name of that member.
	DisplayName *string `json:"display_name,omitempty"`
	// TransactionsCount is the number of transactions in the reply.
	TransactionsCount *int `json:"transactions_count,omitempty"`
	// Confidence is the bot's self-reported parsing confidence.
	Confidence *float64 `json:"confidence,omitempty"`
	// ID is the persisted transaction identifier, when the bot returns one.
	ID *string `json:"id,omitempty"`
	// Summary is an optional side-channel summary accompanying the reply.
	Summary *string `json:"summary,omitempty"`
	// Emotion is an optional side-channel emotion tag accompanying the reply.
	Emotion *string `json:"emotion,omitempty"`
	// Error is set when the bot reply encodes an error document instead of
	// transaction data.
	Error *string `json:"error,omitempty"`
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

// Int returns a pointer to i.
func Int(i int) *int { return &i }
