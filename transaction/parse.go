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
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// defaultCurrency fills in for transactions the bot reports without an
// explicit currency; the service quotes VND unless told otherwise.
const defaultCurrency = "VND"

// Parse inspects a raw bot answer and extracts an embedded transaction record
// when the answer encodes one as a JSON document. The answer is considered a
// candidate only if, after trimming whitespace, it begins with '{' or '['.
//
// A document with a non-empty "transactions" array yields the first element's
// fields plus the array length; detail beyond the first transaction is not
// modeled, which is a known limitation of the current scope. A document with
// an "error" key yields a Record carrying only that error. Any other shape,
// including malformed JSON, yields no record: the answer is treated as plain
// text and evaluation continues without structured data.
func Parse(answer string) (*Record, bool) {
	trimmed := strings.TrimSpace(answer)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return nil, false
	}
	if !gjson.Valid(trimmed) {
		return nil, false
	}
	doc := gjson.Parse(trimmed)
	if txns := doc.Get("transactions"); txns.IsArray() {
		list := txns.Array()
		if len(list) == 0 {
			return nil, false
		}
		rec := recordFromJSON(list[0])
		rec.TransactionsCount = Int(len(list))
		if summary := doc.Get("summary"); summary.Exists() {
			rec.Summary = String(summary.String())
		}
		if emotion := doc.Get("emotion"); emotion.Exists() {
			rec.Emotion = String(emotion.String())
		}
		return rec, true
	}
	if errVal := doc.Get("error"); errVal.Exists() {
		return &Record{Error: String(errVal.String())}, true
	}
	return nil, false
}

// recordFromJSON copies the known transaction fields out of a JSON element.
// Missing or null fields stay nil, except currency which falls back to VND;
// a field of the wrong type is dropped rather than failing the parse.
func recordFromJSON(tx gjson.Result) *Record {
	rec := &Record{
		TransactionType: stringField(tx, "transaction_type"),
		Currency:        stringField(tx, "currency"),
		CategoryID:      stringField(tx, "category_id"),
		CategoryName:    stringField(tx, "category_name"),
		TransactionDate: stringField(tx, "transaction_date"),
		Description:     stringField(tx, "description"),
		MemberID:        stringField(tx, "member_id"),
		DisplayName:     stringField(tx, "display_name"),
		ID:              stringField(tx, "id"),
	}
	rec.Amount = numberField(tx, "amount")
	rec.Confidence = numberField(tx, "confidence")
	if rec.Currency == nil {
		rec.Currency = String(defaultCurrency)
	}
	return rec
}

func stringField(tx gjson.Result, field string) *string {
	v := tx.Get(field)
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	return String(v.String())
}

// numberField accepts JSON numbers and numeric strings; anything else is nil.
func numberField(tx gjson.Result, field string) *float64 {
	v := tx.Get(field)
	switch v.Type {
	case gjson.Number:
		return Float(v.Float())
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return nil
		}
		return Float(f)
	default:
		return nil
	}
}
