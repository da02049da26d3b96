//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"trpc.group/trpc-go/finbot-eval/evalresult"
)

// csvHeader is the flat record-of-primitives contract: every enum renders
// as its string form and every nested structure as an embedded JSON string,
// so spreadsheet tools can consume rows without schema knowledge.
var csvHeader = []string{
	"Test_Run_ID",
	"Test_Case_ID",
	"Date",
	"Tester",
	"Environment",
	"LLM_Model",
	"Actual_Bot_Response",
	"Actual_Parsed_Transaction",
	"Pass_Fail",
	"Issues_Found",
	"Measured_Latency_ms",
	"Measured_Cost_VND",
	"Token_Usage",
	"Accuracy_Score_percent",
	"Security_Observation",
	"Stability_Observation",
	"CLASS_Principles_Check",
	"OWASP_Check",
	"Notes",
}

// WriteCSV renders results as CSV rows under csvHeader.
func WriteCSV(w io.Writer, results []evalresult.TestRunResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range results {
		row, err := csvRow(&results[i])
		if err != nil {
			return err
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", results[i].TestCaseID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(r *evalresult.TestRunResult) ([]string, error) {
	var parsed, tokens, principles, owasp string
	var err error
	if r.ActualParsed != nil {
		if parsed, err = embedJSON(r.ActualParsed); err != nil {
			return nil, fmt.Errorf("encode parsed transaction for %s: %w", r.TestCaseID, err)
		}
	}
	if r.TokenUsage != nil {
		if tokens, err = embedJSON(r.TokenUsage); err != nil {
			return nil, fmt.Errorf("encode token usage for %s: %w", r.TestCaseID, err)
		}
	}
	if len(r.PrinciplesCheck) > 0 {
		if principles, err = embedJSON(r.PrinciplesCheck); err != nil {
			return nil, fmt.Errorf("encode principles check for %s: %w", r.TestCaseID, err)
		}
	}
	if len(r.OWASPCheck) > 0 {
		if owasp, err = embedJSON(r.OWASPCheck); err != nil {
			return nil, fmt.Errorf("encode owasp check for %s: %w", r.TestCaseID, err)
		}
	}
	return []string{
		r.TestRunID,
		r.TestCaseID,
		r.Date,
		r.Tester,
		r.Environment,
		r.LLMModel,
		r.ActualBotResponse,
		parsed,
		r.Verdict.String(),
		strconv.FormatBool(r.IssuesFound),
		strconv.Itoa(r.MeasuredLatencyMs),
		strconv.FormatFloat(r.MeasuredCostVND, 'f', 2, 64),
		tokens,
		strconv.FormatFloat(r.AccuracyPercent, 'f', 1, 64),
		r.Security.String(),
		r.Stability.String(),
		principles,
		owasp,
		r.Notes,
	}, nil
}

// embedJSON renders v as an embedded JSON string cell.
func embedJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
