//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

package report

// RiskInfo describes one OWASP LLM Top 10 risk as rendered in reports.
type RiskInfo struct {
	Name     string
	Severity string
}

// owaspOrder fixes the rendering order of the risk catalog.
var owaspOrder = []string{
	"LLM01", "LLM02", "LLM03", "LLM04", "LLM05",
	"LLM06", "LLM07", "LLM08", "LLM09", "LLM10",
}

var owaspRisks = map[string]RiskInfo{
	"LLM01": {Name: "Prompt Injection", Severity: "Critical"},
	"LLM02": {Name: "Insecure Output Handling", Severity: "High"},
	"LLM03": {Name: "Training Data Poisoning", Severity: "High"},
	"LLM04": {Name: "Model Denial of Service", Severity: "High"},
	"LLM05": {Name: "Supply Chain Vulnerabilities", Severity: "Medium"},
	"LLM06": {Name: "Sensitive Information Disclosure", Severity: "Critical"},
	"LLM07": {Name: "Insecure Plugin Design", Severity: "High"},
	"LLM08": {Name: "Excessive Agency", Severity: "High"},
	"LLM09": {Name: "Overreliance", Severity: "Medium"},
	"LLM10": {Name: "Model Theft", Severity: "Medium"},
}

// principleCatalog mirrors the design-principle checklist rendered at the
// bottom of the markdown report.
var principleCatalog = []struct {
	Name        string
	Description string
}{
	{"Scaffolding", "Bot provides step-by-step guidance without overwhelming user"},
	{"Step-by-step_confirmation", "Bot confirms each part before executing"},
	{"Clarification", "Bot asks for clarification when information is ambiguous"},
	{"Feedback", "Bot provides clear feedback after each action"},
}
