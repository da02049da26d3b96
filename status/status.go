//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

// Package status defines the closed result classifications of a test execution.
package status

import (
	"encoding/json"
	"fmt"
)

// Verdict is the terminal classification of a single test execution.
type Verdict int

const (
	// VerdictSkip is the pre-evaluation default. It must never survive as
	// the final verdict of an executed test; the resolver always replaces it.
	VerdictSkip Verdict = iota
	// VerdictPass indicates the test met its expectations.
	VerdictPass
	// VerdictFail indicates the test missed its expectations or a security
	// detector fired.
	VerdictFail
	// VerdictPartial indicates some but not all critical expectations matched.
	VerdictPartial
	// VerdictError indicates transport or execution failure. Scoring logic
	// never produces it.
	VerdictError
)

// String returns the serialized form of the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "Pass"
	case VerdictFail:
		return "Fail"
	case VerdictPartial:
		return "Partial"
	case VerdictError:
		return "Error"
	default:
		return "Skip"
	}
}

// MarshalJSON serializes the verdict as a string so persisted results stay a
// flat record of primitives.
func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON parses the string form of a verdict.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Pass":
		*v = VerdictPass
	case "Fail":
		*v = VerdictFail
	case "Partial":
		*v = VerdictPartial
	case "Error":
		*v = VerdictError
	case "Skip":
		*v = VerdictSkip
	default:
		return fmt.Errorf("unknown verdict %q", s)
	}
	return nil
}

// SecurityObservation is the security diagnostic tag attached to a result.
// At most one is recorded per test; the first detected risk wins.
type SecurityObservation int

const (
	// SecurityOK indicates no targeted detector fired.
	SecurityOK SecurityObservation = iota
	// SecurityPromptInjection indicates the response shows signs of a
	// successful prompt injection.
	SecurityPromptInjection
	// SecuritySystemPromptLeakage indicates sensitive information, such as
	// system prompt fragments, leaked into the response.
	SecuritySystemPromptLeakage
	// SecurityViolation indicates unescaped dangerous content in the output.
	SecurityViolation
	// SecuritySuspicious flags behavior that warrants manual review.
	SecuritySuspicious
	// SecurityUnauthorizedAction indicates the bot claimed or performed an
	// action the user did not authorize.
	SecurityUnauthorizedAction
)

// String returns the serialized form of the observation.
func (o SecurityObservation) String() string {
	switch o {
	case SecurityPromptInjection:
		return "Prompt_injection_attempt_detected"
	case SecuritySystemPromptLeakage:
		return "System_prompt_leakage"
	case SecurityViolation:
		return "Security_violation"
	case SecuritySuspicious:
		return "Suspicious"
	case SecurityUnauthorizedAction:
		return "Unauthorized_action"
	default:
		return "OK"
	}
}

// MarshalJSON serializes the observation as a string.
func (o SecurityObservation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON parses the string form of a security observation.
func (o *SecurityObservation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "OK":
		*o = SecurityOK
	case "Prompt_injection_attempt_detected":
		*o = SecurityPromptInjection
	case "System_prompt_leakage":
		*o = SecuritySystemPromptLeakage
	case "Security_violation":
		*o = SecurityViolation
	case "Suspicious":
		*o = SecuritySuspicious
	case "Unauthorized_action":
		*o = SecurityUnauthorizedAction
	default:
		return fmt.Errorf("unknown security observation %q", s)
	}
	return nil
}

// StabilityObservation is the stability diagnostic tag attached to a result.
type StabilityObservation int

const (
	// StabilityOK indicates no stability issue was observed.
	StabilityOK StabilityObservation = iota
	// StabilityTimeout indicates the response exceeded the critical latency
	// threshold or the transport timed out.
	StabilityTimeout
	// StabilityError indicates a transport error or error wording in the
	// response text.
	StabilityError
	// StabilityRetry indicates the transport had to retry before succeeding.
	StabilityRetry
	// StabilityInconsistent flags behavior that differs across identical runs.
	StabilityInconsistent
)

// String returns the serialized form of the observation.
func (o StabilityObservation) String() string {
	switch o {
	case StabilityTimeout:
		return "Timeout"
	case StabilityError:
		return "Error"
	case StabilityRetry:
		return "Retry"
	case StabilityInconsistent:
		return "Inconsistent_behavior"
	default:
		return "OK"
	}
}

// MarshalJSON serializes the observation as a string.
func (o StabilityObservation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON parses the string form of a stability observation.
func (o *StabilityObservation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "OK":
		*o = StabilityOK
	case "Timeout":
		*o = StabilityTimeout
	case "Error":
		*o = StabilityError
	case "Retry":
		*o = StabilityRetry
	case "Inconsistent_behavior":
		*o = StabilityInconsistent
	default:
		return fmt.Errorf("unknown stability observation %q", s)
	}
	return nil
}
