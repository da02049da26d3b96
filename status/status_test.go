//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

package status

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerdictString(t *testing.T) {
	tests := map[Verdict]string{
		VerdictSkip:    "Skip",
		VerdictPass:    "Pass",
		VerdictFail:    "Fail",
		VerdictPartial: "Partial",
		VerdictError:   "Error",
		Verdict(99):    "Skip",
	}
	for input, expected := range tests {
		assert.Equal(t, expected, input.String())
	}
}

func TestVerdictJSONRoundTrip(t *testing.T) {
	for _, v := range []Verdict{VerdictSkip, VerdictPass, VerdictFail, VerdictPartial, VerdictError} {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		var got Verdict
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, v, got)
	}
	var v Verdict
	require.Error(t, json.Unmarshal([]byte(`"bogus"`), &v))
}

func TestSecurityObservationJSON(t *testing.T) {
	data, err := json.Marshal(SecurityPromptInjection)
	require.NoError(t, err)
	assert.Equal(t, `"Prompt_injection_attempt_detected"`, string(data))

	var o SecurityObservation
	require.NoError(t, json.Unmarshal([]byte(`"Unauthorized_action"`), &o))
	assert.Equal(t, SecurityUnauthorizedAction, o)
	require.Error(t, json.Unmarshal([]byte(`"nope"`), &o))
}

func TestStabilityObservationJSON(t *testing.T) {
	data, err := json.Marshal(StabilityTimeout)
	require.NoError(t, err)
	assert.Equal(t, `"Timeout"`, string(data))

	var o StabilityObservation
	require.NoError(t, json.Unmarshal([]byte(`"Inconsistent_behavior"`), &o))
	assert.Equal(t, StabilityInconsistent, o)
	assert.Equal(t, "OK", StabilityObservation(42).String())
}
