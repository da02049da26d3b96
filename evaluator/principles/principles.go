//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

// Package principles checks a bot response against interaction-design
// principle heuristics. Checks annotate results and never change verdicts.
package principles

import (
	"fmt"
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	sentencesdata "github.com/neurosnap/sentences/data"
)

// Principle names as they appear in test suites.
const (
	StepByStepConfirmation = "Step-by-step_confirmation"
	Clarification          = "Clarification"
	Scaffolding            = "Scaffolding"
	Feedback               = "Feedback"
)

// Indicator keyword families per principle. Matching is substring-based on
// the lower-cased response; Vietnamese is the bot's primary language.
var indicators = map[string][]string{
	StepByStepConfirmation: {
		"đã ghi", "đã lưu", "xác nhận", "confirm",
		"chi", "thu", "vnd", "đồng",
	},
	Clarification: {
		"bạn có thể", "bạn muốn", "xin hỏi", "cho mình biết",
		"bao nhiêu", "là gì", "?", "chưa rõ",
	},
	Scaffolding: {
		"ví dụ", "bước", "cách", "hướng dẫn",
		"1.", "2.", "-", "•",
	},
	Feedback: {
		"đã", "thành công", "hoàn tất", "xong",
		"được", "ok", "rồi",
	},
}

var (
	// tokenizerOnce ensures the Punkt model is loaded once.
	tokenizerOnce sync.Once
	// tokenizer holds the initialized sentence tokenizer instance.
	tokenizer *sentences.DefaultSentenceTokenizer
	// tokenizerErr caches any initialization error.
	tokenizerErr error
)

// sentTokenize splits the response into sentences using Punkt training data.
// Vietnamese uses the same terminal punctuation as English, so the English
// model splits it acceptably.
func sentTokenize(text string) ([]string, error) {
	tokenizerOnce.Do(func() {
		b, err := sentencesdata.Asset("data/english.json")
		if err != nil {
			tokenizerErr = fmt.Errorf("load punkt data: %w", err)
			return
		}
		training, err := sentences.LoadTraining(b)
		if err != nil {
			tokenizerErr = fmt.Errorf("parse punkt data: %w", err)
			return
		}
		tokenizer = sentences.NewSentenceTokenizer(training)
	})
	if tokenizerErr != nil {
		return nil, tokenizerErr
	}
	raw := tokenizer.Tokenize(text)
	out := make([]string, 0, len(raw))
	for _, sent := range raw {
		if s := strings.TrimSpace(sent.Text); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// Check evaluates each targeted principle against the response and returns a
// name-to-satisfied map. Unknown principle names map to false.
func Check(targets []string, response string) map[string]bool {
	if len(targets) == 0 {
		return nil
	}
	lower := strings.ToLower(response)
	out := make(map[string]bool, len(targets))
	for _, principle := range targets {
		out[principle] = satisfied(principle, response, lower)
	}
	return out
}

func satisfied(principle, response, lower string) bool {
	for _, ind := range indicators[principle] {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	// Structural signal for scaffolding, which keyword families alone miss.
	// Clarification needs no equivalent: question-form replies carry "?",
	// already in its keyword list.
	if principle == Scaffolding {
		return looksStructured(response)
	}
	return false
}

// looksStructured reports whether the response reads like step-by-step
// guidance: three or more sentences, or multiple bulleted lines.
func looksStructured(response string) bool {
	bullets := 0
	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "+") {
			bullets++
		}
	}
	if bullets >= 2 {
		return true
	}
	sents, err := sentTokenize(response)
	if err != nil {
		return false
	}
	return len(sents) >= 3
}

// Unmet returns the targeted principles that did not pass, in target order.
func Unmet(targets []string, checks map[string]bool) []string {
	var out []string
	for _, p := range targets {
		if !checks[p] {
			out = append(out, p)
		}
	}
	return out
}
