//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

// Package client talks to the chatbot service under test. A Client owns one
// stateful conversation session: cookies, guest fingerprint and conversation
// ID live here, so calls on one client must follow the init, ask, reset
// order. Different clients are independent and may run concurrently.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"

	"trpc.group/trpc-go/finbot-eval/evalresult"
	"trpc.group/trpc-go/finbot-eval/log"
	"trpc.group/trpc-go/finbot-eval/transaction"
)

// accessTokenCookie carries the user JWT; the server also sets GUEST_ID here.
const accessTokenCookie = "ACCESS_TOKEN"

// systemPromptOverheadTokens approximates the server-side prompt cost added
// to every question.
const systemPromptOverheadTokens = 200

// SessionInfo is the outcome of initializing a session.
type SessionInfo struct {
	OwnerID        string
	OwnerType      string
	ConversationID string
	Authenticated  bool
	Username       string
	LatencyMs      int
}

// Answer is the outcome of one ask round trip. LatencyMs is populated even
// when the call errors, so failed requests still report their timing.
type Answer struct {
	Text           string
	Parsed         *transaction.Record
	ConversationID string
	MessageID      string
	LatencyMs      int
	TokenUsage     *evalresult.TokenUsage
}

// Client is the transport collaborator for one conversation identity.
type Client struct {
	baseURL  string
	opts     *Options
	identity Identity

	mu             sync.Mutex
	httpClient     *http.Client
	ownerID        string
	ownerType      string
	conversationID string
}

// New creates a client for the given service base URL and identity.
func New(baseURL string, identity Identity, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is empty")
	}
	c := &Client{
		baseURL:  baseURL,
		opts:     NewOptions(opts...),
		identity: identity,
	}
	if err := c.resetHTTPClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) resetHTTPClient() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("create cookie jar: %w", err)
	}
	c.httpClient = &http.Client{
		Timeout:   c.opts.Timeout,
		Jar:       jar,
		Transport: c.opts.Transport,
	}
	return nil
}

// InitSession opens a conversation session. Must be called before Ask. The
// server creates or finds a guest by fingerprint, or identifies the user via
// the JWT cookie, and returns the owner and conversation identifiers.
func (c *Client) InitSession(ctx context.Context) (*SessionInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	body, latency, err := c.do(ctx, http.MethodGet, c.opts.InitSessionPath, nil)
	if err != nil {
		return &SessionInfo{LatencyMs: latency}, err
	}

	// Field names changed across server versions; accept both.
	data := gjson.ParseBytes(body)
	info := &SessionInfo{
		OwnerID: firstString(data,
			"user_id", "ownerId", "GUEST_ID", "guestId"),
		OwnerType:      firstString(data, "sessionType", "ownerType"),
		ConversationID: firstString(data, "conversation_id", "conversationId"),
		Authenticated:  data.Get("authenticated").Bool(),
		Username:       data.Get("username").String(),
		LatencyMs:      latency,
	}
	if info.OwnerType == "" {
		info.OwnerType = "guest"
	}
	c.ownerID = info.OwnerID
	c.ownerType = info.OwnerType
	c.conversationID = info.ConversationID
	log.Debugf("session initialized as %s: %s, conversation %s",
		info.OwnerType, info.OwnerID, info.ConversationID)
	return info, nil
}

// Ask sends one question on the current conversation and extracts any
// structured transaction from the reply.
func (c *Client) Ask(ctx context.Context, question string) (*Answer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := json.Marshal(map[string]string{
		"question":       question,
		"conversationId": c.conversationID,
	})
	if err != nil {
		return &Answer{}, fmt.Errorf("marshal question: %w", err)
	}
	body, latency, err := c.do(ctx, http.MethodPost, c.opts.AskPath, payload)
	if err != nil {
		return &Answer{LatencyMs: latency}, err
	}

	data := gjson.ParseBytes(body)
	text := data.Get("answer").String()
	parsed, _ := transaction.Parse(text)
	answer := &Answer{
		Text:           text,
		Parsed:         parsed,
		ConversationID: data.Get("conversationId").String(),
		MessageID:      data.Get("messageId").String(),
		LatencyMs:      latency,
		TokenUsage:     EstimateTokenUsage(question, text),
	}
	if answer.ConversationID != "" {
		c.conversationID = answer.ConversationID
	}
	return answer, nil
}

// ResetSession drops all conversation state. A guest_new identity also gets
// a fresh fingerprint, so the next InitSession registers as a new guest.
func (c *Client) ResetSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reset(c.identity.Mode == ModeGuestNew)
}

// ResetSessionKeepIdentity drops conversation state but keeps the current
// fingerprint, so the next InitSession resumes the same guest.
func (c *Client) ResetSessionKeepIdentity() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reset(false)
}

func (c *Client) reset(newFingerprint bool) error {
	if newFingerprint {
		c.identity.Fingerprint = GuestNew().Fingerprint
	}
	c.ownerID = ""
	c.ownerType = ""
	c.conversationID = ""
	return c.resetHTTPClient()
}

// ConversationID returns the current conversation, empty before InitSession.
func (c *Client) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// do performs one HTTP call with transparent retries of transient failures
// and returns the response body plus the total measured latency. Callers of
// the evaluation layer only ever see the final outcome.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	start := time.Now()
	var body []byte
	operation := func() error {
		req, err := c.newRequest(ctx, method, path, payload)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		switch {
		case resp.StatusCode == http.StatusOK:
			body = data
			return nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return backoff.Permanent(fmt.Errorf("rate limit exceeded"))
		case resp.StatusCode >= 500:
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, data)
		default:
			return backoff.Permanent(fmt.Errorf("HTTP %d: %s", resp.StatusCode, data))
		}
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.opts.MaxRetries), ctx)
	err := backoff.Retry(operation, policy)
	latency := int(time.Since(start).Milliseconds())
	if err != nil {
		return nil, latency, err
	}
	return body, latency, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload []byte) (*http.Request, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Fingerprint", c.identity.Fingerprint)
	ownerID := c.ownerID
	if ownerID == "" {
		ownerID = c.identity.GuestID
	}
	if ownerID != "" {
		req.Header.Set("X-Owner-Id", ownerID)
	}
	if c.identity.Mode == ModeUser && c.identity.JWTToken != "" {
		req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: c.identity.JWTToken})
	}
	return req, nil
}

// EstimateTokenUsage approximates token consumption from text length.
// Vietnamese averages around three characters per token; the server's own
// prompt adds a fixed overhead on top of the question.
func EstimateTokenUsage(question, answer string) *evalresult.TokenUsage {
	prompt := len(question)/3 + systemPromptOverheadTokens
	completion := len(answer) / 3
	return &evalresult.TokenUsage{
		Prompt:     prompt,
		Completion: completion,
		Total:      prompt + completion,
	}
}

func firstString(data gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := data.Get(key); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
