//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

package client

import (
	"net/http"
	"time"
)

// Options configures a Client.
type Options struct {
	// Timeout is the per-request deadline.
	Timeout time.Duration
	// MaxRetries bounds transparent retries of transient failures.
	MaxRetries uint64
	// InitSessionPath and AskPath override the default endpoints.
	InitSessionPath string
	AskPath         string
	// Transport overrides the underlying HTTP round tripper, for tests.
	Transport http.RoundTripper
}

// Option updates client options.
type Option func(*Options)

// NewOptions returns options with defaults applied, then the given overrides.
func NewOptions(opts ...Option) *Options {
	o := &Options{
		Timeout:         30 * time.Second,
		MaxRetries:      2,
		InitSessionPath: "/api/init-session",
		AskPath:         "/api/ask",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithTimeout sets the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithMaxRetries bounds transparent retries of transient failures. Zero
// disables retrying.
func WithMaxRetries(n uint64) Option {
	return func(o *Options) { o.MaxRetries = n }
}

// WithEndpoints overrides the session and ask endpoint paths.
func WithEndpoints(initSessionPath, askPath string) Option {
	return func(o *Options) {
		o.InitSessionPath = initSessionPath
		o.AskPath = askPath
	}
}

// WithTransport overrides the HTTP round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *Options) { o.Transport = rt }
}
