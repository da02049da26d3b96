//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

package evalset

// defaultBaseDir is the default base directory for suite files.
const defaultBaseDir = "."

// DefaultSuiteExtension is the default extension for suite files.
const DefaultSuiteExtension = ".json"

// Options configure the local suite manager.
type Options struct {
	BaseDir   string // BaseDir is the base directory for suite files.
	Extension string // Extension is the suite file extension.
}

// NewOptions constructs Options with the default values.
func NewOptions(opts ...Option) *Options {
	options := &Options{
		BaseDir:   defaultBaseDir,
		Extension: DefaultSuiteExtension,
	}
	for _, o := range opts {
		o(options)
	}
	return options
}

// Option is a functional option for configuring the suite manager.
type Option func(*Options)

// WithBaseDir sets the root directory containing suite JSON files.
func WithBaseDir(dir string) Option {
	return func(o *Options) {
		o.BaseDir = dir
	}
}

// WithExtension sets the suite file extension.
func WithExtension(ext string) Option {
	return func(o *Options) {
		o.Extension = ext
	}
}
