//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

// Package main is the entry point for the finbot-eval command line tool.
package main

func main() {
	Execute()
}
