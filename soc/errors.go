// Copyright 2026 The hwsoc Authors. All rights reserved.
// Licensed under the MIT license. See license text in the LICENSE file.

package soc

import (
	"fmt"
	"strings"
)

// A ConfigurationError reports an invalid configuration. Key is the path of
// the offending configuration key, like "cores[1].base".
//
type ConfigurationError struct {
	Key string
	Msg string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return "configuration: " + e.Msg
	}
	return "configuration: " + e.Key + ": " + e.Msg
}

func configError(key string, format string, args ...interface{}) error {
	return &ConfigurationError{Key: key, Msg: fmt.Sprintf(format, args...)}
}

// An InvocationConflictError reports command line flags that cannot be used
// together.
//
type InvocationConflictError struct {
	Flags []string
}

func (e *InvocationConflictError) Error() string {
	return "cannot use " + strings.Join(e.Flags, ", ") + " together: use --sim alone to simulate the core"
}

// A ToolchainError reports the failure of an external command. Output holds
// the command's combined output verbatim.
//
type ToolchainError struct {
	Step   string
	Args   []string
	Output []byte
	Err    error
}

func (e *ToolchainError) Error() string {
	msg := e.Step + ": " + strings.Join(e.Args, " ") + ": " + e.Err.Error()
	if out := strings.TrimSpace(string(e.Output)); out != "" {
		msg += "\n" + out
	}
	return msg
}

// Cause returns the underlying error.
//
func (e *ToolchainError) Cause() error { return e.Err }

// Unwrap returns the underlying error.
//
func (e *ToolchainError) Unwrap() error { return e.Err }
