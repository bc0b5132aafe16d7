// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sandbox executes candidate repair code in an isolated,
// time-bounded environment. Every run happens in a throwaway working
// directory with its own process group; on timeout the whole group is
// killed, never abandoned, and the caller gets a structured failure
// with exit code -1 instead of an error.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/boardroom-ai/boardroom/pkg/logging"
	"github.com/boardroom-ai/boardroom/services/boardroom/config"
)

// SyntaxResult reports a cheap pre-flight parse of candidate code.
type SyntaxResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// RunResult is the structured outcome of one sandbox execution.
// Timeouts are reported here (ExitCode -1), never as a Go error.
type RunResult struct {
	Success    bool   `json:"success"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
}

// Executor runs candidate code under a configured interpreter.
type Executor struct {
	interpreter string
	timeout     time.Duration
	log         *logging.Logger
}

// NewExecutor builds an executor from the sandbox configuration.
func NewExecutor(cfg config.SandboxConfig, log *logging.Logger) *Executor {
	return &Executor{
		interpreter: cfg.Interpreter,
		timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		log:         log.With("component", "sandbox"),
	}
}

// CheckSyntax parses the candidate without executing it. Interpreters
// without a parse-only mode skip the check and report valid; the full
// run still catches anything a parse would have.
func (e *Executor) CheckSyntax(ctx context.Context, code string) (SyntaxResult, error) {
	args, ok := syntaxArgs(e.interpreter)
	if !ok {
		return SyntaxResult{Valid: true}, nil
	}

	dir, err := os.MkdirTemp("", "boardroom-syntax-*")
	if err != nil {
		return SyntaxResult{}, fmt.Errorf("create sandbox dir: %w", err)
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "candidate"+scriptExt(e.interpreter))
	if err := os.WriteFile(file, []byte(code), 0o600); err != nil {
		return SyntaxResult{}, fmt.Errorf("write candidate: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	res := e.execute(checkCtx, dir, e.interpreter, append(args, file)...)
	if res.ExitCode == 0 {
		return SyntaxResult{Valid: true}, nil
	}
	return SyntaxResult{Valid: false, Errors: splitLines(res.Stderr)}, nil
}

// Run executes the candidate code together with its generated test in
// an isolated directory. An empty code string is a trivial pass: there
// is nothing to test, which is exactly the direct-retry repair path.
func (e *Executor) Run(ctx context.Context, code, testCode string, timeout time.Duration) (RunResult, error) {
	if strings.TrimSpace(code) == "" && strings.TrimSpace(testCode) == "" {
		return RunResult{Success: true, ExitCode: 0}, nil
	}
	if timeout <= 0 {
		timeout = e.timeout
	}

	dir, err := os.MkdirTemp("", "boardroom-sandbox-*")
	if err != nil {
		return RunResult{}, fmt.Errorf("create sandbox dir: %w", err)
	}
	defer os.RemoveAll(dir)

	ext := scriptExt(e.interpreter)
	if err := os.WriteFile(filepath.Join(dir, "candidate"+ext), []byte(code), 0o600); err != nil {
		return RunResult{}, fmt.Errorf("write candidate: %w", err)
	}

	// The test file drives the run; it imports or sources the candidate.
	entry := filepath.Join(dir, "candidate_test"+ext)
	if strings.TrimSpace(testCode) == "" {
		entry = filepath.Join(dir, "candidate"+ext)
	} else if err := os.WriteFile(entry, []byte(testCode), 0o600); err != nil {
		return RunResult{}, fmt.Errorf("write test: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := e.execute(runCtx, dir, e.interpreter, entry)
	if runCtx.Err() == context.DeadlineExceeded {
		e.log.Warn("sandbox run timed out", "timeout", timeout)
		return RunResult{Success: false, Stderr: "sandbox timeout", ExitCode: -1, DurationMS: res.DurationMS}, nil
	}
	return res, nil
}

// execute runs one command in its own process group so a timeout kills
// the interpreter and everything it spawned.
func (e *Executor) execute(ctx context.Context, dir, name string, args ...string) RunResult {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start).Milliseconds()

	exitCode := 0
	if err != nil {
		exitCode = -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
	}

	return RunResult{
		Success:    err == nil,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		ExitCode:   exitCode,
		DurationMS: duration,
	}
}

// syntaxArgs returns the parse-only invocation for known interpreters.
func syntaxArgs(interpreter string) ([]string, bool) {
	base := filepath.Base(interpreter)
	switch {
	case strings.HasPrefix(base, "python"):
		return []string{"-m", "py_compile"}, true
	case base == "sh" || base == "bash" || base == "dash":
		return []string{"-n"}, true
	default:
		return nil, false
	}
}

func scriptExt(interpreter string) string {
	base := filepath.Base(interpreter)
	switch {
	case strings.HasPrefix(base, "python"):
		return ".py"
	case base == "sh" || base == "bash" || base == "dash":
		return ".sh"
	default:
		return ""
	}
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
