// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agents

import (
	"errors"
	"fmt"
)

// ===== Sentinel Errors =====

var (
	// ErrOracleTimeout indicates the reasoning backend did not answer
	// within the configured per-call deadline.
	ErrOracleTimeout = errors.New("oracle call timed out")

	// ErrOracleMalformed indicates the backend answered but the content
	// was unusable (empty, or failed the expected structure).
	ErrOracleMalformed = errors.New("oracle returned malformed response")
)

// OracleError carries the role and operation context of a failed
// reasoning call. Errors are classified and wrapped at the role-agent
// boundary so the pipeline never sees a raw transport error, and never
// a silently empty result.
type OracleError struct {
	// Role is the agent that made the call (e.g. "cro").
	Role string

	// Op is the operation name (e.g. "review", "aggregate").
	Op string

	// Attempts is how many attempts were made before giving up.
	Attempts int

	// Err is the underlying cause, typically wrapping ErrOracleTimeout
	// or ErrOracleMalformed.
	Err error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("agent %s: %s failed after %d attempt(s): %v", e.Role, e.Op, e.Attempts, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a failed attempt should be retried with
// backoff. Timeouts and malformed responses are transient backend
// conditions; everything else (cancellation, auth, connection refusal
// surfaced by the client) fails fast.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrOracleTimeout) || errors.Is(err, ErrOracleMalformed)
}
