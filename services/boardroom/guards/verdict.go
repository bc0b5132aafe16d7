// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package guards

import (
	"regexp"
	"strings"

	"github.com/boardroom-ai/boardroom/services/boardroom/datatypes"
)

// verdictLineRegex matches the structured verdict line role agents are
// instructed to emit, e.g. "VERDICT: VETO". Case-insensitive, tolerant
// of surrounding whitespace and markdown emphasis.
var verdictLineRegex = regexp.MustCompile(`(?im)^\s*\**\s*VERDICT\s*[:：]\s*\**\s*(APPROVE|REJECT|VETO)\b`)

// ParseStructuredVerdict extracts the declared verdict line from a
// reviewer's output. This is the primary path: agents are prompted to
// emit exactly one "VERDICT: <APPROVE|REJECT|VETO>" line, and only that
// line is trusted. Returns false when no such line exists, in which
// case callers fall back to ExtractVerdict.
func ParseStructuredVerdict(analysis string) (datatypes.Verdict, bool) {
	m := verdictLineRegex.FindStringSubmatch(analysis)
	if m == nil {
		return datatypes.VerdictPending, false
	}
	switch strings.ToUpper(m[1]) {
	case "VETO":
		return datatypes.VerdictVeto, true
	case "REJECT":
		return datatypes.VerdictReject, true
	default:
		return datatypes.VerdictApprove, true
	}
}

// ExtractVerdict classifies free-text reviewer output by keyword
// presence, checked in fixed priority order: VETO wins over REJECT,
// which wins over the default APPROVE.
//
// This is a deliberately lossy legacy classifier — the word "veto" in
// an explanatory aside will trigger escalation. It exists only as the
// fallback for backends that ignore the structured verdict contract,
// and it is kept as a separate unit so it can be replaced without
// touching the state machines.
func ExtractVerdict(analysis string) datatypes.Verdict {
	upper := strings.ToUpper(analysis)
	if strings.Contains(upper, "VETO") {
		return datatypes.VerdictVeto
	}
	if strings.Contains(upper, "REJECT") {
		return datatypes.VerdictReject
	}
	return datatypes.VerdictApprove
}

// ResolveVerdict applies the structured contract first and the keyword
// fallback second. This is what the review stages call.
func ResolveVerdict(analysis string) datatypes.Verdict {
	if v, ok := ParseStructuredVerdict(analysis); ok {
		return v
	}
	return ExtractVerdict(analysis)
}
