// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// ToolStatus is the registry-visible state of a managed tool.
type ToolStatus string

const (
	ToolActive ToolStatus = "ACTIVE"
	ToolBroken ToolStatus = "BROKEN"
)

// ToolUpdate is the registry intent the self-healing loop emits when a
// repair run ends. The registry itself lives outside the deliberation
// core; the loop only issues the intent.
type ToolUpdate struct {
	Name      string     `json:"name" validate:"required"`
	Status    ToolStatus `json:"status" validate:"required,oneof=ACTIVE BROKEN"`
	LastError string     `json:"last_error,omitempty"`
	Attempts  int        `json:"attempts" validate:"gte=0"`
}
