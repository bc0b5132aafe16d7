// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command boardroom runs the multi-agent deliberation service and the
// CLI that talks to it.
package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/boardroom-ai/boardroom/services/boardroom/config"
)

var rootCmd = &cobra.Command{
	Use:   "boardroom",
	Short: "A deliberation engine where role agents debate decisions before anything executes",
	Long: `Boardroom routes every strategic intent to a meeting of role agents:
a joint session for routine decisions, an adversarial hearing for
escalations, an exploration chat for open-ended strategy, and a
self-healing loop for operational faults. Decisions that clear the
auto-judge execute on their own; everything else suspends for the
human principal.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if err := config.Load(); err != nil {
			log.Fatalf("Error loading configuration: %v", err)
		}
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(floorCmd)
	rootCmd.AddCommand(healCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(transcriptCmd)
}
