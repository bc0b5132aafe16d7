// Copyright (C) 2026 Boardroom Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/boardroom-ai/boardroom/services/boardroom/config"
	"github.com/boardroom-ai/boardroom/services/boardroom/handlers"
)

var (
	runCmd = &cobra.Command{
		Use:   "run [intent]",
		Short: "Submit a strategic intent for deliberation",
		Long: `Sends an intent to a running boardroom service. The coordinator
classifies it and routes it to the right meeting; the trace ID printed
here tracks it through status, transcript, and resume.`,
		Args: cobra.MinimumNArgs(1),
		Run:  runRunCommand,
	}
	floorCmd = &cobra.Command{
		Use:   "floor [topic]",
		Short: "Open a free discussion among the seats on a topic",
		Args:  cobra.MinimumNArgs(1),
		Run:   runFloorCommand,
	}
	healCmd = &cobra.Command{
		Use:   "heal [tool] [error message]",
		Short: "Start a self-healing session for a failing tool",
		Args:  cobra.MinimumNArgs(2),
		Run:   runHealCommand,
	}
	resumeCmd = &cobra.Command{
		Use:   "resume [trace-id] [APPROVED|REJECTED|REVISE]",
		Short: "Deliver your verdict on a session suspended at the checkpoint",
		Args:  cobra.ExactArgs(2),
		Run:   runResumeCommand,
	}
	statusCmd = &cobra.Command{
		Use:   "status [trace-id]",
		Short: "Show where a session is in its deliberation",
		Args:  cobra.ExactArgs(1),
		Run:   runStatusCommand,
	}
	transcriptCmd = &cobra.Command{
		Use:   "transcript [trace-id]",
		Short: "Print the full meeting transcript for a session",
		Args:  cobra.ExactArgs(1),
		Run:   runTranscriptCommand,
	}
)

// serverURL resolves the service base URL: BOARDROOM_SERVER wins, then
// the configured port on localhost.
func serverURL() string {
	if u := os.Getenv("BOARDROOM_SERVER"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return fmt.Sprintf("http://localhost:%d", config.Snapshot().Server.Port)
}

func postJSON(path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	httpClient := &http.Client{Timeout: 60 * time.Second}
	resp, err := httpClient.Post(serverURL()+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("is the boardroom service running? %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func getJSON(path string, out any) error {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	resp, err := httpClient.Get(serverURL() + path)
	if err != nil {
		return fmt.Errorf("is the boardroom service running? %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr handlers.ErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (%s)", apiErr.Error, apiErr.Code)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return json.Unmarshal(data, out)
}

func printSession(s handlers.SessionResponse) {
	fmt.Printf("Trace ID:  %s\n", s.TraceID)
	fmt.Printf("Meeting:   %s\n", s.MeetingType)
	fmt.Printf("Phase:     %s\n", s.Phase)
	if s.IntentCategory != "" {
		fmt.Printf("Category:  %s\n", s.IntentCategory)
	}
	fmt.Printf("Verdict:   %s\n", s.L0Verdict)
	if s.CheckpointDeadline != nil {
		fmt.Printf("Deadline:  %s\n", s.CheckpointDeadline.Format(time.RFC3339))
	}
	if s.Outcome != "" {
		fmt.Printf("Outcome:   %s\n", s.Outcome)
	}
}

func runRunCommand(cmd *cobra.Command, args []string) {
	intent := strings.Join(args, " ")
	fmt.Printf("Submitting intent: %s\n---\n", intent)

	var resp handlers.SessionResponse
	if err := postJSON("/v1/sessions", handlers.StartSessionRequest{Intent: intent}, &resp); err != nil {
		log.Fatalf("Error: %v", err)
	}
	printSession(resp)
	fmt.Printf("\nFollow along with: boardroom status %s\n", resp.TraceID)
}

func runFloorCommand(cmd *cobra.Command, args []string) {
	topic := strings.Join(args, " ")
	fmt.Printf("Opening the floor on: %s\n---\n", topic)

	var resp handlers.SessionResponse
	if err := postJSON("/v1/sessions/floor", handlers.StartFloorRequest{Topic: topic}, &resp); err != nil {
		log.Fatalf("Error: %v", err)
	}
	printSession(resp)
}

func runHealCommand(cmd *cobra.Command, args []string) {
	tool := args[0]
	message := strings.Join(args[1:], " ")
	fmt.Printf("Starting self-heal for %s\n---\n", tool)

	var resp handlers.SessionResponse
	req := handlers.HealRequest{ToolName: tool, Message: message}
	if err := postJSON("/v1/sessions/heal", req, &resp); err != nil {
		log.Fatalf("Error: %v", err)
	}
	printSession(resp)
}

func runResumeCommand(cmd *cobra.Command, args []string) {
	traceID, verdict := args[0], strings.ToUpper(args[1])

	var resp handlers.SessionResponse
	req := handlers.ResumeRequest{Verdict: verdict}
	if err := postJSON("/v1/sessions/"+traceID+"/resume", req, &resp); err != nil {
		log.Fatalf("Error: %v", err)
	}
	fmt.Printf("Verdict %s applied.\n---\n", verdict)
	printSession(resp)
}

func runStatusCommand(cmd *cobra.Command, args []string) {
	var resp handlers.SessionResponse
	if err := getJSON("/v1/sessions/"+args[0], &resp); err != nil {
		log.Fatalf("Error: %v", err)
	}
	printSession(resp)
	fmt.Printf("Iteration: %d  Proposals: %d  Turns: %d\n",
		resp.IterationCount, resp.ProposalVersions, resp.TranscriptTurns)
}

func runTranscriptCommand(cmd *cobra.Command, args []string) {
	var resp handlers.TranscriptResponse
	if err := getJSON("/v1/sessions/"+args[0]+"/transcript", &resp); err != nil {
		log.Fatalf("Error: %v", err)
	}

	fmt.Printf("Transcript for %s (phase %s)\n---\n", resp.TraceID, resp.Phase)
	for _, entry := range resp.Transcript {
		pass := ""
		if entry.IsPass {
			pass = " (pass)"
		}
		fmt.Printf("[round %d] %s%s:\n%s\n\n", entry.Round, entry.Speaker, pass, entry.Content)
	}
	for _, artifact := range resp.Artifacts {
		fmt.Printf("=== %s ===\n%s\n", artifact.Type, artifact.Content)
	}
}
