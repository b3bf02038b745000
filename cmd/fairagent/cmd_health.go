// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	healthJSONOutput bool // Output as JSON
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// healthCmd checks whether the orchestrator is reachable.
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the orchestrator service is up",
	Long: `Probes the orchestrator's health endpoint.

Examples:
  fairagent health
  fairagent health --json    # JSON output for scripting`,
	Run: runHealthCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	healthCmd.Flags().BoolVar(&healthJSONOutput, "json", false,
		"Output as JSON for scripting")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runHealthCommand probes /health and reports the result.
//
// # Outputs
//
// Prints the orchestrator status to stdout. Exits with code 1 when the
// service is unreachable or unhealthy.
func runHealthCommand(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := checkHealth(ctx, http.DefaultClient, resolveServerURL())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Orchestrator unreachable: %v\n", err)
		os.Exit(1)
	}

	if healthJSONOutput {
		encoder := json.NewEncoder(os.Stdout)
		if err := encoder.Encode(map[string]string{"status": status}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Printf("Orchestrator status: %s\n", status)
	}

	if status != "ok" {
		os.Exit(1)
	}
}

// checkHealth calls {baseURL}/health and returns the reported status.
func checkHealth(ctx context.Context, client *http.Client, baseURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimSuffix(baseURL, "/")+"/health", nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("contact orchestrator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("orchestrator returned %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if body.Status == "" {
		return "", fmt.Errorf("orchestrator returned an empty status")
	}
	return body.Status, nil
}
