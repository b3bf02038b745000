// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"

	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serverURL string // Orchestrator base URL (flag or ORCHESTRATOR_URL)

	rootCmd = &cobra.Command{
		Use:   "fairagent",
		Short: "A cli for the FAIR-Agent domain-restricted question answering service",
		Long: `FAIR-Agent answers medical and finance questions with curated
evidence, calibrated confidence scores, and answer validation.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "",
		"Orchestrator base URL (defaults to ORCHESTRATOR_URL or http://localhost:12310)")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(healthCmd)
}

// resolveServerURL picks the orchestrator base URL from the flag, the
// ORCHESTRATOR_URL environment variable, or the local default, in that
// order.
func resolveServerURL() string {
	if serverURL != "" {
		return serverURL
	}
	if env := os.Getenv("ORCHESTRATOR_URL"); env != "" {
		return env
	}
	return "http://localhost:12310"
}
