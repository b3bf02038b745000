// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fairagent/FairAgentLocal/pkg/logging"
	"github.com/fairagent/FairAgentLocal/pkg/validation"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/datatypes"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	askDomain         string // Target domain (medical/finance/general)
	askSkipLiveSearch bool   // Skip live web search, curated evidence only
	askJSONOutput     bool   // Output the raw response as JSON
	askSessionID      string // Continue an existing session
	askTimeout        string // Request timeout (e.g., "90s", "2m")
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// askCmd submits a question to the orchestrator.
//
// # Description
//
// Sanitizes the question and domain locally, posts them to the
// orchestrator's query endpoint, and prints the answer together with
// its confidence score and the evidence sources that grounded it.
//
// # Examples
//
//	fairagent ask "What are the side effects of metformin?"
//	fairagent ask -d finance "How do index funds work?"
//	fairagent ask --json "What is diabetes?"       # JSON for scripting
//	fairagent ask --skip-live-search "What is a 401k?"
//
// # Limitations
//
//   - Requires a running orchestrator (see ORCHESTRATOR_URL)
//
// # Assumptions
//
//   - The orchestrator exposes POST /v1/query
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a medical or finance question and get a validated answer",
	Long: `Submits a question to the FAIR-Agent orchestrator.

The answer comes back with a calibrated confidence score, a validation
report, and the list of evidence sources it was grounded on.

Examples:
  fairagent ask "What are the side effects of metformin?"
  fairagent ask -d finance "How do index funds work?"
  fairagent ask --json "What is diabetes?"
  fairagent ask --skip-live-search "What is a 401k?"`,
	Run: runAskCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	askCmd.Flags().StringVarP(&askDomain, "domain", "d", "",
		"Domain for the question: medical, finance, or general (default: server decides)")
	askCmd.Flags().BoolVar(&askSkipLiveSearch, "skip-live-search", false,
		"Answer from curated evidence only, without live web search")
	askCmd.Flags().BoolVar(&askJSONOutput, "json", false,
		"Output the raw response as JSON for scripting")
	askCmd.Flags().StringVar(&askSessionID, "session", "",
		"Session ID to continue an existing conversation")
	askCmd.Flags().StringVarP(&askTimeout, "timeout", "t", "120s",
		"Request timeout (e.g., 90s, 2m)")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runAskCommand sanitizes the inputs, posts the question, and prints
// the answer.
//
// # Inputs
//
//   - cmd: Cobra command (unused)
//   - args: The question, joined when given as multiple words
//
// # Outputs
//
// Prints the formatted answer (or raw JSON) to stdout. Exits with code
// 1 on invalid input or request failure.
func runAskCommand(cmd *cobra.Command, args []string) {
	logger := logging.New(logging.Config{
		Level:   logging.LevelWarn,
		Service: "cli",
	})
	defer logger.Close()

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: fairagent ask [question]")
		os.Exit(1)
	}

	question, err := validation.SanitizeQuestion(strings.Join(args, " "))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid question: %v\n", err)
		os.Exit(1)
	}
	domain, err := validation.SanitizeDomain(askDomain)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid domain: %v\n", err)
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(askTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid timeout %q: %v\n", askTimeout, err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req := &datatypes.QueryRequest{
		Question:       question,
		Domain:         domain,
		SessionId:      askSessionID,
		SkipLiveSearch: askSkipLiveSearch,
	}

	logger.Info("asking question", "domain", domain, "server", resolveServerURL())

	resp, err := postQuery(ctx, http.DefaultClient, resolveServerURL(), req)
	if err != nil {
		logger.Error("request failed", "error", err)
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}

	if askJSONOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(resp); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Print(formatAnswer(resp))
}

// postQuery sends the request to the orchestrator and decodes the
// response.
//
// # Description
//
// Posts the request body to {baseURL}/v1/query. Non-200 statuses are
// turned into errors carrying the server's error message when one was
// returned.
//
// # Inputs
//
//   - ctx: Request context carrying the timeout
//   - client: HTTP client to use
//   - baseURL: Orchestrator base URL without a trailing slash
//   - req: The query to submit
//
// # Outputs
//
//   - *datatypes.QueryResponse: The decoded answer
//   - error: Transport failures, non-200 statuses, or decode failures
func postQuery(ctx context.Context, client *http.Client, baseURL string, req *datatypes.QueryRequest) (*datatypes.QueryResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(baseURL, "/")+"/v1/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("contact orchestrator: %w", err)
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("orchestrator returned %d: %s", httpResp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("orchestrator returned %d", httpResp.StatusCode)
	}

	var resp datatypes.QueryResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// formatAnswer renders the response for a human reader.
//
// # Description
//
// Prints the answer body followed by the confidence score, the
// validation verdict, and a numbered source list matching the [Source N]
// citations in the answer.
func formatAnswer(resp *datatypes.QueryResponse) string {
	var b strings.Builder

	b.WriteString(resp.Answer)
	if !strings.HasSuffix(resp.Answer, "\n") {
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("\nConfidence: %.0f%% (domain: %s)\n", resp.Confidence*100, resp.Domain))

	if resp.Validation != nil {
		verdict := "passed"
		if !resp.Validation.Valid {
			verdict = "failed"
		}
		b.WriteString(fmt.Sprintf("Validation: %s\n", verdict))
		for _, issue := range resp.Validation.Issues {
			b.WriteString(fmt.Sprintf("  - %s\n", issue))
		}
	}

	if resp.NoEvidence {
		b.WriteString("No supporting evidence was found for this answer.\n")
	} else if len(resp.Sources) > 0 {
		b.WriteString(fmt.Sprintf("\nSources (%d):\n", len(resp.Sources)))
		for i, src := range resp.Sources {
			line := fmt.Sprintf("  [%d] %s", i+1, src.Title)
			if src.Locator != "" {
				line += " <" + src.Locator + ">"
			}
			b.WriteString(line + "\n")
		}
	}

	if resp.ProcessingTimeMs > 0 {
		b.WriteString(fmt.Sprintf("\nAnswered in %dms\n", resp.ProcessingTimeMs))
	}
	return b.String()
}
