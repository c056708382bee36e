// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaymesh/relaycore/internal/config"
)

// ProbeResult is the outcome of querying one health endpoint.
type ProbeResult struct {
	Probe     string `json:"probe"`
	Reachable bool   `json:"reachable"`
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
}

type statusConfig struct {
	addr       string
	jsonOutput bool
}

// newStatusCmd creates the status subcommand.
func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show health of a running relaycore process",
		Long:  `Query the liveness and readiness probes of a running relaycore process.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.addr, "addr", config.Default().Metrics.Addr,
		"observability address of the process to query")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	results := probeAll(cfg.addr)

	if cfg.jsonOutput {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(formatStatusTable(results))
	return nil
}

// probeAll queries both health endpoints on addr.
func probeAll(addr string) []ProbeResult {
	client := &http.Client{Timeout: 2 * time.Second}
	return []ProbeResult{
		probe(client, addr, "liveness"),
		probe(client, addr, "readiness"),
	}
}

func probe(client *http.Client, addr, name string) ProbeResult {
	result := ProbeResult{Probe: name}

	resp, err := client.Get("http://" + addr + "/healthz/" + name)
	if err != nil {
		result.Error = fmt.Sprintf("failed to connect: %v", err)
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		result.Error = fmt.Sprintf("failed to read response: %v", err)
		return result
	}

	result.Reachable = true
	result.Status = strings.TrimSpace(string(body))
	if resp.StatusCode != http.StatusOK {
		result.Status = fmt.Sprintf("%s (HTTP %d)", result.Status, resp.StatusCode)
	}
	return result
}

// formatStatusTable renders probe results as a human-readable table.
func formatStatusTable(results []ProbeResult) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "PROBE\tSTATE\tDETAIL")
	for _, r := range results {
		if r.Reachable {
			_, _ = fmt.Fprintf(w, "%s\tup\t%s\n", r.Probe, r.Status)
		} else {
			_, _ = fmt.Fprintf(w, "%s\tdown\t%s\n", r.Probe, r.Error)
		}
	}

	_ = w.Flush()
	return sb.String()
}
