// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeHealthServer(t *testing.T, ready bool) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz/liveness", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/healthz/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready\n"))
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestProbeAll_Ready(t *testing.T) {
	addr := fakeHealthServer(t, true)

	results := probeAll(addr)
	require.Len(t, results, 2)

	assert.Equal(t, "liveness", results[0].Probe)
	assert.True(t, results[0].Reachable)
	assert.Equal(t, "ok", results[0].Status)

	assert.Equal(t, "readiness", results[1].Probe)
	assert.True(t, results[1].Reachable)
	assert.Equal(t, "ok", results[1].Status)
}

func TestProbeAll_NotReady(t *testing.T) {
	addr := fakeHealthServer(t, false)

	results := probeAll(addr)
	require.Len(t, results, 2)
	assert.True(t, results[1].Reachable)
	assert.Contains(t, results[1].Status, "not ready")
	assert.Contains(t, results[1].Status, "503")
}

func TestProbeAll_Unreachable(t *testing.T) {
	// Port 1 on loopback is never listening in the test environment.
	results := probeAll("127.0.0.1:1")
	require.Len(t, results, 2)
	assert.False(t, results[0].Reachable)
	assert.Contains(t, results[0].Error, "failed to connect")
}

func TestStatusCommand_TableOutput(t *testing.T) {
	addr := fakeHealthServer(t, true)

	cmd := newStatusCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--addr", addr})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "PROBE")
	assert.Contains(t, out, "liveness")
	assert.Contains(t, out, "up")
}

func TestStatusCommand_JSONOutput(t *testing.T) {
	addr := fakeHealthServer(t, true)

	cmd := newStatusCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--addr", addr, "--json"})

	require.NoError(t, cmd.Execute())

	var results []ProbeResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "liveness", results[0].Probe)
}

func TestFormatStatusTable_Down(t *testing.T) {
	out := formatStatusTable([]ProbeResult{
		{Probe: "liveness", Reachable: false, Error: "connection refused"},
	})

	assert.Contains(t, out, "down")
	assert.Contains(t, out, "connection refused")
}
