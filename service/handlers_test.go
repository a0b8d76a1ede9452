// Copyright 2025 AxonFlow
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axonflow/workforce/protocol"
	"axonflow/workforce/worker"
	"axonflow/workforce/workflow"
)

func newTestServer(t *testing.T) *server {
	t.Helper()

	manager := worker.NewLifecycleManager(worker.ManagerConfig{})
	manager.CreateAllWorkers(context.Background(), false)
	t.Cleanup(func() { manager.Shutdown(context.Background()) })

	orch, err := workflow.NewOrchestrator(
		workflow.LeadQualificationGraph(workflow.DefaultThresholds), manager)
	require.NoError(t, err)

	return newServer(manager, orch, protocol.NewCapabilityRegistry())
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t)

	rr := httptest.NewRecorder()
	s.healthHandler(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)

	var report worker.HealthReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, worker.HealthHealthy, report.Status)
	assert.Equal(t, 3, report.Total)
}

func TestListWorkersHandler(t *testing.T) {
	s := newTestServer(t)

	rr := httptest.NewRecorder()
	s.listWorkersHandler(rr, httptest.NewRequest(http.MethodGet, "/api/v1/workers", nil))

	assert.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Count   int                   `json:"count"`
		Workers []worker.WorkerRecord `json:"workers"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Count)
	assert.Len(t, body.Workers, 3)
}

func TestCreateWorkerHandler(t *testing.T) {
	s := newTestServer(t)

	body := strings.NewReader(`{"kind":"analyst","id":"analyst-2"}`)
	rr := httptest.NewRecorder()
	s.createWorkerHandler(rr, httptest.NewRequest(http.MethodPost, "/api/v1/workers", body))

	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "analyst-2", resp["worker_id"])
	assert.Equal(t, "analyst", resp["kind"])
}

func TestCreateWorkerHandlerRejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"kind":`},
		{"missing kind", `{}`},
		{"unknown kind", `{"kind":"auditor"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			s.createWorkerHandler(rr, httptest.NewRequest(http.MethodPost, "/api/v1/workers", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestRunWorkflowHandler(t *testing.T) {
	s := newTestServer(t)

	body := strings.NewReader(`{"task_type":"lead-qualification","input":{"lead_id":"lead-1","score":92}}`)
	rr := httptest.NewRecorder()
	s.runWorkflowHandler(rr, httptest.NewRequest(http.MethodPost, "/api/v1/runs", body))

	assert.Equal(t, http.StatusOK, rr.Code)

	var final workflow.State
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &final))
	assert.Equal(t, workflow.StatusDone, final.Status)
	assert.NotEmpty(t, final.TaskID)
	assert.Len(t, final.History, 3)
}

func TestServersHandler(t *testing.T) {
	s := newTestServer(t)

	rr := httptest.NewRecorder()
	s.serversHandler(rr, httptest.NewRequest(http.MethodGet, "/api/v1/servers", nil))

	assert.Equal(t, http.StatusOK, rr.Code)

	var stats protocol.RegistryStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.ServerCount)
}
