// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package service

import (
	"encoding/json"
	"log"
	"net/http"

	"axonflow/workforce/protocol"
	"axonflow/workforce/shared/logger"
	"axonflow/workforce/worker"
	"axonflow/workforce/workflow"
)

type server struct {
	manager  *worker.LifecycleManager
	orch     *workflow.Orchestrator
	registry *protocol.CapabilityRegistry
	log      *logger.Logger
}

func newServer(manager *worker.LifecycleManager, orch *workflow.Orchestrator, registry *protocol.CapabilityRegistry) *server {
	return &server{manager: manager, orch: orch, registry: registry, log: logger.New("service")}
}

type createWorkerRequest struct {
	Kind           string `json:"kind"`
	ID             string `json:"id,omitempty"`
	EnableProtocol bool   `json:"enable_protocol"`
}

type runRequest struct {
	TaskType string                 `json:"task_type"`
	Input    map[string]interface{} `json:"input"`
}

// healthHandler reports the last health sweep, running a fresh one when none
// has happened yet. The HTTP status mirrors the aggregate: 200 for healthy
// or degraded (the service still answers), 503 for unhealthy.
func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	report := s.manager.LastReport()
	if report == nil {
		report = s.manager.HealthCheckAll(r.Context())
	}

	code := http.StatusOK
	if report.Status == worker.HealthUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report)
}

func (s *server) listWorkersHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   s.manager.Len(),
		"workers": s.manager.Records(),
	})
}

func (s *server) createWorkerHandler(w http.ResponseWriter, r *http.Request) {
	var req createWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Kind == "" {
		s.writeError(w, r, http.StatusBadRequest, "kind is required")
		return
	}

	created, err := s.manager.CreateWorker(r.Context(), req.Kind, req.ID, req.EnableProtocol)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"worker_id": created.ID(),
		"kind":      created.Kind(),
		"tier":      created.Tier(),
	})
}

func (s *server) serversHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Stats())
}

// runWorkflowHandler executes one workflow run synchronously and returns the
// final state, history included.
func (s *server) runWorkflowHandler(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TaskType == "" {
		req.TaskType = "lead-qualification"
	}

	state := workflow.NewState(req.TaskType, req.Input)
	final := s.orch.Run(r.Context(), state)
	writeJSON(w, http.StatusOK, final)
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[Workforce] Failed to encode response: %v", err)
	}
}

// writeError logs the rejection with its status code and returns the JSON
// error body.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, code int, message string) {
	s.log.ErrorWithCode("", r.Header.Get("X-Request-ID"), message, code, nil, map[string]interface{}{
		"path": r.URL.Path,
	})
	writeJSON(w, code, map[string]string{"error": message})
}
