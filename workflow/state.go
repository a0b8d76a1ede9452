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

package workflow

import (
	"time"

	"github.com/google/uuid"

	"axonflow/workforce/worker"
)

// RunStatus tracks a workflow run end to end.
type RunStatus string

const (
	StatusPending RunStatus = "pending"
	StatusRunning RunStatus = "running"
	StatusDone    RunStatus = "done"
	StatusError   RunStatus = "error"
)

// History entry statuses.
const (
	EntrySuccess  = "success"
	EntryError    = "error"
	EntryNotFound = "not_found"
)

// HistoryEntry is one node visit. Entries are append-only; nothing rewrites
// them after the fact.
type HistoryEntry struct {
	Node          string                 `json:"node"`
	WorkerID      string                 `json:"worker_id,omitempty"`
	Tier          worker.Tier            `json:"tier,omitempty"`
	Status        string                 `json:"status"`
	ResultPayload map[string]interface{} `json:"result_payload,omitempty"`
	Error         string                 `json:"error,omitempty"`
	At            time.Time              `json:"at"`
}

// State is the mutable context of one workflow run. It is created per task,
// threaded through each node, and discarded after completion. Runs do not
// share State values.
type State struct {
	TaskID          string                 `json:"task_id"`
	TaskType        string                 `json:"task_type"`
	CurrentWorkerID string                 `json:"current_worker_id,omitempty"`
	History         []HistoryEntry         `json:"history"`
	InputData       map[string]interface{} `json:"input_data"`
	Status          RunStatus              `json:"status"`
}

// NewState builds a pending run with a generated task ID.
func NewState(taskType string, input map[string]interface{}) *State {
	if input == nil {
		input = make(map[string]interface{})
	}
	return &State{
		TaskID:    uuid.NewString(),
		TaskType:  taskType,
		InputData: input,
		Status:    StatusPending,
	}
}

// appendEntry appends one history entry with the current time.
func (s *State) appendEntry(e HistoryEntry) {
	e.At = time.Now().UTC()
	s.History = append(s.History, e)
}

// LastEntry returns the most recent history entry, if any.
func (s *State) LastEntry() (HistoryEntry, bool) {
	if len(s.History) == 0 {
		return HistoryEntry{}, false
	}
	return s.History[len(s.History)-1], true
}

// mergeResult folds a successful node result into the working input so later
// nodes see accumulated context.
func (s *State) mergeResult(result map[string]interface{}) {
	for k, v := range result {
		s.InputData[k] = v
	}
}
