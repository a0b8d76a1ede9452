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

package logger

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Level is the severity attached to a log entry.
type Level string

const (
	DEBUG Level = "DEBUG"
	INFO  Level = "INFO"
	WARN  Level = "WARN"
	ERROR Level = "ERROR"
)

// Logger emits single-line JSON entries to stdout, tagged with the component
// that produced them and the instance identity resolved at startup. Safe for
// concurrent use.
type Logger struct {
	Component  string
	InstanceID string
	Container  string
}

// Entry is the wire shape of one log line.
type Entry struct {
	Timestamp  string                 `json:"timestamp"`
	Level      Level                  `json:"level"`
	Component  string                 `json:"component"`
	InstanceID string                 `json:"instance_id"`
	Container  string                 `json:"container"`
	RunID      string                 `json:"run_id"`
	RequestID  string                 `json:"request_id,omitempty"`
	Message    string                 `json:"message"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// New builds a logger for one component. Instance identity comes from
// INSTANCE_ID and the container hostname, both defaulting to "unknown".
func New(component string) *Logger {
	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		instanceID = "unknown"
	}
	container, err := os.Hostname()
	if err != nil {
		container = "unknown"
	}
	return &Logger{
		Component:  component,
		InstanceID: instanceID,
		Container:  container,
	}
}

// Log writes one entry. The run ID correlates every entry of a workflow run;
// the request ID correlates entries of one inbound request. Either may be
// empty.
func (l *Logger) Log(level Level, runID, requestID, message string, fields map[string]interface{}) {
	entry := Entry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Level:      level,
		Component:  l.Component,
		InstanceID: l.InstanceID,
		Container:  l.Container,
		RunID:      runID,
		RequestID:  requestID,
		Message:    message,
		Fields:     fields,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		// An unmarshalable field must not drop the message entirely.
		log.Printf("ERROR: failed to marshal log entry %q: %v", message, err)
		return
	}
	log.Println(string(line))
}

func (l *Logger) Debug(runID, requestID, message string, fields map[string]interface{}) {
	l.Log(DEBUG, runID, requestID, message, fields)
}

func (l *Logger) Info(runID, requestID, message string, fields map[string]interface{}) {
	l.Log(INFO, runID, requestID, message, fields)
}

func (l *Logger) Warn(runID, requestID, message string, fields map[string]interface{}) {
	l.Log(WARN, runID, requestID, message, fields)
}

func (l *Logger) Error(runID, requestID, message string, fields map[string]interface{}) {
	l.Log(ERROR, runID, requestID, message, fields)
}

// InfoWithDuration logs at INFO with a duration_ms field. The caller's field
// map is never mutated.
func (l *Logger) InfoWithDuration(runID, requestID, message string, durationMS float64, fields map[string]interface{}) {
	l.Info(runID, requestID, message, withField(fields, "duration_ms", durationMS))
}

// ErrorWithCode logs at ERROR with the HTTP status code and the error text,
// when present.
func (l *Logger) ErrorWithCode(runID, requestID, message string, statusCode int, err error, fields map[string]interface{}) {
	merged := withField(fields, "status_code", statusCode)
	if err != nil {
		merged["error"] = err.Error()
	}
	l.Error(runID, requestID, message, merged)
}

// withField copies fields with one extra key so helpers never mutate the
// caller's map.
func withField(fields map[string]interface{}, key string, value interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged[key] = value
	return merged
}
