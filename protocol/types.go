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

package protocol

import (
	"sort"

	"github.com/google/uuid"
)

// Method identifies the protocol operation carried by a Query.
type Method string

const (
	MethodFetch       Method = "fetch"
	MethodList        Method = "list"
	MethodSearch      Method = "search"
	MethodCreate      Method = "create"
	MethodUpdate      Method = "update"
	MethodDelete      Method = "delete"
	MethodSubscribe   Method = "subscribe"
	MethodUnsubscribe Method = "unsubscribe"
)

// Status is the outcome classification of a Response.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusPartial Status = "partial"
)

// Query represents one typed request against a protocol server.
// A Query is immutable once built - callers construct a new one per call.
type Query struct {
	Method       Method                 `json:"method"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Parameters   map[string]interface{} `json:"parameters,omitempty"`
	Filters      map[string]interface{} `json:"filters,omitempty"`
	RequestID    string                 `json:"request_id"`
}

// NewQuery builds a Query with a generated request ID.
func NewQuery(method Method, resourceType, resourceID string, params, filters map[string]interface{}) *Query {
	return &Query{
		Method:       method,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Parameters:   params,
		Filters:      filters,
		RequestID:    uuid.NewString(),
	}
}

// SortedParameterKeys returns the parameter keys in deterministic order.
// Used to build stable cache keys from otherwise unordered maps.
func (q *Query) SortedParameterKeys() []string {
	keys := make([]string, 0, len(q.Parameters))
	for k := range q.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Response is the uniform result of executing a Query. Remote failures are
// expressed as a Response with StatusError, never as a Go error - see
// Client.Execute.
type Response struct {
	RequestID        string      `json:"request_id"`
	Status           Status      `json:"status"`
	Payload          interface{} `json:"payload,omitempty"`
	ErrorMessage     string      `json:"error_message,omitempty"`
	ErrorCode        string      `json:"error_code,omitempty"`
	ProcessingTimeMs int64       `json:"processing_time_ms"`
	SourceServerID   string      `json:"source_server_id"`
	CacheHit         bool        `json:"cache_hit"`
}

// IsSuccess reports whether the response carries a usable payload.
func (r *Response) IsSuccess() bool {
	return r.Status == StatusSuccess && r.Payload != nil
}

// PayloadList normalizes the payload into a slice. Object payloads become a
// single-element slice; nil payloads an empty one.
func (r *Response) PayloadList() []interface{} {
	switch v := r.Payload.(type) {
	case nil:
		return nil
	case []interface{}:
		return v
	default:
		return []interface{}{v}
	}
}
