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
	"context"
)

// Client executes typed queries against one remote protocol server.
//
// Execute never returns a Go error for remote failures: transport errors,
// timeouts and invalid frames all become a Response with StatusError and a
// populated error code, so callers have exactly one result path to handle.
type Client interface {
	// Execute runs one query and returns its uniform response.
	Execute(ctx context.Context, q *Query) *Response

	// Connect prepares the client for use. Resolving credentials happens
	// here; a missing secret fails Connect, not individual calls.
	Connect(ctx context.Context) error

	// Disconnect releases the client's resources. Idempotent.
	Disconnect(ctx context.Context) error

	// HealthCheck reports whether the remote server is reachable.
	HealthCheck(ctx context.Context) bool

	// Descriptor returns the immutable server descriptor this client wraps.
	Descriptor() *ServerDescriptor
}

// Subscriber is implemented by persistent-connection clients that accept
// push-update subscriptions. Delivery of pushed frames is handled by the
// hosting service, not this layer.
type Subscriber interface {
	Subscribe(ctx context.Context, resourceType string, filters map[string]interface{}) bool
	Unsubscribe(ctx context.Context, resourceType string) bool
}

// wireRequest is the JSON body POSTed to {baseUrl}/mcp/v1/{method}.
type wireRequest struct {
	ResourceType string                 `json:"resourceType"`
	ResourceID   string                 `json:"resourceId,omitempty"`
	Parameters   map[string]interface{} `json:"parameters,omitempty"`
	Filters      map[string]interface{} `json:"filters,omitempty"`
	Context      map[string]interface{} `json:"context,omitempty"`
	AgentContext wireAgentContext       `json:"agentContext"`
}

// wireAgentContext identifies the calling agent to the remote server.
type wireAgentContext struct {
	AgentID      string   `json:"agentId"`
	SessionID    string   `json:"sessionId"`
	Capabilities []string `json:"capabilities"`
}

// wireResponse is the JSON body of a successful (HTTP 200) protocol reply.
// Error replies carry only the error field.
type wireResponse struct {
	Data     interface{}            `json:"data"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Source   string                 `json:"source,omitempty"`
	CacheHit bool                   `json:"cache_hit"`
	Error    string                 `json:"error,omitempty"`
}
