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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCallTimeout bounds a single protocol call when the caller supplies
// no tighter deadline.
const DefaultCallTimeout = 30 * time.Second

// HTTPClient is the request/response transport variant: one round trip per
// query against the server's http endpoint.
type HTTPClient struct {
	desc       *ServerDescriptor
	httpClient *http.Client
	auth       AuthProvider
	limiter    *RateLimiter
	timeout    time.Duration
	agentID    string
	sessionID  string
	connected  bool
	mu         sync.RWMutex
}

// HTTPClientOption customizes an HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithCallTimeout overrides the default per-call timeout.
func WithCallTimeout(d time.Duration) HTTPClientOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimiter attaches a per-server rate limiter.
func WithRateLimiter(l *RateLimiter) HTTPClientOption {
	return func(c *HTTPClient) { c.limiter = l }
}

// WithAgentID sets the agent identity sent in agentContext.
func WithAgentID(id string) HTTPClientOption {
	return func(c *HTTPClient) { c.agentID = id }
}

// NewHTTPClient creates a client for the server's http endpoint.
func NewHTTPClient(desc *ServerDescriptor, opts ...HTTPClientOption) (*HTTPClient, error) {
	if desc == nil {
		return nil, fmt.Errorf("server descriptor is required")
	}
	if desc.Endpoint(TransportHTTP) == "" {
		return nil, fmt.Errorf("server %q declares no http endpoint", desc.Name)
	}

	c := &HTTPClient{
		desc:    desc,
		timeout: DefaultCallTimeout,
		agentID: "workforce-core",
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect resolves credentials and marks the client usable. A missing secret
// fails here so callers learn about misconfiguration before the first query.
func (c *HTTPClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	auth, err := NewAuthProvider(c.desc.Name, c.desc.Auth)
	if err != nil {
		return err
	}

	c.auth = auth
	c.sessionID = uuid.NewString()
	c.connected = true
	log.Printf("[Protocol] Connected client for server %s (auth: %s)", c.desc.Name, auth.Type())
	return nil
}

// Disconnect releases idle connections. Idempotent.
func (c *HTTPClient) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	c.httpClient.CloseIdleConnections()
	c.connected = false
	log.Printf("[Protocol] Disconnected client for server %s", c.desc.Name)
	return nil
}

// HealthCheck probes the server's /health endpoint.
func (c *HTTPClient) HealthCheck(ctx context.Context) bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	if !connected {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/health", c.desc.Endpoint(TransportHTTP))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Error closing response body: %v", err)
		}
	}()

	return resp.StatusCode == http.StatusOK
}

// Descriptor returns the server descriptor.
func (c *HTTPClient) Descriptor() *ServerDescriptor { return c.desc }

// Execute runs one query. All failure modes collapse into an error-shaped
// Response; the returned value is never nil.
func (c *HTTPClient) Execute(ctx context.Context, q *Query) *Response {
	start := time.Now()

	c.mu.RLock()
	connected := c.connected
	auth := c.auth
	sessionID := c.sessionID
	c.mu.RUnlock()

	if !connected {
		return errorResponse(q, c.desc.Name, ErrCodeNotConnected, "client is not connected", time.Since(start))
	}

	if c.limiter != nil {
		if err := c.limiter.Allow(ctx, c.desc.Name); err != nil {
			return errorResponse(q, c.desc.Name, ErrCodeRateLimited, err.Error(), time.Since(start))
		}
	}

	body := wireRequest{
		ResourceType: q.ResourceType,
		ResourceID:   q.ResourceID,
		Parameters:   q.Parameters,
		Filters:      q.Filters,
		AgentContext: wireAgentContext{
			AgentID:      c.agentID,
			SessionID:    sessionID,
			Capabilities: []string{string(q.Method)},
		},
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return errorResponse(q, c.desc.Name, ErrCodeTransport,
			(&TransportError{Server: c.desc.Name, Message: "failed to marshal request", Cause: err}).Error(),
			time.Since(start))
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/mcp/v1/%s", c.desc.Endpoint(TransportHTTP), q.Method)
	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return errorResponse(q, c.desc.Name, ErrCodeTransport,
			fmt.Sprintf("failed to create HTTP request: %v", err), time.Since(start))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if err := auth.Authenticate(callCtx, httpReq); err != nil {
		return errorResponse(q, c.desc.Name, ErrCodeTransport,
			fmt.Sprintf("failed to authenticate request: %v", err), time.Since(start))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			terr := &TimeoutError{Server: c.desc.Name, Timeout: c.timeout, Cause: err}
			return errorResponse(q, c.desc.Name, ErrCodeTimeout, terr.Error(), time.Since(start))
		}
		terr := &TransportError{Server: c.desc.Name, Message: "request failed", Cause: err}
		return errorResponse(q, c.desc.Name, ErrCodeTransport, terr.Error(), time.Since(start))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Error closing response body: %v", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorResponse(q, c.desc.Name, ErrCodeTransport,
			fmt.Sprintf("failed to read response: %v", err), time.Since(start))
	}

	var frame wireResponse
	if err := json.Unmarshal(respBody, &frame); err != nil {
		return errorResponse(q, c.desc.Name, ErrCodeTransport,
			fmt.Sprintf("invalid response frame: %v", err), time.Since(start))
	}

	if resp.StatusCode != http.StatusOK {
		msg := frame.Error
		if msg == "" {
			msg = fmt.Sprintf("server returned status %d", resp.StatusCode)
		}
		perr := &ProtocolError{Server: c.desc.Name, StatusCode: resp.StatusCode, Message: msg}
		return errorResponse(q, c.desc.Name, ErrCodeProtocol, perr.Error(), time.Since(start))
	}

	if frame.Data == nil {
		// A success frame must carry data; an empty one is a partial result.
		return &Response{
			RequestID:        q.RequestID,
			Status:           StatusPartial,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			SourceServerID:   c.sourceID(frame.Source),
			CacheHit:         frame.CacheHit,
		}
	}

	return &Response{
		RequestID:        q.RequestID,
		Status:           StatusSuccess,
		Payload:          frame.Data,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		SourceServerID:   c.sourceID(frame.Source),
		CacheHit:         frame.CacheHit,
	}
}

func (c *HTTPClient) sourceID(wireSource string) string {
	if wireSource != "" {
		return wireSource
	}
	return c.desc.Name
}

// isTimeout reports whether a transport error was deadline-driven.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
