// Copyright 2025 AxonFlow
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"
	"time"
)

// Error codes carried on Response.ErrorCode. The data provider layer keys its
// recovery behavior off these, so they are part of the contract.
const (
	ErrCodeTransport       = "transport_error"
	ErrCodeTimeout         = "timeout"
	ErrCodeProtocol        = "protocol_error"
	ErrCodeNoCapableServer = "no_capable_server"
	ErrCodeConversion      = "conversion_error"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeNotConnected    = "not_connected"
)

// TransportError indicates the request never produced a valid protocol frame:
// connection refused, DNS failure, malformed response body, and the like.
type TransportError struct {
	Server  string
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: transport error: %s: %v", e.Server, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: transport error: %s", e.Server, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// TimeoutError indicates the per-call deadline elapsed before a response.
type TimeoutError struct {
	Server  string
	Timeout time.Duration
	Cause   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: call timed out after %s", e.Server, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

// ProtocolError indicates the server answered, but with a non-success status.
type ProtocolError struct {
	Server     string
	StatusCode int
	Message    string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: protocol error (status %d): %s", e.Server, e.StatusCode, e.Message)
}

// NoCapableServerError indicates no configured server declares a capability
// for the requested (resourceType, method) pair.
type NoCapableServerError struct {
	ResourceType string
	Method       Method
}

func (e *NoCapableServerError) Error() string {
	return fmt.Sprintf("no capable server for resource type %q method %q", e.ResourceType, e.Method)
}

// ConversionError indicates a successful response carried a payload that
// could not be converted into a domain record.
type ConversionError struct {
	ResourceType string
	Message      string
	Cause        error
}

func (e *ConversionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot convert %s payload: %s: %v", e.ResourceType, e.Message, e.Cause)
	}
	return fmt.Sprintf("cannot convert %s payload: %s", e.ResourceType, e.Message)
}

func (e *ConversionError) Unwrap() error { return e.Cause }

// errorResponse builds the uniform error-shaped Response for a failed call.
func errorResponse(q *Query, serverID, code, message string, elapsed time.Duration) *Response {
	return &Response{
		RequestID:        q.RequestID,
		Status:           StatusError,
		ErrorCode:        code,
		ErrorMessage:     message,
		ProcessingTimeMs: elapsed.Milliseconds(),
		SourceServerID:   serverID,
	}
}
