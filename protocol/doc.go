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

/*
Package protocol implements the client side of the uniform external-data
protocol used to enrich worker context.

# Overview

Every remote data server - whatever vendor sits behind it - is addressed
through the same typed query/response exchange. A Client executes exactly one
Query against one server and always produces a Response: remote failures
(transport errors, timeouts, invalid frames, non-success statuses) are encoded
as an error-shaped Response, never as a Go error, so the data provider layer
has a single result path to reason about.

# Client Interface

	type Client interface {
	    Execute(ctx context.Context, q *Query) *Response
	    Connect(ctx context.Context) error
	    Disconnect(ctx context.Context) error
	    HealthCheck(ctx context.Context) bool
	    Descriptor() *ServerDescriptor
	}

Two transports are provided: HTTPClient (one round trip per query) and
StreamClient (persistent connection, additionally accepting push-update
subscriptions via the Subscriber interface).

# Wire Contract

The HTTP transport POSTs to {baseUrl}/mcp/v1/{method} with a JSON body
carrying the resource type, resource id, parameters, filters and the calling
agent's context. A 200 reply carries {data, metadata, source, cache_hit};
any other status carries {error}.

# Capability Selection

Servers declare capabilities - (resource types x methods) pairs with a quality
score and a cost per call - in a ServerDescriptor loaded at startup. The
CapabilityRegistry picks the best capable client for a query, preferring
quality and breaking ties on cost.

# Authentication

Auth is injected per server from the descriptor's AuthSpec: bearer token,
API key header, or a per-call HMAC-signed JWT. Credentials are resolved at
Connect time; a missing secret is a connect failure, not a per-call one.
*/
package protocol
