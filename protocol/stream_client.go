// Copyright 2025 AxonFlow
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// StreamClient is the persistent-connection transport variant. It carries the
// same query wire contract as HTTPClient over a keep-alive connection to the
// server's stream endpoint, and additionally accepts push-update
// subscriptions. Delivery of pushed frames is the hosting service's concern.
type StreamClient struct {
	*HTTPClient
	subscriptions map[string]map[string]interface{} // resourceType -> filters
	subMu         sync.Mutex
}

// NewStreamClient creates a persistent-connection client. The descriptor must
// declare a stream endpoint; queries are carried over it.
func NewStreamClient(desc *ServerDescriptor, opts ...HTTPClientOption) (*StreamClient, error) {
	if desc == nil {
		return nil, fmt.Errorf("server descriptor is required")
	}
	if desc.Endpoint(TransportStream) == "" {
		return nil, fmt.Errorf("server %q declares no stream endpoint", desc.Name)
	}

	// The stream endpoint speaks the same /mcp/v1 contract; reuse the HTTP
	// transport with the stream base URL and keep-alive connections.
	streamDesc := *desc
	streamDesc.Endpoints = map[string]string{TransportHTTP: desc.Endpoint(TransportStream)}

	inner, err := NewHTTPClient(&streamDesc, opts...)
	if err != nil {
		return nil, err
	}

	return &StreamClient{
		HTTPClient:    inner,
		subscriptions: make(map[string]map[string]interface{}),
	}, nil
}

// Subscribe registers for push updates on a resource type. Returns false on
// any failure; the caller treats a failed subscription like any other
// degraded-path outcome.
func (c *StreamClient) Subscribe(ctx context.Context, resourceType string, filters map[string]interface{}) bool {
	q := NewQuery(MethodSubscribe, resourceType, "", nil, filters)
	resp := c.Execute(ctx, q)
	if resp.Status == StatusError {
		log.Printf("[Protocol] Subscribe to %s on %s failed: %s", resourceType, c.Descriptor().Name, resp.ErrorMessage)
		return false
	}

	c.subMu.Lock()
	c.subscriptions[resourceType] = filters
	c.subMu.Unlock()
	return true
}

// Unsubscribe cancels a push-update subscription.
func (c *StreamClient) Unsubscribe(ctx context.Context, resourceType string) bool {
	q := NewQuery(MethodUnsubscribe, resourceType, "", nil, nil)
	resp := c.Execute(ctx, q)
	if resp.Status == StatusError {
		log.Printf("[Protocol] Unsubscribe from %s on %s failed: %s", resourceType, c.Descriptor().Name, resp.ErrorMessage)
		return false
	}

	c.subMu.Lock()
	delete(c.subscriptions, resourceType)
	c.subMu.Unlock()
	return true
}

// ActiveSubscriptions returns the resource types currently subscribed.
func (c *StreamClient) ActiveSubscriptions() []string {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	types := make([]string, 0, len(c.subscriptions))
	for rt := range c.subscriptions {
		types = append(types, rt)
	}
	return types
}

// Disconnect drops all subscriptions and closes the connection. Idempotent.
func (c *StreamClient) Disconnect(ctx context.Context) error {
	c.subMu.Lock()
	c.subscriptions = make(map[string]map[string]interface{})
	c.subMu.Unlock()
	return c.HTTPClient.Disconnect(ctx)
}
