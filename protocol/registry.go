// Copyright 2025 AxonFlow
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"fmt"
	"sort"
	"sync"
)

// CapabilityRegistry indexes clients by the capabilities their servers
// declare, and selects a server for a query. Registration happens at startup;
// steady-state access is read-only.
type CapabilityRegistry struct {
	clients map[string]Client // server name -> client
	mu      sync.RWMutex
}

// RegistryStats provides statistics about the registry.
type RegistryStats struct {
	ServerCount     int      `json:"server_count"`
	Servers         []string `json:"servers"`
	CapabilityCount int      `json:"capability_count"`
}

// NewCapabilityRegistry creates an empty registry.
func NewCapabilityRegistry() *CapabilityRegistry {
	return &CapabilityRegistry{
		clients: make(map[string]Client),
	}
}

// Register adds a client under its descriptor name.
func (r *CapabilityRegistry) Register(client Client) error {
	desc := client.Descriptor()
	if desc == nil || desc.Name == "" {
		return fmt.Errorf("client has no server descriptor")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[desc.Name]; exists {
		return fmt.Errorf("server %q is already registered", desc.Name)
	}
	r.clients[desc.Name] = client
	return nil
}

// Get returns a client by server name.
func (r *CapabilityRegistry) Get(name string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	return c, ok
}

// Select returns the best client capable of (resourceType, method), preferring
// higher quality score and breaking ties on lower cost per call.
func (r *CapabilityRegistry) Select(resourceType string, method Method) (Client, error) {
	candidates := r.SelectAll(resourceType, method)
	if len(candidates) == 0 {
		return nil, &NoCapableServerError{ResourceType: resourceType, Method: method}
	}
	return candidates[0], nil
}

// SelectAll returns every capable client in selection order.
func (r *CapabilityRegistry) SelectAll(resourceType string, method Method) []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type scored struct {
		client  Client
		quality float64
		cost    float64
		name    string
	}

	var candidates []scored
	for name, client := range r.clients {
		cap, ok := client.Descriptor().CapabilityFor(resourceType, method)
		if !ok {
			continue
		}
		candidates = append(candidates, scored{
			client:  client,
			quality: cap.QualityScore,
			cost:    cap.CostPerCall,
			name:    name,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].quality != candidates[j].quality {
			return candidates[i].quality > candidates[j].quality
		}
		if candidates[i].cost != candidates[j].cost {
			return candidates[i].cost < candidates[j].cost
		}
		return candidates[i].name < candidates[j].name
	})

	clients := make([]Client, len(candidates))
	for i, c := range candidates {
		clients[i] = c.client
	}
	return clients
}

// All returns every registered client in name order.
func (r *CapabilityRegistry) All() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)

	clients := make([]Client, 0, len(names))
	for _, name := range names {
		clients = append(clients, r.clients[name])
	}
	return clients
}

// Len returns the number of registered clients.
func (r *CapabilityRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Stats returns current registry statistics.
func (r *CapabilityRegistry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStats{Servers: make([]string, 0, len(r.clients))}
	for name, client := range r.clients {
		stats.Servers = append(stats.Servers, name)
		stats.CapabilityCount += len(client.Descriptor().Capabilities)
	}
	sort.Strings(stats.Servers)
	stats.ServerCount = len(r.clients)
	return stats
}
