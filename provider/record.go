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

package provider

import (
	"time"

	"axonflow/workforce/protocol"
)

// Provenance marks where a record's data came from.
type Provenance string

const (
	// ProvenanceLive marks data fetched from a protocol server on this call.
	ProvenanceLive Provenance = "live"

	// ProvenanceCache marks data served from the provider's own cache.
	ProvenanceCache Provenance = "cache"

	// ProvenanceFallback marks data synthesized from the local static source.
	ProvenanceFallback Provenance = "fallback"
)

// Record is the domain-level view of fetched context data handed to workers.
type Record struct {
	ID           string                 `json:"id"`
	ResourceType string                 `json:"resource_type"`
	Fields       map[string]interface{} `json:"fields"`
	Provenance   Provenance             `json:"provenance"`
	Source       string                 `json:"source"`
	FetchedAt    time.Time              `json:"fetched_at"`
}

// Clone returns a shallow copy with its own Fields map, so callers can
// annotate records without mutating cached ones.
func (r *Record) Clone() *Record {
	fields := make(map[string]interface{}, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	clone := *r
	clone.Fields = fields
	return &clone
}

// recordFromPayload converts one wire payload object into a Record. Payloads
// that are not JSON objects are conversion failures.
func recordFromPayload(resourceType, id, source string, payload interface{}) (*Record, error) {
	fields, ok := payload.(map[string]interface{})
	if !ok {
		return nil, &protocol.ConversionError{
			ResourceType: resourceType,
			Message:      "payload is not an object",
		}
	}

	recordID := id
	if recordID == "" {
		if v, ok := fields["id"].(string); ok {
			recordID = v
		}
	}

	return &Record{
		ID:           recordID,
		ResourceType: resourceType,
		Fields:       fields,
		Provenance:   ProvenanceLive,
		Source:       source,
		FetchedAt:    time.Now().UTC(),
	}, nil
}

// recordsFromPayload converts a list payload into Records, skipping nothing:
// a single malformed element fails the whole conversion so the caller can
// fall back coherently.
func recordsFromPayload(resourceType, source string, payload interface{}) ([]*Record, error) {
	items, ok := payload.([]interface{})
	if !ok {
		// A single object is a valid one-element result.
		rec, err := recordFromPayload(resourceType, "", source, payload)
		if err != nil {
			return nil, err
		}
		return []*Record{rec}, nil
	}

	records := make([]*Record, 0, len(items))
	for _, item := range items {
		rec, err := recordFromPayload(resourceType, "", source, item)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
