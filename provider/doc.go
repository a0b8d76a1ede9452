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
Package provider exposes business data to workers through a degrading
resolution chain: per-provider TTL cache, then live protocol servers chosen
by the capability registry, then a deterministic static fallback.

# Overview

Workers never see transport failures. GetResource always returns a record,
and every record carries a provenance marker ("live", "cache", "fallback")
so downstream consumers know what they are working with.

Each ProtocolProvider owns its cache and metrics; nothing is shared between
provider instances. Metrics track call counts, an exponentially smoothed
latency average, accumulated cost, and cache hit rates, and are mirrored
into Prometheus collectors.

# Usage

	registry := protocol.NewCapabilityRegistry()
	// ... register connected clients ...

	p := provider.NewProtocolProvider("business-data", registry,
	    provider.WithCacheTTL(5*time.Minute))

	rec := p.GetResource(ctx, "profileData", "id-1", nil)
	if rec.Provenance == provider.ProvenanceFallback {
	    // degraded data, still usable
	}
*/
package provider
