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

// Package main is the entry point for the AxonFlow Workforce service.
//
// Workforce automates multi-tier business workflows by routing tasks
// through a pool of specialized workers:
// - Connects protocol clients to configured remote data servers
// - Binds each worker to its own caching, fallback-capable data provider
// - Drives the conditional lead-qualification workflow graph
// - Mirrors worker records to Postgres and exposes health and metrics
//
// Usage:
//
//	./workforce
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	PROTOCOL_SERVER_FILE - YAML file of protocol server descriptors
//	DATABASE_URL - PostgreSQL connection string (optional)
//	REDIS_URL - Redis connection string for rate limiting (optional)
//	PROVIDER_CACHE_TTL - provider cache TTL (default: 5m)
//	WORKFLOW_SCORE_HOT / _WARM / _COLD - routing thresholds (90/70/50)
//
// For more information, see https://docs.getaxonflow.com
package main

import (
	"axonflow/workforce/service"
)

func main() {
	service.Run()
}
