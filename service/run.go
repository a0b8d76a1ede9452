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

// Package service wires the workforce core into an HTTP service: protocol
// clients from the server file, the lifecycle manager, the lead workflow,
// and the REST surface over them.
package service

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"axonflow/workforce/config"
	"axonflow/workforce/protocol"
	"axonflow/workforce/provider"
	"axonflow/workforce/worker"
	"axonflow/workforce/workflow"
)

// Run is the exported entry point for the workforce service. It blocks until
// the process receives SIGINT or SIGTERM, then drains in-flight requests.
//
// Environment variables are documented in package config.
func Run() {
	log.Println("Starting AxonFlow Workforce...")

	cfg := config.Load()

	registry := buildRegistry(cfg)

	var store worker.Store
	if cfg.DatabaseURL != "" {
		pg, err := worker.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			log.Printf("[Workforce] Worker store unavailable, mirroring disabled: %v", err)
		} else {
			store = pg
			defer func() { _ = pg.Close() }()
		}
	}

	manager := worker.NewLifecycleManager(worker.ManagerConfig{
		Registry:       registry,
		Store:          store,
		Fallback:       buildFallback(cfg),
		CacheTTL:       cfg.CacheTTL,
		HealthInterval: cfg.HealthInterval,
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	created := manager.CreateAllWorkers(rootCtx, cfg.EnableProtocol)
	log.Printf("[Workforce] %d workers created", len(created))
	manager.StartHealthLoop(rootCtx)

	orch, err := workflow.NewOrchestrator(
		workflow.LeadQualificationGraph(workflow.ThresholdsFromEnv()),
		manager,
		workflow.WithNodeTimeout(cfg.NodeTimeout),
	)
	if err != nil {
		log.Fatalf("[Workforce] Workflow graph rejected: %v", err)
	}

	srv := newServer(manager, orch, registry)

	r := mux.NewRouter()
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure for production
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	r.HandleFunc("/health", srv.healthHandler).Methods("GET")
	r.Handle("/prometheus", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/api/v1/workers", srv.listWorkersHandler).Methods("GET")
	r.HandleFunc("/api/v1/workers", srv.createWorkerHandler).Methods("POST")
	r.HandleFunc("/api/v1/servers", srv.serversHandler).Methods("GET")
	r.HandleFunc("/api/v1/runs", srv.runWorkflowHandler).Methods("POST")

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: c.Handler(r),
	}

	go func() {
		log.Printf("AxonFlow Workforce listening on port %s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Workforce] Server failed: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("[Workforce] Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Workforce] HTTP shutdown error: %v", err)
	}
	manager.Shutdown(shutdownCtx)
	log.Println("[Workforce] Stopped")
}

// buildFallback builds the shared static provider behind every worker,
// seeded from the configured dataset file when one is set. A rejected file
// degrades to an empty dataset rather than failing startup.
func buildFallback(cfg config.Config) *provider.StaticProvider {
	if cfg.FallbackDataset == "" {
		return provider.NewStaticProvider(cfg.FallbackProviderID)
	}

	p, err := provider.LoadStaticProvider(cfg.FallbackProviderID, cfg.FallbackDataset)
	if err != nil {
		log.Printf("[Workforce] Fallback dataset rejected, starting empty: %v", err)
		return provider.NewStaticProvider(cfg.FallbackProviderID)
	}
	log.Printf("[Workforce] Fallback dataset loaded from %s", cfg.FallbackDataset)
	return p
}

// buildRegistry loads server descriptors and connects a client per server.
// A server that fails to connect is skipped with a log line; the service
// still starts and its workers degrade to fallback data.
func buildRegistry(cfg config.Config) *protocol.CapabilityRegistry {
	registry := protocol.NewCapabilityRegistry()
	if cfg.ServerFile == "" {
		return registry
	}

	descriptors, err := protocol.LoadServerDescriptors(cfg.ServerFile)
	if err != nil {
		log.Printf("[Workforce] Server file rejected: %v", err)
		return registry
	}

	var limiter *protocol.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter, err = protocol.NewRateLimiter(cfg.RedisURL, cfg.RateLimitPerMinute)
		if err != nil {
			log.Printf("[Workforce] Rate limiter unavailable, continuing without: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for i := range descriptors {
		desc := &descriptors[i]
		client, err := buildClient(desc, cfg, limiter)
		if err != nil {
			log.Printf("[Workforce] Client for %s rejected: %v", desc.Name, err)
			continue
		}
		if err := client.Connect(ctx); err != nil {
			log.Printf("[Workforce] Connect to %s failed, skipping: %v", desc.Name, err)
			continue
		}
		if err := registry.Register(client); err != nil {
			log.Printf("[Workforce] Registration of %s failed: %v", desc.Name, err)
		}
	}

	log.Printf("[Workforce] %d protocol servers registered", registry.Len())
	return registry
}

func buildClient(desc *protocol.ServerDescriptor, cfg config.Config, limiter *protocol.RateLimiter) (protocol.Client, error) {
	opts := []protocol.HTTPClientOption{
		protocol.WithCallTimeout(cfg.CallTimeout),
	}
	if limiter != nil {
		opts = append(opts, protocol.WithRateLimiter(limiter))
	}

	if desc.Endpoint(protocol.TransportStream) != "" {
		return protocol.NewStreamClient(desc, opts...)
	}
	return protocol.NewHTTPClient(desc, opts...)
}
