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

package worker

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
)

var storeMirrorFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "workforce_store_mirror_failures_total",
		Help: "Worker record mirror attempts that exhausted their retries",
	},
	[]string{"operation"},
)

func init() {
	prometheus.MustRegister(storeMirrorFailures)
}

// WorkerRecord is the externally mirrored metadata for one live worker.
// ProviderRef is set once at creation and never reassigned.
type WorkerRecord struct {
	WorkerID        string    `json:"worker_id"`
	Kind            string    `json:"kind"`
	DisplayName     string    `json:"display_name"`
	Tier            Tier      `json:"tier"`
	ProviderRef     string    `json:"provider_ref"`
	ProtocolEnabled bool      `json:"protocol_enabled"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// PersistenceError wraps a store failure. It is logged and counted, never
// propagated to worker creation.
type PersistenceError struct {
	Operation string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Operation, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store mirrors worker records to external storage. Every call is
// best-effort from the manager's point of view.
type Store interface {
	Upsert(ctx context.Context, rec WorkerRecord) error
	ListActive(ctx context.Context) ([]WorkerRecord, error)
	Deactivate(ctx context.Context, workerID string) error
	Close() error
}

// PostgresStore mirrors worker records into a workers table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens and pings the database.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// newPostgresStoreWithDB wires an existing handle, used by tests.
func newPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, rec WorkerRecord) error {
	query := `
		INSERT INTO workers (worker_id, kind, display_name, tier, provider_ref, protocol_enabled, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET
			kind = EXCLUDED.kind,
			display_name = EXCLUDED.display_name,
			tier = EXCLUDED.tier,
			protocol_enabled = EXCLUDED.protocol_enabled,
			active = EXCLUDED.active,
			updated_at = NOW()`

	_, err := s.db.ExecContext(ctx, query,
		rec.WorkerID, rec.Kind, rec.DisplayName, string(rec.Tier),
		rec.ProviderRef, rec.ProtocolEnabled, rec.Active, rec.CreatedAt)
	if err != nil {
		return &PersistenceError{Operation: "upsert", Err: err}
	}
	return nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]WorkerRecord, error) {
	query := `
		SELECT worker_id, kind, display_name, tier, provider_ref, protocol_enabled, active, created_at
		FROM workers
		WHERE active = true
		ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &PersistenceError{Operation: "list_active", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var records []WorkerRecord
	for rows.Next() {
		var rec WorkerRecord
		var tier string
		if err := rows.Scan(&rec.WorkerID, &rec.Kind, &rec.DisplayName, &tier,
			&rec.ProviderRef, &rec.ProtocolEnabled, &rec.Active, &rec.CreatedAt); err != nil {
			return nil, &PersistenceError{Operation: "list_active", Err: err}
		}
		rec.Tier = Tier(tier)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Operation: "list_active", Err: err}
	}
	return records, nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, workerID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE workers SET active = false, updated_at = NOW() WHERE worker_id = $1`, workerID)
	if err != nil {
		return &PersistenceError{Operation: "deactivate", Err: err}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// mirrorRetryAttempts bounds the async mirror; the last failure is counted
// and logged, then dropped.
const mirrorRetryAttempts = 3

// withRetry runs fn up to attempts times with exponential backoff and
// jitter, respecting context cancellation between attempts.
func withRetry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		delay += time.Duration(rand.Int63n(int64(baseDelay)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
