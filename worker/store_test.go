// Copyright 2025 AxonFlow
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() WorkerRecord {
	return WorkerRecord{
		WorkerID:        "researcher",
		Kind:            "researcher",
		DisplayName:     "Lead Researcher",
		Tier:            TierTop,
		ProviderRef:     "protocol-researcher",
		ProtocolEnabled: true,
		Active:          true,
		CreatedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPostgresStoreUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := newPostgresStoreWithDB(db)
	rec := testRecord()

	mock.ExpectExec("INSERT INTO workers").
		WithArgs(rec.WorkerID, rec.Kind, rec.DisplayName, "top",
			rec.ProviderRef, rec.ProtocolEnabled, rec.Active, rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Upsert(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreUpsertFailureIsTyped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := newPostgresStoreWithDB(db)

	mock.ExpectExec("INSERT INTO workers").
		WillReturnError(errors.New("connection reset"))

	err = store.Upsert(context.Background(), testRecord())
	require.Error(t, err)

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "upsert", perr.Operation)
	assert.Contains(t, perr.Error(), "connection reset")
}

func TestPostgresStoreListActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := newPostgresStoreWithDB(db)
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"worker_id", "kind", "display_name", "tier", "provider_ref",
		"protocol_enabled", "active", "created_at",
	}).
		AddRow("researcher", "researcher", "Lead Researcher", "top", "protocol-researcher", true, true, created).
		AddRow("analyst", "analyst", "Qualification Analyst", "mid", "static-analyst", false, true, created)

	mock.ExpectQuery("SELECT (.+) FROM workers").WillReturnRows(rows)

	records, err := store.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "researcher", records[0].WorkerID)
	assert.Equal(t, TierTop, records[0].Tier)
	assert.Equal(t, TierMid, records[1].Tier)
	assert.False(t, records[1].ProtocolEnabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreDeactivate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := newPostgresStoreWithDB(db)

	mock.ExpectExec("UPDATE workers SET active = false").
		WithArgs("researcher").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Deactivate(context.Background(), "researcher"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithRetryEventualSuccess(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryExhaustion(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		return errors.New("still broken")
	})
	require.Error(t, err)
	assert.Equal(t, "still broken", err.Error())
	assert.Equal(t, 3, attempts)
}

func TestWithRetryRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := withRetry(ctx, 5, 10*time.Millisecond, func() error {
		attempts++
		return errors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
