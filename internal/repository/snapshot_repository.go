package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/siteops/internal/domain"
	"github.com/yourorg/siteops/internal/observability/metrics"
	"github.com/yourorg/siteops/internal/reliability/retry"
)

// SlotKey names the single durable slot holding the serialized snapshot.
// A schema change gets a new key rather than an in-place migration.
const SlotKey = "siteops_app_data_v2"

const schema = `
CREATE TABLE IF NOT EXISTS app_state (
	slot       TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SnapshotRepository implements domain.SnapshotRepository on a one-row
// SQLite key-value slot. The whole snapshot is one JSON document; Save
// replaces it entirely, never merges.
type SnapshotRepository struct {
	db       *sql.DB
	logger   *slog.Logger
	retryCfg *retry.Config
}

// NewSnapshotRepository creates the repository and ensures the slot table
// exists.
func NewSnapshotRepository(db *sql.DB, logger *slog.Logger) (*SnapshotRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize app_state table: %w", err)
	}

	return &SnapshotRepository{
		db:       db,
		logger:   logger,
		retryCfg: retry.DefaultConfig(),
	}, nil
}

// Load reads the durable slot. It returns (nil, nil) when the slot is empty
// or when the stored document does not parse: malformed durable state must
// not crash startup, the caller falls through to seeding.
func (r *SnapshotRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	var doc string
	err := r.db.QueryRowContext(ctx, `SELECT document FROM app_state WHERE slot = ?`, SlotKey).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot slot: %w", err)
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal([]byte(doc), &snapshot); err != nil {
		r.logger.Warn("snapshot slot is corrupt, discarding",
			slog.String("slot", SlotKey),
			slog.String("error", err.Error()),
		)
		metrics.ObserveSnapshotLoad("corrupt")
		return nil, nil
	}

	snapshot.Normalize()
	metrics.ObserveSnapshotLoad("ok")
	return &snapshot, nil
}

// Save serializes the full snapshot and replaces the slot content. Write
// failures are reported to the caller; transient SQLITE_BUSY errors are
// retried with backoff first.
func (r *SnapshotRepository) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("%w: marshal snapshot: %v", domain.ErrPersistence, err)
	}

	start := time.Now()
	_, err = retry.Do(ctx, r.retryCfg, r.logger, "snapshot_save", func(ctx context.Context) (struct{}, error) {
		_, execErr := r.db.ExecContext(ctx, `
			INSERT INTO app_state (slot, document, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(slot) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
			SlotKey, string(data), time.Now().UTC(),
		)
		return struct{}{}, execErr
	})
	if err != nil {
		metrics.ObserveSnapshotSave("error", time.Since(start))
		return fmt.Errorf("%w: write slot: %v", domain.ErrPersistence, err)
	}

	metrics.ObserveSnapshotSave("ok", time.Since(start))
	r.logger.Debug("snapshot persisted",
		slog.String("slot", SlotKey),
		slog.Int("bytes", len(data)),
	)
	return nil
}

// Clear deletes the durable slot. Used by the admin CLI and tests; the next
// startup re-seeds the bootstrap data, including the default admin account.
func (r *SnapshotRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM app_state WHERE slot = ?`, SlotKey); err != nil {
		return fmt.Errorf("%w: clear slot: %v", domain.ErrPersistence, err)
	}
	return nil
}
