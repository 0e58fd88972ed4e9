package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS devices (
	hue_id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	domain TEXT,
	object_id TEXT,
	scale_to_hue TEXT,
	scale_to_native TEXT,
	created_at DATETIME NOT NULL,
	modified_at DATETIME NOT NULL,
	last_accessed_at DATETIME,
	last_accessed_by TEXT
);
CREATE TABLE IF NOT EXISTS retired_ids (
	hue_id TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS ledger (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const nextCandidateKey = "next_id_counter"

// SQLiteStore keeps the ledger in a SQLite database. Every save replaces
// the content in one transaction.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (and creates if needed) the database at dsn.
func OpenSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// :memory: databases exist per connection
	db.SetMaxOpenConns(1)
	s, err := NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore uses an already opened database and ensures the schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) (*model.LedgerState, error) {
	var next sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT value FROM ledger WHERE key = ?", nextCandidateKey).Scan(&next)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	state := &model.LedgerState{}
	if state.NextCandidate, err = strconv.ParseUint(next.String, 10, 64); err != nil {
		return nil, fmt.Errorf("failed to read ledger: malformed %s %q", nextCandidateKey, next.String)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT hue_id, name, domain, object_id, scale_to_hue, scale_to_native, created_at, modified_at, last_accessed_at, last_accessed_by FROM devices ORDER BY position",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			d                   model.DeviceRecord
			domain, objectID    sql.NullString
			toHue, toNative     sql.NullString
			lastAccessedAt      sql.NullTime
			lastAccessedBy      sql.NullString
			createdAt, modified time.Time
		)
		if err := rows.Scan(&d.HueID, &d.Name, &domain, &objectID, &toHue, &toNative, &createdAt, &modified, &lastAccessedAt, &lastAccessedBy); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		d.CreatedAt, d.ModifiedAt = createdAt, modified
		d.Capability = model.CapabilityOnOff
		if domain.Valid && objectID.Valid {
			d.Target = &model.TargetRef{Domain: model.Domain(domain.String), ObjectID: objectID.String}
			d.Capability = model.CapabilityOf(d.Target.Domain)
		}
		if toHue.String != "" || toNative.String != "" {
			d.Scale = &model.ScaleOverride{ToHue: toHue.String, ToNative: toNative.String}
		}
		if lastAccessedAt.Valid {
			at := lastAccessedAt.Time
			d.LastAccessedAt = &at
		}
		d.LastAccessedBy = lastAccessedBy.String
		state.Devices = append(state.Devices, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	retired, err := s.db.QueryContext(ctx, "SELECT hue_id FROM retired_ids ORDER BY CAST(hue_id AS INTEGER)")
	if err != nil {
		return nil, fmt.Errorf("failed to list retired ids: %w", err)
	}
	defer func() { _ = retired.Close() }()
	for retired.Next() {
		var id string
		if err := retired.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan retired id: %w", err)
		}
		state.Retired = append(state.Retired, id)
	}
	if err := retired.Err(); err != nil {
		return nil, fmt.Errorf("failed to list retired ids: %w", err)
	}
	return state, nil
}

func (s *SQLiteStore) Save(ctx context.Context, state *model.LedgerState) (rErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{"DELETE FROM devices", "DELETE FROM retired_ids"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear ledger: %w", err)
		}
	}

	for i, d := range state.Devices {
		var domain, objectID, toHue, toNative, lastBy sql.NullString
		var lastAt sql.NullTime
		if d.Target != nil {
			domain = sql.NullString{String: string(d.Target.Domain), Valid: true}
			objectID = sql.NullString{String: d.Target.ObjectID, Valid: true}
		}
		if d.Scale != nil {
			toHue = sql.NullString{String: d.Scale.ToHue, Valid: d.Scale.ToHue != ""}
			toNative = sql.NullString{String: d.Scale.ToNative, Valid: d.Scale.ToNative != ""}
		}
		if d.LastAccessedAt != nil {
			lastAt = sql.NullTime{Time: *d.LastAccessedAt, Valid: true}
		}
		if d.LastAccessedBy != "" {
			lastBy = sql.NullString{String: d.LastAccessedBy, Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO devices (hue_id, position, name, domain, object_id, scale_to_hue, scale_to_native, created_at, modified_at, last_accessed_at, last_accessed_by) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			d.HueID, i, d.Name, domain, objectID, toHue, toNative, d.CreatedAt, d.ModifiedAt, lastAt, lastBy,
		)
		if err != nil {
			return fmt.Errorf("failed to store device %s: %w", d.HueID, err)
		}
	}

	for _, id := range state.Retired {
		if _, err := tx.ExecContext(ctx, "INSERT INTO retired_ids (hue_id) VALUES (?)", id); err != nil {
			return fmt.Errorf("failed to store retired id %s: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO ledger (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		nextCandidateKey, strconv.FormatUint(state.NextCandidate, 10),
	); err != nil {
		return fmt.Errorf("failed to store %s: %w", nextCandidateKey, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
