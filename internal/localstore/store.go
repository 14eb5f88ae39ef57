// Package localstore keeps profiles in a local SQLite file for offline CLI use.
package localstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/resume-review/internal/types"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned by deletes that match no row
var ErrNotFound = errors.New("not found")

// Store is a profile store backed by SQLite
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at dsn and applies migrations.
// Use ":memory:" for a throwaway store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	// one connection: each :memory: connection is its own database
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// GetProfile returns the owner's profile, or nil if it does not exist
func (s *Store) GetProfile(ctx context.Context, ownerID, id string) (*types.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, folder_path, content, source_profile_id, created_at, updated_at
		 FROM profiles WHERE id = ? AND owner_id = ?`, id, ownerID)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// ListProfiles returns the owner's profiles in one folder, or in all folders
// when folder is nil
func (s *Store) ListProfiles(ctx context.Context, ownerID string, folder *string) ([]*types.Profile, error) {
	query := `SELECT id, owner_id, name, folder_path, content, source_profile_id, created_at, updated_at
		FROM profiles WHERE owner_id = ?`
	args := []any{ownerID}
	if folder != nil {
		query += " AND folder_path = ?"
		args = append(args, types.NormalizeFolderPath(*folder))
	}
	query += " ORDER BY updated_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var profiles []*types.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// SaveProfile inserts or updates a profile. Another owner's profile with the
// same id is never overwritten.
func (s *Store) SaveProfile(ctx context.Context, p *types.Profile) error {
	content, err := json.Marshal(p.Document)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	now := s.now().UnixNano()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, owner_id, name, folder_path, content, source_profile_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE
		 SET name = excluded.name, folder_path = excluded.folder_path,
		     content = excluded.content, updated_at = excluded.updated_at
		 WHERE profiles.owner_id = excluded.owner_id`,
		p.ID, p.OwnerID, p.Name, types.NormalizeFolderPath(p.FolderPath), string(content), p.SourceProfileID, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile %s: %w", p.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to save profile %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

// DeleteProfile removes the owner's profile
func (s *Store) DeleteProfile(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*types.Profile, error) {
	var (
		p                types.Profile
		content          string
		source           sql.NullString
		created, updated int64
	)
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.FolderPath, &content, &source, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(content), &p.Document); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", p.ID, err)
	}
	if source.Valid {
		p.SourceProfileID = &source.String
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return &p, nil
}
