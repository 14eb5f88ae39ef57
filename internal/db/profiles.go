package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/resume-review/internal/types"
)

const profileColumns = `id, owner_id, name, folder_path, content, source_profile_id, created_at, updated_at`

// ProfileFilter narrows ListProfiles. A nil Folder lists every folder.
type ProfileFilter struct {
	Folder *string
	Limit  int
}

// GetProfile returns the owner's profile, or nil if it does not exist
func (db *DB) GetProfile(ctx context.Context, ownerID, id string) (*types.Profile, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// ListProfiles returns the owner's profiles, most recently updated first
func (db *DB) ListProfiles(ctx context.Context, ownerID string, filter ProfileFilter) ([]*types.Profile, error) {
	query, args := listQuery(ownerID, filter)
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*types.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// SaveProfile inserts the profile or updates it in place. Another owner's
// profile with the same id is never overwritten.
func (db *DB) SaveProfile(ctx context.Context, p *types.Profile) error {
	content, err := json.Marshal(p.Document)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	tag, err := db.pool.Exec(ctx,
		`INSERT INTO profiles (id, owner_id, name, folder_path, content, source_profile_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, folder_path = EXCLUDED.folder_path,
		     content = EXCLUDED.content, updated_at = NOW()
		 WHERE profiles.owner_id = EXCLUDED.owner_id`,
		p.ID, p.OwnerID, p.Name, types.NormalizeFolderPath(p.FolderPath), content, p.SourceProfileID,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to save profile %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

// DeleteProfile removes the owner's profile
func (db *DB) DeleteProfile(ctx context.Context, ownerID, id string) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func listQuery(ownerID string, filter ProfileFilter) (string, []any) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE owner_id = $1`
	args := []any{ownerID}
	argNum := 2

	if filter.Folder != nil {
		query += fmt.Sprintf(" AND folder_path = $%d", argNum)
		args = append(args, types.NormalizeFolderPath(*filter.Folder))
		argNum++
	}
	query += " ORDER BY updated_at DESC, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
	}
	return query, args
}

func scanProfile(row pgx.Row) (*types.Profile, error) {
	var p types.Profile
	var content []byte
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.FolderPath, &content, &p.SourceProfileID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(content, &p.Document); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", p.ID, err)
	}
	return &p, nil
}
