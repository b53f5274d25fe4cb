package spaces

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(ctx context.Context, path string) (Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS spaces (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		creator_id TEXT NOT NULL,
		map_id TEXT,
		thumbnail TEXT
	);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %v", err)
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) GetSpace(ctx context.Context, spaceID string) (*Space, error) {
	q := `
	SELECT id, name, width, height, creator_id, COALESCE(map_id, ''), COALESCE(thumbnail, '')
	FROM spaces WHERE id = ?;
	`
	space := &Space{}
	err := r.db.QueryRowContext(ctx, q, spaceID).Scan(
		&space.ID, &space.Name, &space.Width, &space.Height,
		&space.CreatorID, &space.MapID, &space.Thumbnail)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan space: %v", err)
	}

	return space, nil
}

func (r *SQLiteRepository) ListSpaces(ctx context.Context) ([]*Space, error) {
	q := `
	SELECT id, name, width, height, creator_id, COALESCE(map_id, ''), COALESCE(thumbnail, '')
	FROM spaces ORDER BY name;
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query spaces: %v", err)
	}
	defer rows.Close()

	var result []*Space
	for rows.Next() {
		space := &Space{}
		if err := rows.Scan(
			&space.ID, &space.Name, &space.Width, &space.Height,
			&space.CreatorID, &space.MapID, &space.Thumbnail); err != nil {
			return nil, fmt.Errorf("failed to scan space: %v", err)
		}
		result = append(result, space)
	}

	return result, nil
}

func (r *SQLiteRepository) CreateSpace(ctx context.Context, space *Space) error {
	q := `
	INSERT INTO spaces (id, name, width, height, creator_id, map_id, thumbnail)
	VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''));
	`
	_, err := r.db.ExecContext(ctx, q, space.ID, space.Name, space.Width, space.Height,
		space.CreatorID, space.MapID, space.Thumbnail)
	if err != nil {
		return fmt.Errorf("failed to insert space: %v", err)
	}

	return nil
}

func (r *SQLiteRepository) DeleteSpace(ctx context.Context, spaceID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM spaces WHERE id = ?", spaceID)
	if err != nil {
		return fmt.Errorf("failed to delete space: %v", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %v", err)
	}
	if affected == 0 {
		return &ErrNotFound{}
	}

	return nil
}
