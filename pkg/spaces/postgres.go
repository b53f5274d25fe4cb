package spaces

import (
	"context"
	"errors"
	"fmt"

	"github.com/gridspace/gridspace/pkg/log"
	"github.com/jackc/pgx/v5"
)

type PostgresRepository struct {
	conn *pgx.Conn
}

// NewPostgresRepository creates a new PostgresRepository.
// It panics if it is unable to connect to the database.
// The caller is responsible for calling Close() on the repository.
func NewPostgresRepository(ctx context.Context, connStr string) Repository {
	return &PostgresRepository{
		conn: connectDb(ctx, connStr),
	}
}

func connectDb(ctx context.Context, connStr string) *pgx.Conn {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		panic(fmt.Sprintf("Unable to connect to database: %v\n", err))
	}

	var username string
	var database string
	err = conn.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database)
	if err != nil {
		panic(fmt.Sprintf("Unable to query database: %v\n", err))
	}

	log.Info("Connected to %s as %s", database, username)

	return conn
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	return r.conn.Close(ctx)
}

func (r *PostgresRepository) GetSpace(ctx context.Context, spaceID string) (*Space, error) {
	q := `
	SELECT id, name, width, height, creator_id, COALESCE(map_id, ''), COALESCE(thumbnail, '')
	FROM spaces WHERE id = $1;
	`
	space := &Space{}
	err := r.conn.QueryRow(ctx, q, spaceID).Scan(
		&space.ID, &space.Name, &space.Width, &space.Height,
		&space.CreatorID, &space.MapID, &space.Thumbnail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan space: %v", err)
	}

	return space, nil
}

func (r *PostgresRepository) ListSpaces(ctx context.Context) ([]*Space, error) {
	q := `
	SELECT id, name, width, height, creator_id, COALESCE(map_id, ''), COALESCE(thumbnail, '')
	FROM spaces ORDER BY name;
	`
	rows, err := r.conn.Query(ctx, q)
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

func (r *PostgresRepository) CreateSpace(ctx context.Context, space *Space) error {
	q := `
	INSERT INTO spaces (id, name, width, height, creator_id, map_id, thumbnail)
	VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''));
	`
	_, err := r.conn.Exec(ctx, q, space.ID, space.Name, space.Width, space.Height,
		space.CreatorID, space.MapID, space.Thumbnail)
	if err != nil {
		return fmt.Errorf("failed to insert space: %v", err)
	}

	return nil
}

func (r *PostgresRepository) DeleteSpace(ctx context.Context, spaceID string) error {
	tag, err := r.conn.Exec(ctx, "DELETE FROM spaces WHERE id = $1", spaceID)
	if err != nil {
		return fmt.Errorf("failed to delete space: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{}
	}

	return nil
}
