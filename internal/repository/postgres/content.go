package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
)

const contentColumns = `id, team_id, creator_id, kind, title, body, created_at, updated_at`

// CreateContent inserts a content row.
func (r *Repository) CreateContent(ctx context.Context, content *domain.Content) error {
	const query = `INSERT INTO contents (id, team_id, creator_id, kind, title, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	_, err := r.pool.Exec(ctx, query,
		content.ID,
		content.TeamID,
		content.CreatorID,
		content.Kind,
		content.Title,
		content.Body,
		content.CreatedAt.UTC(),
	)
	return err
}

// GetContent returns a content row only when it belongs to teamID.
func (r *Repository) GetContent(ctx context.Context, teamID, contentID string) (*domain.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE team_id = $1 AND id = $2`
	return scanContent(r.pool.QueryRow(ctx, query, teamID, contentID))
}

// ListContent pages through a team's content, newest first. Empty kind lists all kinds.
func (r *Repository) ListContent(ctx context.Context, teamID, kind string, limit, offset int) ([]domain.Content, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + contentColumns + ` FROM contents
		WHERE team_id = $1 AND ($2::text IS NULL OR kind = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, query, teamID, nilIfEmpty(kind), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Content, 0)
	for rows.Next() {
		item, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateContent rewrites title and body of a team's content row.
func (r *Repository) UpdateContent(ctx context.Context, content *domain.Content) error {
	const query = `UPDATE contents SET title = $3, body = $4, updated_at = $5
		WHERE team_id = $1 AND id = $2`
	tag, err := r.pool.Exec(ctx, query, content.TeamID, content.ID, content.Title, content.Body, content.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteContent removes a team's content row.
func (r *Repository) DeleteContent(ctx context.Context, teamID, contentID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contents WHERE team_id = $1 AND id = $2`, teamID, contentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanContent(row pgx.Row) (*domain.Content, error) {
	var c domain.Content
	if err := row.Scan(&c.ID, &c.TeamID, &c.CreatorID, &c.Kind, &c.Title, &c.Body, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
