package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
)

// GetSubscription returns the billing state of a team.
func (r *Repository) GetSubscription(ctx context.Context, teamID string) (*domain.Subscription, error) {
	const query = `SELECT team_id, plan_type, status, current_period_start, current_period_end, updated_at
		FROM team_subscriptions WHERE team_id = $1`
	var sub domain.Subscription
	err := r.pool.QueryRow(ctx, query, teamID).Scan(
		&sub.TeamID,
		&sub.PlanType,
		&sub.Status,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	sub.CurrentPeriodStart = sub.CurrentPeriodStart.UTC()
	sub.CurrentPeriodEnd = sub.CurrentPeriodEnd.UTC()
	return &sub, nil
}

// UpsertSubscription stores the latest billing state for a team.
func (r *Repository) UpsertSubscription(ctx context.Context, sub *domain.Subscription) error {
	const query = `INSERT INTO team_subscriptions (team_id, plan_type, status, current_period_start, current_period_end, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (team_id) DO UPDATE SET
			plan_type = EXCLUDED.plan_type,
			status = EXCLUDED.status,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			updated_at = NOW()`
	_, err := r.pool.Exec(ctx, query, sub.TeamID, sub.PlanType, sub.Status, sub.CurrentPeriodStart.UTC(), sub.CurrentPeriodEnd.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return repository.ErrNotFound
		}
		return err
	}
	return nil
}

// ListLimits returns the configured usage limits of a team.
func (r *Repository) ListLimits(ctx context.Context, teamID string) ([]domain.UsageLimit, error) {
	const query = `SELECT team_id, resource_type, max_quantity FROM usage_limits WHERE team_id = $1 ORDER BY resource_type`
	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	limits := make([]domain.UsageLimit, 0)
	for rows.Next() {
		var limit domain.UsageLimit
		if err := rows.Scan(&limit.TeamID, &limit.ResourceType, &limit.MaxQuantity); err != nil {
			return nil, err
		}
		limits = append(limits, limit)
	}
	return limits, rows.Err()
}

// ReplaceLimits swaps the full limit set of a team.
func (r *Repository) ReplaceLimits(ctx context.Context, teamID string, limits []domain.UsageLimit) error {
	return r.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM usage_limits WHERE team_id = $1`, teamID); err != nil {
			return err
		}
		if len(limits) == 0 {
			return nil
		}
		const insert = `INSERT INTO usage_limits (team_id, resource_type, max_quantity) VALUES ($1, $2, $3)`
		batch := &pgx.Batch{}
		for _, limit := range limits {
			batch.Queue(insert, teamID, limit.ResourceType, limit.MaxQuantity)
		}
		br := tx.SendBatch(ctx, batch)
		for range limits {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return err
			}
		}
		return br.Close()
	})
}
