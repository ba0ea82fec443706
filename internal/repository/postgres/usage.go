package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
)

// ConsumeUsage performs the guarded increment as a single statement. The upsert takes
// the row lock on conflict, so the limit predicate sees the committed total of any
// concurrent consumer.
func (r *Repository) ConsumeUsage(ctx context.Context, key domain.UsageKey, amount, max int, limited bool) (int, error) {
	if amount <= 0 {
		return 0, repository.ErrInvalidArgument
	}
	if limited && amount > max {
		return 0, domain.ErrQuotaExceeded
	}
	const query = `INSERT INTO usage_records (team_id, resource_type, period_start, period_end, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (team_id, resource_type, period_start) DO UPDATE
			SET quantity = usage_records.quantity + EXCLUDED.quantity,
				updated_at = NOW()
			WHERE NOT $6::boolean OR usage_records.quantity + EXCLUDED.quantity <= $7::bigint
		RETURNING quantity`
	var total int
	err := r.pool.QueryRow(ctx, query,
		key.TeamID,
		key.ResourceType,
		key.Period.Start.UTC(),
		key.Period.End.UTC(),
		amount,
		limited,
		max,
	).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrQuotaExceeded
	}
	if err != nil {
		if isTransient(err) {
			return 0, errors.Join(domain.ErrUnavailable, err)
		}
		return 0, err
	}
	return total, nil
}

// GetUsage returns the consumed quantity for a period, zero when nothing was recorded.
func (r *Repository) GetUsage(ctx context.Context, key domain.UsageKey) (int, error) {
	const query = `SELECT quantity FROM usage_records
		WHERE team_id = $1 AND resource_type = $2 AND period_start = $3`
	var quantity int
	err := r.pool.QueryRow(ctx, query, key.TeamID, key.ResourceType, key.Period.Start.UTC()).Scan(&quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

// ListUsage returns all records of a team for the period starting at periodStart.
func (r *Repository) ListUsage(ctx context.Context, teamID string, periodStart time.Time) ([]domain.UsageRecord, error) {
	const query = `SELECT team_id, resource_type, period_start, period_end, quantity, updated_at
		FROM usage_records
		WHERE team_id = $1 AND period_start = $2
		ORDER BY resource_type ASC`
	rows, err := r.pool.Query(ctx, query, teamID, periodStart.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.UsageRecord, 0)
	for rows.Next() {
		var rec domain.UsageRecord
		if err := rows.Scan(&rec.TeamID, &rec.ResourceType, &rec.PeriodStart, &rec.PeriodEnd, &rec.Quantity, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
