package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
)

const (
	invitationColumns = `token_hash, team_id, inviter_id, invitee_email, status, created_at, expires_at, resolved_at, resolved_by`
	invitationInsert  = `INSERT INTO team_invitations (
		token_hash,
		team_id,
		inviter_id,
		invitee_email,
		status,
		created_at,
		expires_at
	) VALUES (
		$1,$2,$3,$4,'pending',$5,$6
	)`
	invitationSelect = `SELECT ` + invitationColumns + ` FROM team_invitations WHERE token_hash = $1`
)

// CreateInvitation persists a pending invitation. A pending row that has already
// passed its expiry is flipped to expired first so it does not block a fresh invite.
func (r *Repository) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	if inv == nil || strings.TrimSpace(inv.TokenHash) == "" {
		return repository.ErrInvalidArgument
	}
	email := normalizeEmail(inv.InviteeEmail)
	return r.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		const expireStale = `UPDATE team_invitations
			SET status = 'expired'
			WHERE team_id = $1 AND invitee_email = $2 AND status = 'pending' AND expires_at < $3`
		if _, err := tx.Exec(ctx, expireStale, inv.TeamID, email, inv.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("expire stale invitations: %w", err)
		}
		_, err := tx.Exec(ctx, invitationInsert,
			inv.TokenHash,
			inv.TeamID,
			inv.InviterID,
			email,
			inv.CreatedAt.UTC(),
			inv.ExpiresAt.UTC(),
		)
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == "team_invitations_one_pending_per_email" {
				return domain.ErrDuplicatePendingInvite
			}
			return repository.ErrInvalidArgument
		}
		if err != nil {
			return err
		}
		inv.InviteeEmail = email
		inv.Status = domain.InvitationStatusPending
		return nil
	})
}

// GetInvitation fetches an invitation by token hash.
func (r *Repository) GetInvitation(ctx context.Context, tokenHash string) (*domain.Invitation, error) {
	return scanInvitation(r.pool.QueryRow(ctx, invitationSelect, strings.TrimSpace(tokenHash)))
}

// ListPendingInvitations returns live pending invitations for a team.
func (r *Repository) ListPendingInvitations(ctx context.Context, teamID string, now time.Time) ([]domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM team_invitations
		WHERE team_id = $1 AND status = 'pending' AND expires_at >= $2
		ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, teamID, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invitations := make([]domain.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, *inv)
	}
	return invitations, rows.Err()
}

// MarkInvitationExpired marks the invitation as expired if it is still pending.
func (r *Repository) MarkInvitationExpired(ctx context.Context, tokenHash string) error {
	const query = `UPDATE team_invitations
		SET status = 'expired'
		WHERE token_hash = $1 AND status = 'pending'`
	_, err := r.pool.Exec(ctx, query, strings.TrimSpace(tokenHash))
	return err
}

// AcceptInvitation consumes a pending invitation and activates the membership in one
// transaction. The guarded UPDATE takes the row lock, so a concurrent accept of the
// same token re-evaluates status after the first commits and matches nothing.
func (r *Repository) AcceptInvitation(ctx context.Context, tokenHash, userID string, now time.Time, member *domain.Membership) (*domain.Invitation, error) {
	if member == nil {
		return nil, repository.ErrInvalidArgument
	}
	var accepted *domain.Invitation
	err := r.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		inv, err := resolveInvitation(ctx, tx, tokenHash, userID, domain.InvitationStatusAccepted, now)
		if err != nil {
			return err
		}
		const upsertMember = `INSERT INTO team_members (team_id, user_id, role, role_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, NULL, 'active', $4, $4)
			ON CONFLICT (team_id, user_id) DO UPDATE
				SET role = EXCLUDED.role,
					role_id = NULL,
					status = 'active',
					updated_at = EXCLUDED.updated_at
				WHERE team_members.status = 'removed'
			RETURNING team_id`
		var teamID string
		err = tx.QueryRow(ctx, upsertMember, inv.TeamID, userID, string(member.Role), now.UTC()).Scan(&teamID)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAlreadyMember
		}
		if err != nil {
			return mapTeamConstraint(err)
		}
		accepted = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// DeclineInvitation transitions a pending invitation to declined.
func (r *Repository) DeclineInvitation(ctx context.Context, tokenHash, userID string, now time.Time) (*domain.Invitation, error) {
	var declined *domain.Invitation
	err := r.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		inv, err := resolveInvitation(ctx, tx, tokenHash, userID, domain.InvitationStatusDeclined, now)
		if err != nil {
			return err
		}
		declined = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return declined, nil
}

func resolveInvitation(ctx context.Context, tx pgx.Tx, tokenHash, userID, status string, now time.Time) (*domain.Invitation, error) {
	query := `UPDATE team_invitations
		SET status = $2,
			resolved_at = $4,
			resolved_by = $3
		WHERE token_hash = $1
			AND status = 'pending'
			AND expires_at >= $4
		RETURNING ` + invitationColumns
	inv, err := scanInvitation(tx.QueryRow(ctx, query, strings.TrimSpace(tokenHash), status, userID, now.UTC()))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrInvitationNotActionable
	}
	return inv, err
}

func scanInvitation(row pgx.Row) (*domain.Invitation, error) {
	var (
		inv        domain.Invitation
		resolvedAt sql.NullTime
		resolvedBy sql.NullString
	)
	if err := row.Scan(
		&inv.TokenHash,
		&inv.TeamID,
		&inv.InviterID,
		&inv.InviteeEmail,
		&inv.Status,
		&inv.CreatedAt,
		&inv.ExpiresAt,
		&resolvedAt,
		&resolvedBy,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if resolvedAt.Valid {
		value := resolvedAt.Time.UTC()
		inv.ResolvedAt = &value
	}
	if resolvedBy.Valid {
		value := strings.TrimSpace(resolvedBy.String)
		inv.ResolvedBy = &value
	}
	inv.Status = strings.TrimSpace(inv.Status)
	inv.CreatedAt = inv.CreatedAt.UTC()
	inv.ExpiresAt = inv.ExpiresAt.UTC()
	return &inv, nil
}
