package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
)

const (
	constraintTeamOwner        = "teams_owner_id_key"
	constraintOneActivePerUser = "team_members_one_active_per_user"

	teamColumns       = `t.id, t.name, t.description, t.owner_id, t.created_at`
	membershipColumns = `tm.team_id, tm.user_id, tm.role, tm.role_id, tm.status, tm.created_at, tm.updated_at`
)

// CreateTeamWithOwner inserts a team and its owner membership. Concurrent calls for the
// same owner are serialized by a transaction-scoped advisory lock; the unique index on
// teams.owner_id catches anything that slips past.
func (r *Repository) CreateTeamWithOwner(ctx context.Context, team *domain.Team, owner *domain.Membership) error {
	if team == nil || owner == nil {
		return repository.ErrInvalidArgument
	}
	return r.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended('team-owner:' || $1, 0))`, team.OwnerID); err != nil {
			return fmt.Errorf("lock owner: %w", err)
		}
		var owns bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM teams WHERE owner_id = $1)`, team.OwnerID).Scan(&owns); err != nil {
			return fmt.Errorf("check ownership: %w", err)
		}
		if owns {
			return domain.ErrAlreadyOwnsTeam
		}
		var member bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM team_members WHERE user_id = $1 AND status = 'active')`, team.OwnerID).Scan(&member); err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if member {
			return domain.ErrAlreadyMember
		}

		const teamInsert = `INSERT INTO teams (id, name, description, owner_id, created_at)
			VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.Exec(ctx, teamInsert, team.ID, team.Name, stringPtrToNil(team.Description), team.OwnerID, team.CreatedAt); err != nil {
			return mapTeamConstraint(err)
		}
		const memberInsert = `INSERT INTO team_members (team_id, user_id, role, role_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, NULL, $4, $5, $5)`
		if _, err := tx.Exec(ctx, memberInsert, owner.TeamID, owner.UserID, string(owner.Role), owner.Status, owner.CreatedAt); err != nil {
			return mapTeamConstraint(err)
		}
		return nil
	})
}

func mapTeamConstraint(err error) error {
	if constraint, ok := uniqueViolation(err); ok {
		switch constraint {
		case constraintTeamOwner:
			return domain.ErrAlreadyOwnsTeam
		case constraintOneActivePerUser:
			return domain.ErrAlreadyMember
		}
		return repository.ErrInvalidArgument
	}
	return err
}

// GetTeamByID returns a team by identifier.
func (r *Repository) GetTeamByID(ctx context.Context, teamID string) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.id = $1`
	return scanTeam(r.pool.QueryRow(ctx, query, teamID))
}

// ListTeamsByUser returns teams the user owns or actively belongs to, oldest first.
func (r *Repository) ListTeamsByUser(ctx context.Context, userID string) ([]domain.Team, error) {
	query := `SELECT ` + teamColumns + `
		FROM teams t
		WHERE t.owner_id = $1
			OR EXISTS (
				SELECT 1 FROM team_members tm
				WHERE tm.team_id = t.id AND tm.user_id = $1 AND tm.status = 'active'
			)
		ORDER BY t.created_at ASC, t.id ASC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]domain.Team, 0)
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, *team)
	}
	return teams, rows.Err()
}

// DeleteTeam removes a team; memberships, invitations, usage and content cascade.
func (r *Repository) DeleteTeam(ctx context.Context, teamID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, teamID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetMembership returns the membership row for (team, user) regardless of status.
func (r *Repository) GetMembership(ctx context.Context, teamID, userID string) (*domain.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM team_members tm WHERE tm.team_id = $1 AND tm.user_id = $2`
	return scanMembership(r.pool.QueryRow(ctx, query, teamID, userID))
}

// ListMembers returns active members joined with their profile.
func (r *Repository) ListMembers(ctx context.Context, teamID string) ([]domain.MemberView, error) {
	query := `SELECT ` + membershipColumns + `, u.email, u.name
		FROM team_members tm
		INNER JOIN users u ON u.id = tm.user_id
		WHERE tm.team_id = $1 AND tm.status = 'active'
		ORDER BY tm.created_at ASC`
	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]domain.MemberView, 0)
	for rows.Next() {
		var (
			view   domain.MemberView
			role   string
			roleID sql.NullString
		)
		if err := rows.Scan(&view.TeamID, &view.UserID, &role, &roleID, &view.Status, &view.CreatedAt, &view.UpdatedAt, &view.Email, &view.Name); err != nil {
			return nil, err
		}
		view.Role = domain.Role(role)
		if roleID.Valid {
			value := roleID.String
			view.RoleID = &value
		}
		members = append(members, view)
	}
	return members, rows.Err()
}

// IsActiveMemberEmail reports whether an active member of the team uses email.
func (r *Repository) IsActiveMemberEmail(ctx context.Context, teamID, email string) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM team_members tm
		INNER JOIN users u ON u.id = tm.user_id
		WHERE tm.team_id = $1 AND tm.status = 'active' AND u.email = $2
	)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, teamID, normalizeEmail(email)).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// UpdateMemberRole changes the role of an active member.
func (r *Repository) UpdateMemberRole(ctx context.Context, teamID, userID string, role domain.Role, roleID *string) error {
	const query = `UPDATE team_members
		SET role = $3, role_id = $4, updated_at = NOW()
		WHERE team_id = $1 AND user_id = $2 AND status = 'active'`
	tag, err := r.pool.Exec(ctx, query, teamID, userID, string(role), stringPtrToNil(roleID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return repository.ErrNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkMemberRemoved flips an active membership to removed.
func (r *Repository) MarkMemberRemoved(ctx context.Context, teamID, userID string) error {
	const query = `UPDATE team_members
		SET status = 'removed', updated_at = NOW()
		WHERE team_id = $1 AND user_id = $2 AND status = 'active'`
	tag, err := r.pool.Exec(ctx, query, teamID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CreateRole inserts a custom role.
func (r *Repository) CreateRole(ctx context.Context, role *domain.CustomRole) error {
	const query = `INSERT INTO team_roles (
		id, team_id, name,
		can_create_content, can_edit_content, can_delete_content,
		can_invite, can_remove_members, can_manage_roles,
		created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())`
	caps := role.Capabilities
	_, err := r.pool.Exec(ctx, query, role.ID, role.TeamID, role.Name,
		caps.CreateContent, caps.EditContent, caps.DeleteContent,
		caps.Invite, caps.RemoveMembers, caps.ManageRoles,
	)
	if _, ok := uniqueViolation(err); ok {
		return repository.ErrInvalidArgument
	}
	return err
}

// GetRole fetches a custom role scoped to its team.
func (r *Repository) GetRole(ctx context.Context, teamID, roleID string) (*domain.CustomRole, error) {
	const query = `SELECT id, team_id, name,
		can_create_content, can_edit_content, can_delete_content,
		can_invite, can_remove_members, can_manage_roles
		FROM team_roles WHERE team_id = $1 AND id = $2`
	return scanRole(r.pool.QueryRow(ctx, query, teamID, roleID))
}

// ListRoles returns the custom roles of a team.
func (r *Repository) ListRoles(ctx context.Context, teamID string) ([]domain.CustomRole, error) {
	const query = `SELECT id, team_id, name,
		can_create_content, can_edit_content, can_delete_content,
		can_invite, can_remove_members, can_manage_roles
		FROM team_roles WHERE team_id = $1 ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]domain.CustomRole, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	return roles, rows.Err()
}

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var (
		team        domain.Team
		description sql.NullString
	)
	if err := row.Scan(&team.ID, &team.Name, &description, &team.OwnerID, &team.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if description.Valid {
		value := description.String
		team.Description = &value
	}
	return &team, nil
}

func scanMembership(row pgx.Row) (*domain.Membership, error) {
	var (
		m      domain.Membership
		role   string
		roleID sql.NullString
	)
	if err := row.Scan(&m.TeamID, &m.UserID, &role, &roleID, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	m.Role = domain.Role(role)
	if roleID.Valid {
		value := roleID.String
		m.RoleID = &value
	}
	return &m, nil
}

func scanRole(row pgx.Row) (*domain.CustomRole, error) {
	var role domain.CustomRole
	caps := &role.Capabilities
	if err := row.Scan(&role.ID, &role.TeamID, &role.Name,
		&caps.CreateContent, &caps.EditContent, &caps.DeleteContent,
		&caps.Invite, &caps.RemoveMembers, &caps.ManageRoles,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}
