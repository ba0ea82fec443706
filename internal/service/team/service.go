package team

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/permission"
)

const (
	maxTeamNameLength = 120
	maxRoleNameLength = 60
)

var (
	errInvalidTeamName = fmt.Errorf("%w: team name is required", domain.ErrInvalidArgument)
	errTeamNameTooLong = fmt.Errorf("%w: team name is too long", domain.ErrInvalidArgument)
	errInvalidRoleName = fmt.Errorf("%w: role name is required", domain.ErrInvalidArgument)
	errRoleIDRequired  = fmt.Errorf("%w: custom role requires role_id", domain.ErrInvalidArgument)
	errSelfRemoval     = fmt.Errorf("%w: use leave instead of removing yourself", domain.ErrInvalidArgument)
)

// Service owns teams and memberships.
type Service struct {
	repo   repository.TeamRepository
	perms  permission.Engine
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a Service.
func New(repo repository.TeamRepository, perms permission.Engine, logger *slog.Logger) Service {
	return Service{repo: repo, perms: perms, logger: logger, now: time.Now}
}

// Create registers a team owned by ownerID together with its owner membership.
func (s Service) Create(ctx context.Context, ownerID, name string, description *string) (*domain.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errInvalidTeamName
	}
	if len(name) > maxTeamNameLength {
		return nil, errTeamNameTooLong
	}
	if description != nil {
		trimmed := strings.TrimSpace(*description)
		description = &trimmed
		if trimmed == "" {
			description = nil
		}
	}
	now := s.now().UTC()
	team := &domain.Team{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		CreatedAt:   now,
	}
	owner := &domain.Membership{
		TeamID:    team.ID,
		UserID:    ownerID,
		Role:      domain.RoleOwner,
		Status:    domain.MembershipStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateTeamWithOwner(ctx, team, owner); err != nil {
		return nil, err
	}
	s.logger.Info("team created", "team_id", team.ID, "owner_id", ownerID)
	return team, nil
}

// Get returns a team the caller belongs to.
func (s Service) Get(ctx context.Context, teamID, userID string) (*domain.Team, error) {
	access, err := s.perms.RequireMember(ctx, userID, teamID)
	if err != nil {
		return nil, err
	}
	return &access.Team, nil
}

// SwitchActiveTeam validates that the user may work in teamID and returns the session
// context to bind.
func (s Service) SwitchActiveTeam(ctx context.Context, userID, teamID string) (domain.ActiveTeamContext, error) {
	access, err := s.perms.RequireMember(ctx, userID, teamID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ActiveTeamContext{}, domain.ErrNotAMember
		}
		return domain.ActiveTeamContext{}, err
	}
	s.logger.Info("active team switched", "team_id", teamID, "user_id", userID)
	return domain.ActiveTeamContext{
		UserID:       userID,
		Team:         access.Team,
		Role:         access.Membership.Role,
		Capabilities: access.Capabilities,
	}, nil
}

// List returns teams the user owns or actively belongs to, oldest first.
func (s Service) List(ctx context.Context, userID string) ([]domain.Team, error) {
	return s.repo.ListTeamsByUser(ctx, userID)
}

// ListMembers returns the active members of a team to any active member.
func (s Service) ListMembers(ctx context.Context, teamID, userID string) ([]domain.MemberView, error) {
	if _, err := s.perms.RequireMember(ctx, userID, teamID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, teamID)
}

// RemoveMember marks the target's membership removed.
func (s Service) RemoveMember(ctx context.Context, teamID, actingUserID, targetUserID string) error {
	access, err := s.perms.AuthorizeAccess(ctx, actingUserID, teamID, domain.CapRemoveMembers)
	if err != nil {
		return err
	}
	if access.Team.IsOwner(targetUserID) {
		return domain.ErrCannotRemoveOwner
	}
	if actingUserID == targetUserID {
		return errSelfRemoval
	}
	if err := s.repo.MarkMemberRemoved(ctx, teamID, targetUserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotAMember
		}
		return err
	}
	s.logger.Info("team member removed", "team_id", teamID, "user_id", targetUserID, "removed_by", actingUserID)
	return nil
}

// Leave lets a non-owner drop their own membership.
func (s Service) Leave(ctx context.Context, teamID, userID string) error {
	access, err := s.perms.RequireMember(ctx, userID, teamID)
	if err != nil {
		return err
	}
	if access.Team.IsOwner(userID) {
		return domain.ErrCannotRemoveOwner
	}
	if err := s.repo.MarkMemberRemoved(ctx, teamID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotAMember
		}
		return err
	}
	s.logger.Info("team member left", "team_id", teamID, "user_id", userID)
	return nil
}

// ChangeMemberRole assigns a built-in or custom role to an active member. The owner
// keeps the owner role for as long as they own the team.
func (s Service) ChangeMemberRole(ctx context.Context, teamID, actingUserID, targetUserID string, role domain.Role, roleID *string) error {
	access, err := s.perms.AuthorizeAccess(ctx, actingUserID, teamID, domain.CapManageRoles)
	if err != nil {
		return err
	}
	if access.Team.IsOwner(targetUserID) {
		if role != domain.RoleOwner {
			return domain.ErrForbidden
		}
		return nil
	}
	switch role {
	case domain.RoleOwner:
		return domain.ErrForbidden
	case domain.RoleMember:
		roleID = nil
	case domain.RoleCustom:
		if roleID == nil || strings.TrimSpace(*roleID) == "" {
			return errRoleIDRequired
		}
		if _, err := s.repo.GetRole(ctx, teamID, *roleID); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidArgument, role)
	}
	if err := s.repo.UpdateMemberRole(ctx, teamID, targetUserID, role, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotAMember
		}
		return err
	}
	s.logger.Info("team member role changed", "team_id", teamID, "user_id", targetUserID, "role", role)
	return nil
}

// CreateRole defines a custom capability bundle for the team.
func (s Service) CreateRole(ctx context.Context, teamID, actingUserID, name string, caps domain.Capabilities) (*domain.CustomRole, error) {
	if _, err := s.perms.AuthorizeAccess(ctx, actingUserID, teamID, domain.CapManageRoles); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxRoleNameLength {
		return nil, errInvalidRoleName
	}
	role := &domain.CustomRole{
		ID:           uuid.NewString(),
		TeamID:       teamID,
		Name:         name,
		Capabilities: caps,
	}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		if errors.Is(err, repository.ErrInvalidArgument) {
			return nil, fmt.Errorf("%w: role %q already exists", domain.ErrInvalidArgument, name)
		}
		return nil, err
	}
	s.logger.Info("team role created", "team_id", teamID, "role_id", role.ID, "name", name)
	return role, nil
}

// ListRoles returns the custom roles of a team to any active member.
func (s Service) ListRoles(ctx context.Context, teamID, userID string) ([]domain.CustomRole, error) {
	if _, err := s.perms.RequireMember(ctx, userID, teamID); err != nil {
		return nil, err
	}
	return s.repo.ListRoles(ctx, teamID)
}

// Delete removes a team. Only the owner may do this.
func (s Service) Delete(ctx context.Context, teamID, actingUserID string) error {
	team, err := s.repo.GetTeamByID(ctx, teamID)
	if err != nil {
		return err
	}
	if !team.IsOwner(actingUserID) {
		return domain.ErrForbidden
	}
	if err := s.repo.DeleteTeam(ctx, teamID); err != nil {
		return err
	}
	s.logger.Info("team deleted", "team_id", teamID, "owner_id", actingUserID)
	return nil
}

// Authorize checks that userID holds capability in teamID.
func (s Service) Authorize(ctx context.Context, userID, teamID string, capability domain.Capability) error {
	return s.perms.Authorize(ctx, userID, teamID, capability)
}
