// Package permission resolves a (user, team) pair to a capability bundle.
package permission

import (
	"context"
	"errors"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
)

// Access is the resolved view of a user's standing in a team.
type Access struct {
	Team         domain.Team
	Membership   domain.Membership
	Capabilities domain.Capabilities
}

// Engine answers authorization questions from membership state. It has no side effects.
type Engine struct {
	teams repository.TeamRepository
}

// New constructs an Engine.
func New(teams repository.TeamRepository) Engine {
	return Engine{teams: teams}
}

// Resolve computes the capability bundle. The team owner gets every capability no
// matter what the stored membership says; a missing or removed membership gets none.
// A custom role whose record is gone resolves to nothing.
func Resolve(userID string, team domain.Team, membership *domain.Membership, custom *domain.CustomRole) domain.Capabilities {
	if team.IsOwner(userID) {
		return domain.AllCapabilities()
	}
	if membership == nil || !membership.Active() {
		return domain.Capabilities{}
	}
	switch membership.Role {
	case domain.RoleMember, domain.RoleOwner:
		return domain.MemberCapabilities()
	case domain.RoleCustom:
		if custom == nil || custom.TeamID != team.ID {
			return domain.Capabilities{}
		}
		return custom.Capabilities
	default:
		return domain.Capabilities{}
	}
}

// Access loads the team and membership and resolves capabilities. It returns
// repository.ErrNotFound for an unknown team and domain.ErrNotAMember when the user
// neither owns nor actively belongs to it.
func (e Engine) Access(ctx context.Context, userID, teamID string) (Access, error) {
	if userID == "" || teamID == "" {
		return Access{}, domain.ErrNotAMember
	}
	team, err := e.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		return Access{}, err
	}
	membership, err := e.teams.GetMembership(ctx, teamID, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Access{}, err
	}
	if team.IsOwner(userID) && (membership == nil || !membership.Active()) {
		membership = &domain.Membership{
			TeamID:    teamID,
			UserID:    userID,
			Role:      domain.RoleOwner,
			Status:    domain.MembershipStatusActive,
			CreatedAt: team.CreatedAt,
		}
	}
	if membership == nil || !membership.Active() {
		return Access{}, domain.ErrNotAMember
	}
	var custom *domain.CustomRole
	if membership.Role == domain.RoleCustom && membership.RoleID != nil {
		custom, err = e.teams.GetRole(ctx, teamID, *membership.RoleID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return Access{}, err
		}
	}
	return Access{
		Team:         *team,
		Membership:   *membership,
		Capabilities: Resolve(userID, *team, membership, custom),
	}, nil
}

// Authorize returns nil when the user holds capability in the team and
// domain.ErrForbidden otherwise, including for non-members.
func (e Engine) Authorize(ctx context.Context, userID, teamID string, capability domain.Capability) error {
	_, err := e.AuthorizeAccess(ctx, userID, teamID, capability)
	return err
}

// AuthorizeAccess is Authorize that also hands back the resolved Access.
func (e Engine) AuthorizeAccess(ctx context.Context, userID, teamID string, capability domain.Capability) (Access, error) {
	access, err := e.Access(ctx, userID, teamID)
	if err != nil {
		if errors.Is(err, domain.ErrNotAMember) {
			return Access{}, domain.ErrForbidden
		}
		return Access{}, err
	}
	if !access.Capabilities.Has(capability) {
		return Access{}, domain.ErrForbidden
	}
	return access, nil
}

// Capabilities returns the caller's bundle in the team.
func (e Engine) Capabilities(ctx context.Context, userID, teamID string) (domain.Capabilities, error) {
	access, err := e.Access(ctx, userID, teamID)
	if err != nil {
		return domain.Capabilities{}, err
	}
	return access.Capabilities, nil
}

// RequireMember gates read paths on membership alone.
func (e Engine) RequireMember(ctx context.Context, userID, teamID string) (Access, error) {
	return e.Access(ctx, userID, teamID)
}
