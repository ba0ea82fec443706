package repository

import (
	"context"
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// TeamRepository manages teams, memberships and custom roles.
type TeamRepository interface {
	// CreateTeamWithOwner inserts the team and its owner membership atomically.
	// It returns domain.ErrAlreadyOwnsTeam when team.OwnerID already owns a team and
	// domain.ErrAlreadyMember when the owner is an active member elsewhere.
	CreateTeamWithOwner(ctx context.Context, team *domain.Team, owner *domain.Membership) error
	GetTeamByID(ctx context.Context, teamID string) (*domain.Team, error)
	ListTeamsByUser(ctx context.Context, userID string) ([]domain.Team, error)
	DeleteTeam(ctx context.Context, teamID string) error
	GetMembership(ctx context.Context, teamID, userID string) (*domain.Membership, error)
	ListMembers(ctx context.Context, teamID string) ([]domain.MemberView, error)
	IsActiveMemberEmail(ctx context.Context, teamID, email string) (bool, error)
	UpdateMemberRole(ctx context.Context, teamID, userID string, role domain.Role, roleID *string) error
	// MarkMemberRemoved flips an active membership to removed. ErrNotFound when no
	// active membership exists.
	MarkMemberRemoved(ctx context.Context, teamID, userID string) error
	CreateRole(ctx context.Context, role *domain.CustomRole) error
	GetRole(ctx context.Context, teamID, roleID string) (*domain.CustomRole, error)
	ListRoles(ctx context.Context, teamID string) ([]domain.CustomRole, error)
}

// InvitationRepository persists invitation tokens keyed by their hash.
type InvitationRepository interface {
	// CreateInvitation returns domain.ErrDuplicatePendingInvite when a live pending
	// invitation exists for (team, email).
	CreateInvitation(ctx context.Context, inv *domain.Invitation) error
	GetInvitation(ctx context.Context, tokenHash string) (*domain.Invitation, error)
	ListPendingInvitations(ctx context.Context, teamID string, now time.Time) ([]domain.Invitation, error)
	MarkInvitationExpired(ctx context.Context, tokenHash string) error
	// AcceptInvitation transitions pending->accepted and activates the member in one
	// unit. It returns domain.ErrInvitationNotActionable when the invitation is no longer
	// pending or has expired at write time.
	AcceptInvitation(ctx context.Context, tokenHash, userID string, now time.Time, member *domain.Membership) (*domain.Invitation, error)
	// DeclineInvitation transitions pending->declined with the same guard.
	DeclineInvitation(ctx context.Context, tokenHash, userID string, now time.Time) (*domain.Invitation, error)
}

// SubscriptionRepository stores billing state and usage limits.
type SubscriptionRepository interface {
	GetSubscription(ctx context.Context, teamID string) (*domain.Subscription, error)
	UpsertSubscription(ctx context.Context, sub *domain.Subscription) error
	ListLimits(ctx context.Context, teamID string) ([]domain.UsageLimit, error)
	ReplaceLimits(ctx context.Context, teamID string, limits []domain.UsageLimit) error
}

// UsageRepository stores per-period consumption.
type UsageRepository interface {
	// ConsumeUsage adds amount to the period record unless limited and the result would
	// exceed max, in which case it returns domain.ErrQuotaExceeded and records nothing.
	ConsumeUsage(ctx context.Context, key domain.UsageKey, amount, max int, limited bool) (int, error)
	GetUsage(ctx context.Context, key domain.UsageKey) (int, error)
	ListUsage(ctx context.Context, teamID string, periodStart time.Time) ([]domain.UsageRecord, error)
}

// ContentRepository persists team-scoped content. Every method filters by team.
type ContentRepository interface {
	CreateContent(ctx context.Context, content *domain.Content) error
	GetContent(ctx context.Context, teamID, contentID string) (*domain.Content, error)
	ListContent(ctx context.Context, teamID, kind string, limit, offset int) ([]domain.Content, error)
	UpdateContent(ctx context.Context, content *domain.Content) error
	DeleteContent(ctx context.Context, teamID, contentID string) error
}

// Store aggregates every repository the service needs.
type Store interface {
	UserRepository
	TeamRepository
	InvitationRepository
	SubscriptionRepository
	UsageRepository
	ContentRepository
}
