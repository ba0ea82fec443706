// Package invitation issues and resolves single-use team invitation tokens.
package invitation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/notify"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/permission"
	"github.com/mattbell19/wordgen-v2-production-sub006/pkg/crypto"
)

// DefaultTTL is how long an invitation stays acceptable.
const DefaultTTL = 7 * 24 * time.Hour

// tokenBytes is the entropy of an invitation token.
const tokenBytes = 32

var errInvalidEmail = fmt.Errorf("%w: a valid email is required", domain.ErrInvalidArgument)

// Details is what an invitee sees before accepting.
type Details struct {
	Invitation   domain.Invitation
	TeamName     string
	InviterName  string
	InviterEmail string
}

// Option configures a Service.
type Option func(*Service)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithAcceptURL sets the link base handed to the notifier; the token is appended
// as a query parameter.
func WithAcceptURL(base string) Option {
	return func(s *Service) { s.acceptURL = strings.TrimSpace(base) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service implements the invitation lifecycle.
type Service struct {
	invitations repository.InvitationRepository
	teams       repository.TeamRepository
	users       repository.UserRepository
	perms       permission.Engine
	notifier    notify.Notifier
	logger      *slog.Logger
	ttl         time.Duration
	acceptURL   string
	now         func() time.Time
}

// New constructs a Service.
func New(invitations repository.InvitationRepository, teams repository.TeamRepository, users repository.UserRepository, perms permission.Engine, notifier notify.Notifier, logger *slog.Logger, opts ...Option) Service {
	s := Service{
		invitations: invitations,
		teams:       teams,
		users:       users,
		perms:       perms,
		notifier:    notifier,
		logger:      logger,
		ttl:         DefaultTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Invite issues an invitation for email. The returned invitation carries the
// plaintext token; it is never readable again.
func (s Service) Invite(ctx context.Context, teamID, inviterID, email string) (*domain.Invitation, error) {
	access, err := s.perms.AuthorizeAccess(ctx, inviterID, teamID, domain.CapInvite)
	if err != nil {
		return nil, err
	}
	email, err = normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	member, err := s.teams.IsActiveMemberEmail(ctx, teamID, email)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, domain.ErrAlreadyMember
	}

	token, err := crypto.RandomToken(tokenBytes)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	inv := &domain.Invitation{
		Token:        token,
		TokenHash:    crypto.HashToken(token),
		TeamID:       teamID,
		InviterID:    inviterID,
		InviteeEmail: email,
		Status:       domain.InvitationStatusPending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}
	if err := s.invitations.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}
	inv.Token = token
	s.logger.Info("invitation created", "team_id", teamID, "inviter_id", inviterID, "expires_at", inv.ExpiresAt)

	inviterName := inviterID
	if inviter, err := s.users.GetUserByID(ctx, inviterID); err == nil {
		inviterName = inviter.DisplayName()
	}
	s.deliver(ctx, "invitation", func(ctx context.Context) error {
		return s.notifier.NotifyInvitation(ctx, notify.Invitation{
			Email:       email,
			TeamID:      teamID,
			TeamName:    access.Team.Name,
			InviterID:   inviterID,
			InviterName: inviterName,
			Token:       token,
			AcceptURL:   s.link(token),
			ExpiresAt:   inv.ExpiresAt,
		})
	})
	return inv, nil
}

// Verify resolves a token to its invitation. A pending invitation past its expiry is
// marked expired on the way out.
func (s Service) Verify(ctx context.Context, token string) (*Details, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}
	hash := crypto.HashToken(token)
	inv, err := s.invitations.GetInvitation(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	if inv.Status == domain.InvitationStatusExpired {
		return nil, domain.ErrInvitationExpired
	}
	if inv.Pending() && inv.Expired(s.now()) {
		if err := s.invitations.MarkInvitationExpired(ctx, hash); err != nil {
			s.logger.Warn("mark invitation expired failed", "team_id", inv.TeamID, "error", err)
		}
		return nil, domain.ErrInvitationExpired
	}
	return s.details(ctx, inv)
}

// Accept joins userID to the invitation's team as a member.
func (s Service) Accept(ctx context.Context, token, userID string) (*Details, error) {
	details, err := s.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if !details.Invitation.Pending() {
		return nil, domain.ErrInvitationNotActionable
	}
	member := &domain.Membership{
		TeamID: details.Invitation.TeamID,
		UserID: userID,
		Role:   domain.RoleMember,
		Status: domain.MembershipStatusActive,
	}
	inv, err := s.invitations.AcceptInvitation(ctx, details.Invitation.TokenHash, userID, s.now(), member)
	if err != nil {
		return nil, err
	}
	details.Invitation = *inv
	s.logger.Info("invitation accepted", "team_id", inv.TeamID, "user_id", userID)
	s.resolved(ctx, details, userID, true)
	return details, nil
}

// Decline closes the invitation without creating a membership.
func (s Service) Decline(ctx context.Context, token, userID string) (*Details, error) {
	details, err := s.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if !details.Invitation.Pending() {
		return nil, domain.ErrInvitationNotActionable
	}
	inv, err := s.invitations.DeclineInvitation(ctx, details.Invitation.TokenHash, userID, s.now())
	if err != nil {
		return nil, err
	}
	details.Invitation = *inv
	s.logger.Info("invitation declined", "team_id", inv.TeamID, "user_id", userID)
	s.resolved(ctx, details, userID, false)
	return details, nil
}

// ListPending returns live pending invitations to any active member of the team.
func (s Service) ListPending(ctx context.Context, teamID, actingUserID string) ([]domain.Invitation, error) {
	if _, err := s.perms.RequireMember(ctx, actingUserID, teamID); err != nil {
		return nil, err
	}
	return s.invitations.ListPendingInvitations(ctx, teamID, s.now().UTC())
}

func (s Service) details(ctx context.Context, inv *domain.Invitation) (*Details, error) {
	team, err := s.teams.GetTeamByID(ctx, inv.TeamID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	details := &Details{Invitation: *inv, TeamName: team.Name, InviterName: inv.InviterID}
	inviter, err := s.users.GetUserByID(ctx, inv.InviterID)
	switch {
	case err == nil:
		details.InviterName = inviter.DisplayName()
		details.InviterEmail = inviter.Email
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	return details, nil
}

func (s Service) resolved(ctx context.Context, details *Details, userID string, accepted bool) {
	s.deliver(ctx, "invitation resolution", func(ctx context.Context) error {
		return s.notifier.NotifyInvitationResolved(ctx, notify.Resolution{
			InviterID:    details.Invitation.InviterID,
			InviterEmail: details.InviterEmail,
			InviteeEmail: details.Invitation.InviteeEmail,
			TeamID:       details.Invitation.TeamID,
			TeamName:     details.TeamName,
			UserID:       userID,
			Accepted:     accepted,
		})
	})
}

// deliver runs a notification after the state change committed. Failures are logged only.
func (s Service) deliver(ctx context.Context, kind string, send func(context.Context) error) {
	if s.notifier == nil {
		return
	}
	if err := send(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("notification failed", "kind", kind, "error", err)
	}
}

func (s Service) link(token string) string {
	if s.acceptURL == "" {
		return ""
	}
	u, err := url.Parse(s.acceptURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errInvalidEmail
	}
	return email, nil
}
