package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
	"github.com/mattbell19/wordgen-v2-production-sub006/pkg/config"
	"github.com/mattbell19/wordgen-v2-production-sub006/pkg/crypto"
	jwtpkg "github.com/mattbell19/wordgen-v2-production-sub006/pkg/jwt"
)

const minPasswordLength = 8

var (
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthenticated is returned for missing or invalid bearer tokens.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrEmailTaken is returned when signing up with a registered email.
	ErrEmailTaken = errors.New("email already registered")

	errInvalidEmail = fmt.Errorf("%w: a valid email is required", domain.ErrInvalidArgument)
	errWeakPassword = fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidArgument, minPasswordLength)
)

// MembershipChecker confirms a team binding is still valid when tokens are refreshed.
type MembershipChecker interface {
	RequireMember(ctx context.Context, userID, teamID string) error
}

// MembershipCheckFunc adapts a function to MembershipChecker.
type MembershipCheckFunc func(ctx context.Context, userID, teamID string) error

// RequireMember implements MembershipChecker.
func (f MembershipCheckFunc) RequireMember(ctx context.Context, userID, teamID string) error {
	return f(ctx, userID, teamID)
}

// Service handles authentication workflows and is the session collaborator of the
// tenancy core: tokens carry the user and the active team.
type Service struct {
	users   repository.UserRepository
	members MembershipChecker
	logger  *slog.Logger
	cfg     config.APIConfig
}

// New constructs a Service. members may be nil, in which case refresh keeps the team.
func New(users repository.UserRepository, members MembershipChecker, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, members: members, logger: logger, cfg: cfg}
}

// TokenPair contains access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	TeamID       string
}

// Signup registers a new user.
func (s Service) Signup(ctx context.Context, email, password, name string) (*domain.User, TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, TokenPair{}, errInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, TokenPair{}, errWeakPassword
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrInvalidArgument) || errors.Is(err, repository.ErrConflict) {
			return nil, TokenPair{}, ErrEmailTaken
		}
		return nil, TokenPair{}, err
	}
	tokens, err := s.issueTokens(user.ID, "")
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, tokens, nil
}

// Login authenticates a user and returns tokens without an active team.
func (s Service) Login(ctx context.Context, email, password string) (*domain.User, TokenPair, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	tokens, err := s.issueTokens(user.ID, "")
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, tokens, nil
}

// Authorize validates an access token and returns the associated user and claims.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, ErrUnauthenticated
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret, jwtpkg.KindAccess)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrUnauthenticated
		}
		return nil, nil, err
	}
	return user, claims, nil
}

// Refresh exchanges a refresh token for a new pair. A team binding whose membership
// is gone is dropped rather than carried forward.
func (s Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := jwtpkg.Parse(strings.TrimSpace(refreshToken), s.cfg.JWTSecret, jwtpkg.KindRefresh)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if _, err := s.users.GetUserByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrUnauthenticated
		}
		return TokenPair{}, err
	}
	teamID := claims.TeamID
	if teamID != "" && s.members != nil {
		if err := s.members.RequireMember(ctx, claims.UserID, teamID); err != nil {
			if !errors.Is(err, domain.ErrNotAMember) && !errors.Is(err, repository.ErrNotFound) {
				return TokenPair{}, err
			}
			s.logger.Info("dropping stale team binding on refresh", "user_id", claims.UserID, "team_id", teamID)
			teamID = ""
		}
	}
	return s.issueTokens(claims.UserID, teamID)
}

// IssueForTeam mints a pair bound to teamID. Callers must have validated membership.
func (s Service) IssueForTeam(userID, teamID string) (TokenPair, error) {
	return s.issueTokens(userID, teamID)
}

func (s Service) issueTokens(userID, teamID string) (TokenPair, error) {
	access, err := jwtpkg.GenerateToken(userID, teamID, jwtpkg.KindAccess, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := jwtpkg.GenerateToken(userID, teamID, jwtpkg.KindRefresh, s.cfg.JWTSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: s.cfg.AccessTokenTTL, TeamID: teamID}, nil
}
