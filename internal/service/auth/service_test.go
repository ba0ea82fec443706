package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository/memory"
	"github.com/mattbell19/wordgen-v2-production-sub006/pkg/config"
	jwtpkg "github.com/mattbell19/wordgen-v2-production-sub006/pkg/jwt"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.APIConfig {
	return config.APIConfig{JWTSecret: "test-secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}
}

func TestSignupLoginAuthorize(t *testing.T) {
	svc := New(memory.New(), nil, newLogger(), testConfig())
	ctx := context.Background()

	user, tokens, err := svc.Signup(ctx, " Alice@Example.com ", "Testing123!", "Alice")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Email != "alice@example.com" || tokens.AccessToken == "" || tokens.TeamID != "" {
		t.Fatalf("unexpected signup result: %+v %+v", user, tokens)
	}
	if _, _, err := svc.Signup(ctx, "alice@example.com", "Testing123!", ""); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	if _, _, err := svc.Login(ctx, "alice@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "Testing123!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
	_, loginTokens, err := svc.Login(ctx, "alice@example.com", "Testing123!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	got, claims, err := svc.Authorize(ctx, loginTokens.AccessToken)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if got.ID != user.ID || claims.Kind != jwtpkg.KindAccess {
		t.Fatalf("unexpected authorize result: %+v %+v", got, claims)
	}
	if _, _, err := svc.Authorize(ctx, loginTokens.RefreshToken); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("refresh token as access: expected ErrUnauthenticated, got %v", err)
	}
}

func TestSignupValidatesInput(t *testing.T) {
	svc := New(memory.New(), nil, newLogger(), testConfig())
	if _, _, err := svc.Signup(context.Background(), "not-an-email", "Testing123!", ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for email, got %v", err)
	}
	if _, _, err := svc.Signup(context.Background(), "bob@example.com", "short", ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for password, got %v", err)
	}
}

func TestRefreshDropsStaleTeam(t *testing.T) {
	store := memory.New()
	member := true
	checker := MembershipCheckFunc(func(context.Context, string, string) error {
		if member {
			return nil
		}
		return domain.ErrNotAMember
	})
	svc := New(store, checker, newLogger(), testConfig())
	ctx := context.Background()

	user, _, err := svc.Signup(ctx, "bob@example.com", "Testing123!", "Bob")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	scoped, err := svc.IssueForTeam(user.ID, "team-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, scoped.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.TeamID != "team-1" {
		t.Fatalf("expected team binding kept, got %q", refreshed.TeamID)
	}

	member = false
	refreshed, err = svc.Refresh(ctx, scoped.RefreshToken)
	if err != nil {
		t.Fatalf("refresh after removal: %v", err)
	}
	if refreshed.TeamID != "" {
		t.Fatalf("expected team binding dropped, got %q", refreshed.TeamID)
	}
	claims, err := jwtpkg.Parse(refreshed.AccessToken, "test-secret", jwtpkg.KindAccess)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.TeamID != "" {
		t.Fatalf("expected access token without team, got %q", claims.TeamID)
	}

	if _, err := svc.Refresh(ctx, scoped.AccessToken); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("access token as refresh: expected ErrUnauthenticated, got %v", err)
	}
}
