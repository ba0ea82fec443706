package permission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository/memory"
)

func TestResolve(t *testing.T) {
	team := domain.Team{ID: "team-1", OwnerID: "owner"}
	active := func(role domain.Role) *domain.Membership {
		return &domain.Membership{TeamID: team.ID, UserID: "u", Role: role, Status: domain.MembershipStatusActive}
	}
	custom := &domain.CustomRole{ID: "r1", TeamID: team.ID, Capabilities: domain.Capabilities{Invite: true}}
	foreign := &domain.CustomRole{ID: "r2", TeamID: "team-2", Capabilities: domain.AllCapabilities()}
	removed := active(domain.RoleMember)
	removed.Status = domain.MembershipStatusRemoved

	cases := []struct {
		name       string
		userID     string
		membership *domain.Membership
		custom     *domain.CustomRole
		want       domain.Capabilities
	}{
		{name: "owner without membership row", userID: "owner", want: domain.AllCapabilities()},
		{name: "owner with member record", userID: "owner", membership: active(domain.RoleMember), want: domain.AllCapabilities()},
		{name: "member", userID: "u", membership: active(domain.RoleMember), want: domain.MemberCapabilities()},
		{name: "custom", userID: "u", membership: active(domain.RoleCustom), custom: custom, want: domain.Capabilities{Invite: true}},
		{name: "custom role missing", userID: "u", membership: active(domain.RoleCustom)},
		{name: "custom role of another team", userID: "u", membership: active(domain.RoleCustom), custom: foreign},
		{name: "removed", userID: "u", membership: removed},
		{name: "stranger", userID: "u"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.userID, team, tc.membership, tc.custom); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestAuthorizeAndRequireMember(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()
	team := &domain.Team{ID: "team-1", Name: "Acme", OwnerID: "owner", CreatedAt: now}
	owner := &domain.Membership{TeamID: team.ID, UserID: "owner", Role: domain.RoleOwner, Status: domain.MembershipStatusActive, CreatedAt: now, UpdatedAt: now}
	if err := store.CreateTeamWithOwner(ctx, team, owner); err != nil {
		t.Fatalf("seed: %v", err)
	}
	engine := New(store)

	if err := engine.Authorize(ctx, "owner", team.ID, domain.CapManageRoles); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if err := engine.Authorize(ctx, "stranger", team.ID, domain.CapCreateContent); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("stranger authorize: expected ErrForbidden, got %v", err)
	}
	if _, err := engine.RequireMember(ctx, "stranger", team.ID); !errors.Is(err, domain.ErrNotAMember) {
		t.Fatalf("stranger require: expected ErrNotAMember, got %v", err)
	}
	if _, err := engine.RequireMember(ctx, "owner", "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown team: expected ErrNotFound, got %v", err)
	}
	if err := engine.Authorize(ctx, "owner", team.ID, domain.Capability("launch_rockets")); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("unknown capability: expected ErrForbidden, got %v", err)
	}
}
