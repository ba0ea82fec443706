package team

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository/memory"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/permission"
)

func newTestService(store *memory.Store) Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, permission.New(store), log)
}

// seedMember joins userID to the team through the invitation path the service uses.
func seedMember(t *testing.T, store *memory.Store, teamID, userID string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	hash := "hash-" + teamID + "-" + userID
	inv := &domain.Invitation{
		TokenHash:    hash,
		TeamID:       teamID,
		InviterID:    "seed",
		InviteeEmail: userID + "@example.com",
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Hour),
	}
	if err := store.CreateInvitation(ctx, inv); err != nil {
		t.Fatalf("seed invitation for %s: %v", userID, err)
	}
	member := &domain.Membership{TeamID: teamID, UserID: userID, Role: domain.RoleMember}
	if _, err := store.AcceptInvitation(ctx, hash, userID, now, member); err != nil {
		t.Fatalf("seed member %s: %v", userID, err)
	}
}

func TestCreateRejectsBlankName(t *testing.T) {
	svc := newTestService(memory.New())
	if _, err := svc.Create(context.Background(), "owner", "   ", nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestCreateSecondTeamForSameOwnerFails(t *testing.T) {
	svc := newTestService(memory.New())
	ctx := context.Background()
	if _, err := svc.Create(ctx, "owner", "Acme", nil); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(ctx, "owner", "Beta", nil); !errors.Is(err, domain.ErrAlreadyOwnsTeam) {
		t.Fatalf("expected ErrAlreadyOwnsTeam, got %v", err)
	}
}

func TestConcurrentCreateYieldsExactlyOneTeam(t *testing.T) {
	store := memory.New()
	svc := newTestService(store)
	ctx := context.Background()

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, "owner", "Acme", nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrAlreadyOwnsTeam):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != attempts-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", attempts-1, successes, conflicts)
	}
	teams, err := svc.List(ctx, "owner")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(teams) != 1 {
		t.Fatalf("expected exactly one team, got %d", len(teams))
	}
}

func TestCreateRejectsActiveMemberOfAnotherTeam(t *testing.T) {
	store := memory.New()
	svc := newTestService(store)
	ctx := context.Background()
	team, err := svc.Create(ctx, "owner", "Acme", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	seedMember(t, store, team.ID, "bob")
	if _, err := svc.Create(ctx, "bob", "Bob Co", nil); !errors.Is(err, domain.ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
}

func TestSwitchActiveTeamRequiresMembership(t *testing.T) {
	store := memory.New()
	svc := newTestService(store)
	ctx := context.Background()
	team, err := svc.Create(ctx, "owner", "Acme", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.SwitchActiveTeam(ctx, "stranger", team.ID); !errors.Is(err, domain.ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember, got %v", err)
	}
	if _, err := svc.SwitchActiveTeam(ctx, "owner", "missing-team"); !errors.Is(err, domain.ErrNotAMember) {
		t.Fatalf("expected ErrNotAMember for unknown team, got %v", err)
	}
	active, err := svc.SwitchActiveTeam(ctx, "owner", team.ID)
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if active.Team.ID != team.ID || active.Role != domain.RoleOwner || !active.Capabilities.ManageRoles {
		t.Fatalf("unexpected active context: %+v", active)
	}
}

func TestRemoveMemberRules(t *testing.T) {
	store := memory.New()
	svc := newTestService(store)
	ctx := context.Background()
	team, err := svc.Create(ctx, "owner", "Acme", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	seedMember(t, store, team.ID, "bob")
	seedMember(t, store, team.ID, "carol")

	if err := svc.RemoveMember(ctx, team.ID, "bob", "carol"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("member without remove capability: expected ErrForbidden, got %v", err)
	}
	if err := svc.RemoveMember(ctx, team.ID, "owner", "owner"); !errors.Is(err, domain.ErrCannotRemoveOwner) {
		t.Fatalf("expected ErrCannotRemoveOwner, got %v", err)
	}
	if err := svc.RemoveMember(ctx, team.ID, "owner", "bob"); err != nil {
		t.Fatalf("remove bob: %v", err)
	}
	membership, err := store.GetMembership(ctx, team.ID, "bob")
	if err != nil {
		t.Fatalf("membership lookup: %v", err)
	}
	if membership.Status != domain.MembershipStatusRemoved {
		t.Fatalf("expected removed status, got %s", membership.Status)
	}
	if err := svc.RemoveMember(ctx, team.ID, "owner", "bob"); !errors.Is(err, domain.ErrNotAMember) {
		t.Fatalf("second removal: expected ErrNotAMember, got %v", err)
	}
	if _, err := svc.ListMembers(ctx, team.ID, "bob"); !errors.Is(err, domain.ErrNotAMember) {
		t.Fatalf("removed member reading members: expected ErrNotAMember, got %v", err)
	}
}

func TestCustomRoleGrantsRemoveMembers(t *testing.T) {
	store := memory.New()
	svc := newTestService(store)
	ctx := context.Background()
	team, err := svc.Create(ctx, "owner", "Acme", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	seedMember(t, store, team.ID, "bob")
	seedMember(t, store, team.ID, "carol")

	role, err := svc.CreateRole(ctx, team.ID, "owner", "Moderator", domain.Capabilities{RemoveMembers: true})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if err := svc.ChangeMemberRole(ctx, team.ID, "owner", "bob", domain.RoleCustom, &role.ID); err != nil {
		t.Fatalf("change role: %v", err)
	}
	if err := svc.RemoveMember(ctx, team.ID, "bob", "carol"); err != nil {
		t.Fatalf("moderator removing carol: %v", err)
	}
}

func TestChangeMemberRoleProtectsOwner(t *testing.T) {
	store := memory.New()
	svc := newTestService(store)
	ctx := context.Background()
	team, err := svc.Create(ctx, "owner", "Acme", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	seedMember(t, store, team.ID, "bob")

	if err := svc.ChangeMemberRole(ctx, team.ID, "owner", "owner", domain.RoleMember, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("downgrading owner: expected ErrForbidden, got %v", err)
	}
	if err := svc.ChangeMemberRole(ctx, team.ID, "owner", "bob", domain.RoleOwner, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("promoting to owner: expected ErrForbidden, got %v", err)
	}
	if err := svc.ChangeMemberRole(ctx, team.ID, "owner", "bob", domain.RoleCustom, nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("custom without id: expected ErrInvalidArgument, got %v", err)
	}
	missing := "missing-role"
	if err := svc.ChangeMemberRole(ctx, team.ID, "owner", "bob", domain.RoleCustom, &missing); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown role: expected ErrNotFound, got %v", err)
	}
}

func TestLeaveAndDelete(t *testing.T) {
	store := memory.New()
	svc := newTestService(store)
	ctx := context.Background()
	team, err := svc.Create(ctx, "owner", "Acme", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	seedMember(t, store, team.ID, "bob")

	if err := svc.Leave(ctx, team.ID, "owner"); !errors.Is(err, domain.ErrCannotRemoveOwner) {
		t.Fatalf("owner leaving: expected ErrCannotRemoveOwner, got %v", err)
	}
	if err := svc.Delete(ctx, team.ID, "bob"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("member deleting: expected ErrForbidden, got %v", err)
	}
	if err := svc.Leave(ctx, team.ID, "bob"); err != nil {
		t.Fatalf("bob leaving: %v", err)
	}
	if err := svc.Delete(ctx, team.ID, "owner"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetTeamByID(ctx, team.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected team gone, got %v", err)
	}
	if _, err := svc.Create(ctx, "owner", "Acme Again", nil); err != nil {
		t.Fatalf("owner should be able to create a new team after deleting: %v", err)
	}
}
