package content

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository/memory"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/permission"
)

type countingConsumer struct {
	calls map[string]int
	limit int
}

func (c *countingConsumer) CheckAndRecord(_ context.Context, teamID, resourceType string, amount int) (domain.Consumption, error) {
	key := teamID + "/" + resourceType
	if c.limit > 0 && c.calls[key]+amount > c.limit {
		return domain.Consumption{}, domain.ErrQuotaExceeded
	}
	c.calls[key] += amount
	return domain.Consumption{TeamID: teamID, ResourceType: resourceType, Amount: amount, Used: c.calls[key]}, nil
}

func seedTeam(t *testing.T, store *memory.Store, teamID, ownerID string) {
	t.Helper()
	now := time.Now().UTC()
	team := &domain.Team{ID: teamID, Name: teamID, OwnerID: ownerID, CreatedAt: now}
	owner := &domain.Membership{TeamID: teamID, UserID: ownerID, Role: domain.RoleOwner, Status: domain.MembershipStatusActive, CreatedAt: now, UpdatedAt: now}
	if err := store.CreateTeamWithOwner(context.Background(), team, owner); err != nil {
		t.Fatalf("seed team %s: %v", teamID, err)
	}
}

func newService(store *memory.Store, consumer Consumer) Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, permission.New(store), consumer, log)
}

func TestContentIsIsolatedAcrossTeams(t *testing.T) {
	store := memory.New()
	seedTeam(t, store, "team-a", "alice")
	seedTeam(t, store, "team-b", "mallory")
	svc := newService(store, &countingConsumer{calls: map[string]int{}})
	ctx := context.Background()

	item, err := svc.Create(ctx, "team-a", "alice", domain.ContentKindArticle, "Launch plan", "body")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(ctx, "team-b", "mallory", item.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("cross-team read: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Get(ctx, "team-a", "mallory", item.ID); !errors.Is(err, domain.ErrNotAMember) {
		t.Fatalf("foreign team id: expected ErrNotAMember, got %v", err)
	}
	if _, err := svc.Update(ctx, "team-b", "mallory", item.ID, "pwned", ""); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("cross-team update: expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, "team-b", "mallory", item.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("cross-team delete: expected ErrNotFound, got %v", err)
	}
	list, err := svc.List(ctx, "team-b", "mallory", "", 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no content visible to team-b, got %d", len(list))
	}

	got, err := svc.Get(ctx, "team-a", "alice", item.ID)
	if err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if got.Title != "Launch plan" {
		t.Fatalf("content was modified by another tenant: %+v", got)
	}
}

func TestCreateChargesQuotaByKind(t *testing.T) {
	store := memory.New()
	seedTeam(t, store, "team-a", "alice")
	consumer := &countingConsumer{calls: map[string]int{}, limit: 1}
	svc := newService(store, consumer)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "team-a", "alice", "Article", "One", ""); err != nil {
		t.Fatalf("first article: %v", err)
	}
	if _, err := svc.Create(ctx, "team-a", "alice", domain.ContentKindKeyword, "seo", ""); err != nil {
		t.Fatalf("first keyword: %v", err)
	}
	if _, err := svc.Create(ctx, "team-a", "alice", domain.ContentKindArticle, "Two", ""); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if consumer.calls["team-a/"+domain.ResourceArticles] != 1 || consumer.calls["team-a/"+domain.ResourceKeywords] != 1 {
		t.Fatalf("unexpected charges: %+v", consumer.calls)
	}
	list, err := svc.List(ctx, "team-a", "alice", domain.ContentKindArticle, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one stored article, got %d", len(list))
	}
}

func TestCreateRejectsBeforeCharging(t *testing.T) {
	store := memory.New()
	seedTeam(t, store, "team-a", "alice")
	consumer := &countingConsumer{calls: map[string]int{}}
	svc := newService(store, consumer)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "team-a", "stranger", domain.ContentKindArticle, "Nope", ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Create(ctx, "team-a", "alice", "podcast", "Nope", ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if len(consumer.calls) != 0 {
		t.Fatalf("rejected requests must not consume quota: %+v", consumer.calls)
	}
}

type failingContentStore struct {
	*memory.Store
	err error
}

func (f failingContentStore) CreateContent(context.Context, *domain.Content) error {
	return f.err
}

func TestFailedInsertKeepsQuotaCharge(t *testing.T) {
	store := memory.New()
	seedTeam(t, store, "team-a", "alice")
	consumer := &countingConsumer{calls: map[string]int{}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	insertErr := errors.New("insert failed")
	svc := New(failingContentStore{Store: store, err: insertErr}, permission.New(store), consumer, log)

	if _, err := svc.Create(context.Background(), "team-a", "alice", domain.ContentKindArticle, "Draft", ""); !errors.Is(err, insertErr) {
		t.Fatalf("expected insert error, got %v", err)
	}
	if got := consumer.calls["team-a/"+domain.ResourceArticles]; got != 1 {
		t.Fatalf("expected the charged unit to stay consumed, got %d", got)
	}
	list, err := svc.List(context.Background(), "team-a", "alice", "", 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected nothing stored, got %d items", len(list))
	}
}
