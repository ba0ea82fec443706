package billing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
)

type recordingApplier struct {
	updates []domain.SubscriptionUpdate
	limits  map[string]map[string]int
}

func (r *recordingApplier) Apply(_ context.Context, update domain.SubscriptionUpdate) error {
	r.updates = append(r.updates, update)
	return nil
}

func (r *recordingApplier) SetLimits(_ context.Context, teamID string, limits map[string]int) error {
	if r.limits == nil {
		r.limits = make(map[string]map[string]int)
	}
	r.limits[teamID] = limits
	return nil
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const payload = `{"team_id":"team-1","plan_type":"pro","status":"active","current_period_start":"2026-05-01T00:00:00Z","current_period_end":"2026-06-01T00:00:00Z"}`

func TestHandleAppliesSignedEvent(t *testing.T) {
	applier := &recordingApplier{}
	svc := New(applier, "shh", newLogger())

	event, err := svc.Handle(context.Background(), []byte(payload), "sha256="+Sign([]byte(payload), []byte("shh")))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if event.TeamID != "team-1" || len(applier.updates) != 1 {
		t.Fatalf("expected one applied update, got %+v", applier.updates)
	}
	update := applier.updates[0]
	if update.PlanType != "pro" || update.Status != "active" || update.PeriodEnd.Month() != 6 {
		t.Fatalf("unexpected update: %+v", update)
	}
	if len(applier.limits) != 0 {
		t.Fatalf("expected no limit override, got %+v", applier.limits)
	}
}

func TestHandleAppliesCustomLimits(t *testing.T) {
	body := []byte(`{"team_id":"team-1","plan_type":"enterprise","status":"active","current_period_start":"2026-05-01T00:00:00Z","current_period_end":"2026-06-01T00:00:00Z","limits":{"keywords":5}}`)
	applier := &recordingApplier{}
	svc := New(applier, "shh", newLogger())

	if _, err := svc.Handle(context.Background(), body, Sign(body, []byte("shh"))); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(applier.updates) != 1 {
		t.Fatalf("expected subscription update before limits, got %d", len(applier.updates))
	}
	if got := applier.limits["team-1"][domain.ResourceKeywords]; got != 5 {
		t.Fatalf("expected keywords limit 5, got %+v", applier.limits)
	}
}

func TestHandleRejectsBadSignature(t *testing.T) {
	applier := &recordingApplier{}
	svc := New(applier, "shh", newLogger())

	if _, err := svc.Handle(context.Background(), []byte(payload), ""); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
	if _, err := svc.Handle(context.Background(), []byte(payload), Sign([]byte(payload), []byte("other"))); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if len(applier.updates) != 0 {
		t.Fatalf("unsigned events must not be applied")
	}
}

func TestHandleDisabledWithoutSecret(t *testing.T) {
	svc := New(&recordingApplier{}, " ", newLogger())
	if _, err := svc.Handle(context.Background(), []byte(payload), "abc"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestHandleRejectsMalformedBody(t *testing.T) {
	body := []byte("{not json")
	svc := New(&recordingApplier{}, "shh", newLogger())
	if _, err := svc.Handle(context.Background(), body, Sign(body, []byte("shh"))); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
