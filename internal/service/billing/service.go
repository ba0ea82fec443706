// Package billing accepts signed subscription events from the billing collaborator.
package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Billing-Signature"

var (
	// ErrMissingSignature is returned when the request was not signed.
	ErrMissingSignature = errors.New("missing billing signature")
	// ErrInvalidSignature is returned when the signature does not match the payload.
	ErrInvalidSignature = errors.New("invalid billing signature")
	// ErrDisabled is returned when no shared secret is configured.
	ErrDisabled = errors.New("billing webhook disabled")
)

// Applier receives validated subscription updates and negotiated limit overrides.
type Applier interface {
	Apply(ctx context.Context, update domain.SubscriptionUpdate) error
	SetLimits(ctx context.Context, teamID string, limits map[string]int) error
}

// Event is the JSON body of a billing event. Limits, when present, replaces the plan
// catalog's limits for the team.
type Event struct {
	TeamID             string         `json:"team_id"`
	PlanType           string         `json:"plan_type"`
	Status             string         `json:"status"`
	CurrentPeriodStart time.Time      `json:"current_period_start"`
	CurrentPeriodEnd   time.Time      `json:"current_period_end"`
	Limits             map[string]int `json:"limits,omitempty"`
}

// Service validates and applies billing events.
type Service struct {
	subscriptions Applier
	secret        []byte
	logger        *slog.Logger
}

// New constructs a billing service.
func New(subscriptions Applier, secret string, logger *slog.Logger) Service {
	return Service{subscriptions: subscriptions, secret: []byte(strings.TrimSpace(secret)), logger: logger}
}

// ValidateSignature checks the HMAC signature for payload. A "sha256=" prefix is accepted.
func ValidateSignature(payload, secret []byte, provided string) error {
	provided = strings.TrimPrefix(strings.TrimSpace(provided), "sha256=")
	if provided == "" {
		return ErrMissingSignature
	}
	expected := Sign(payload, secret)
	if !hmac.Equal([]byte(strings.ToLower(provided)), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of payload.
func Sign(payload, secret []byte) string {
	hasher := hmac.New(sha256.New, secret)
	hasher.Write(payload)
	return hex.EncodeToString(hasher.Sum(nil))
}

// Handle verifies the signature, decodes the event and applies it.
func (s Service) Handle(ctx context.Context, payload []byte, signature string) (*Event, error) {
	if len(s.secret) == 0 {
		return nil, ErrDisabled
	}
	if err := ValidateSignature(payload, s.secret, signature); err != nil {
		s.logger.Warn("billing event rejected", "error", err)
		return nil, err
	}
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: decode billing event: %v", domain.ErrInvalidArgument, err)
	}
	update := domain.SubscriptionUpdate{
		TeamID:      event.TeamID,
		PlanType:    event.PlanType,
		Status:      event.Status,
		PeriodStart: event.CurrentPeriodStart,
		PeriodEnd:   event.CurrentPeriodEnd,
	}
	if err := s.subscriptions.Apply(ctx, update); err != nil {
		return nil, err
	}
	if len(event.Limits) > 0 {
		if err := s.subscriptions.SetLimits(ctx, update.TeamID, event.Limits); err != nil {
			return nil, err
		}
		s.logger.Info("custom limits applied", "team_id", update.TeamID, "resources", len(event.Limits))
	}
	return &event, nil
}
