// Package content serves team-scoped reads and writes of generated content.
package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/permission"
)

const (
	maxTitleLength = 300
	defaultLimit   = 50
	maxLimit       = 200
)

var (
	errInvalidKind  = fmt.Errorf("%w: kind must be article or keyword", domain.ErrInvalidArgument)
	errInvalidTitle = fmt.Errorf("%w: title is required", domain.ErrInvalidArgument)
	errTitleTooLong = fmt.Errorf("%w: title is too long", domain.ErrInvalidArgument)
)

// Consumer charges quota before content is produced.
type Consumer interface {
	CheckAndRecord(ctx context.Context, teamID, resourceType string, amount int) (domain.Consumption, error)
}

// Service reads and writes content on behalf of a user inside their active team.
type Service struct {
	repo   repository.ContentRepository
	perms  permission.Engine
	usage  Consumer
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a Service.
func New(repo repository.ContentRepository, perms permission.Engine, usage Consumer, logger *slog.Logger) Service {
	return Service{repo: repo, perms: perms, usage: usage, logger: logger, now: time.Now}
}

// Create stores a new item after charging one unit of the kind's quota. The charge is
// final: a failed insert or a later delete does not return the unit.
func (s Service) Create(ctx context.Context, teamID, userID, kind, title, body string) (*domain.Content, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	resource, ok := domain.ResourceTypeForKind(kind)
	if !ok {
		return nil, errInvalidKind
	}
	title, err := cleanTitle(title)
	if err != nil {
		return nil, err
	}
	if err := s.perms.Authorize(ctx, userID, teamID, domain.CapCreateContent); err != nil {
		return nil, err
	}
	if _, err := s.usage.CheckAndRecord(ctx, teamID, resource, 1); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	item := &domain.Content{
		ID:        uuid.NewString(),
		TeamID:    teamID,
		CreatorID: userID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateContent(ctx, item); err != nil {
		s.logger.Warn("content insert failed after quota charge",
			"team_id", teamID,
			"resource_type", resource,
			"error", err,
		)
		return nil, err
	}
	s.logger.Info("content created", "team_id", teamID, "user_id", userID, "content_id", item.ID, "kind", kind)
	return item, nil
}

// Get returns an item of the team. Items of other teams are reported as not found.
func (s Service) Get(ctx context.Context, teamID, userID, contentID string) (*domain.Content, error) {
	if _, err := s.perms.RequireMember(ctx, userID, teamID); err != nil {
		return nil, err
	}
	return s.repo.GetContent(ctx, teamID, contentID)
}

// List pages through the team's content, newest first. An empty kind lists every kind.
func (s Service) List(ctx context.Context, teamID, userID, kind string, limit, offset int) ([]domain.Content, error) {
	if _, err := s.perms.RequireMember(ctx, userID, teamID); err != nil {
		return nil, err
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind != "" {
		if _, ok := domain.ResourceTypeForKind(kind); !ok {
			return nil, errInvalidKind
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListContent(ctx, teamID, kind, limit, offset)
}

// Update rewrites title and body.
func (s Service) Update(ctx context.Context, teamID, userID, contentID, title, body string) (*domain.Content, error) {
	title, err := cleanTitle(title)
	if err != nil {
		return nil, err
	}
	if err := s.perms.Authorize(ctx, userID, teamID, domain.CapEditContent); err != nil {
		return nil, err
	}
	item, err := s.repo.GetContent(ctx, teamID, contentID)
	if err != nil {
		return nil, err
	}
	item.Title = title
	item.Body = body
	item.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateContent(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("content updated", "team_id", teamID, "user_id", userID, "content_id", contentID)
	return item, nil
}

// Delete removes an item. Quota already consumed is not refunded.
func (s Service) Delete(ctx context.Context, teamID, userID, contentID string) error {
	if err := s.perms.Authorize(ctx, userID, teamID, domain.CapDeleteContent); err != nil {
		return err
	}
	if err := s.repo.DeleteContent(ctx, teamID, contentID); err != nil {
		return err
	}
	s.logger.Info("content deleted", "team_id", teamID, "user_id", userID, "content_id", contentID)
	return nil
}

func cleanTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errInvalidTitle
	}
	if len(title) > maxTitleLength {
		return "", errTitleTooLong
	}
	return title, nil
}
