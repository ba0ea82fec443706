// Package memory provides a mutex-guarded implementation of repository.Store.
// It mirrors the atomicity of the Postgres repository: every method runs under a
// single lock, so the check-then-write units cannot interleave.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/repository"
)

type memberKey struct {
	teamID string
	userID string
}

type usageKey struct {
	teamID       string
	resourceType string
	periodStart  int64
}

// Store keeps all tenancy state in process memory.
type Store struct {
	mu            sync.Mutex
	users         map[string]domain.User
	teams         map[string]domain.Team
	members       map[memberKey]domain.Membership
	roles         map[string]domain.CustomRole
	invitations   map[string]domain.Invitation
	subscriptions map[string]domain.Subscription
	limits        map[string]map[string]int
	usage         map[usageKey]domain.UsageRecord
	contents      map[string]domain.Content
}

var _ repository.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:         make(map[string]domain.User),
		teams:         make(map[string]domain.Team),
		members:       make(map[memberKey]domain.Membership),
		roles:         make(map[string]domain.CustomRole),
		invitations:   make(map[string]domain.Invitation),
		subscriptions: make(map[string]domain.Subscription),
		limits:        make(map[string]map[string]int),
		usage:         make(map[usageKey]domain.UsageRecord),
		contents:      make(map[string]domain.Content),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser inserts a user; emails are unique.
func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := normalizeEmail(user.Email)
	for _, existing := range s.users {
		if existing.Email == email {
			return repository.ErrInvalidArgument
		}
	}
	stored := *user
	stored.Email = email
	s.users[user.ID] = stored
	return nil
}

// GetUserByEmail fetches a user by email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = normalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetUserByID fetches a user by id.
func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// CreateTeamWithOwner inserts the team and owner membership atomically.
func (s *Store) CreateTeamWithOwner(_ context.Context, team *domain.Team, owner *domain.Membership) error {
	if team == nil || owner == nil {
		return repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.teams {
		if t.OwnerID == team.OwnerID {
			return domain.ErrAlreadyOwnsTeam
		}
	}
	if s.activeTeamOfLocked(team.OwnerID) != "" {
		return domain.ErrAlreadyMember
	}
	s.teams[team.ID] = *team
	s.members[memberKey{team.ID, owner.UserID}] = *owner
	return nil
}

func (s *Store) activeTeamOfLocked(userID string) string {
	for key, m := range s.members {
		if key.userID == userID && m.Active() {
			return key.teamID
		}
	}
	return ""
}

// GetTeamByID returns a team.
func (s *Store) GetTeamByID(_ context.Context, teamID string) (*domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

// ListTeamsByUser returns owned or active-member teams, oldest first.
func (s *Store) ListTeamsByUser(_ context.Context, userID string) ([]domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	teams := make([]domain.Team, 0)
	for _, t := range s.teams {
		m, ok := s.members[memberKey{t.ID, userID}]
		if t.OwnerID == userID || (ok && m.Active()) {
			teams = append(teams, t)
		}
	}
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].CreatedAt.Equal(teams[j].CreatedAt) {
			return teams[i].ID < teams[j].ID
		}
		return teams[i].CreatedAt.Before(teams[j].CreatedAt)
	})
	return teams, nil
}

// DeleteTeam removes a team and everything it owns.
func (s *Store) DeleteTeam(_ context.Context, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[teamID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.teams, teamID)
	for key := range s.members {
		if key.teamID == teamID {
			delete(s.members, key)
		}
	}
	for id, role := range s.roles {
		if role.TeamID == teamID {
			delete(s.roles, id)
		}
	}
	for hash, inv := range s.invitations {
		if inv.TeamID == teamID {
			delete(s.invitations, hash)
		}
	}
	delete(s.subscriptions, teamID)
	delete(s.limits, teamID)
	for key := range s.usage {
		if key.teamID == teamID {
			delete(s.usage, key)
		}
	}
	for id, c := range s.contents {
		if c.TeamID == teamID {
			delete(s.contents, id)
		}
	}
	return nil
}

// GetMembership returns the membership regardless of status.
func (s *Store) GetMembership(_ context.Context, teamID, userID string) (*domain.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberKey{teamID, userID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

// ListMembers returns active members with their profile.
func (s *Store) ListMembers(_ context.Context, teamID string) ([]domain.MemberView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	views := make([]domain.MemberView, 0)
	for key, m := range s.members {
		if key.teamID != teamID || !m.Active() {
			continue
		}
		u := s.users[key.userID]
		views = append(views, domain.MemberView{Membership: m, Email: u.Email, Name: u.Name})
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].UserID < views[j].UserID
		}
		return views[i].CreatedAt.Before(views[j].CreatedAt)
	})
	return views, nil
}

// IsActiveMemberEmail reports whether an active member of the team uses email.
func (s *Store) IsActiveMemberEmail(_ context.Context, teamID, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = normalizeEmail(email)
	for key, m := range s.members {
		if key.teamID == teamID && m.Active() && s.users[key.userID].Email == email {
			return true, nil
		}
	}
	return false, nil
}

// UpdateMemberRole changes the role of an active member.
func (s *Store) UpdateMemberRole(_ context.Context, teamID, userID string, role domain.Role, roleID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{teamID, userID}
	m, ok := s.members[key]
	if !ok || !m.Active() {
		return repository.ErrNotFound
	}
	if roleID != nil {
		if r, ok := s.roles[*roleID]; !ok || r.TeamID != teamID {
			return repository.ErrNotFound
		}
		id := *roleID
		roleID = &id
	}
	m.Role = role
	m.RoleID = roleID
	m.UpdatedAt = time.Now().UTC()
	s.members[key] = m
	return nil
}

// MarkMemberRemoved flips an active membership to removed.
func (s *Store) MarkMemberRemoved(_ context.Context, teamID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{teamID, userID}
	m, ok := s.members[key]
	if !ok || !m.Active() {
		return repository.ErrNotFound
	}
	m.Status = domain.MembershipStatusRemoved
	m.UpdatedAt = time.Now().UTC()
	s.members[key] = m
	return nil
}

// CreateRole inserts a custom role; names are unique per team.
func (s *Store) CreateRole(_ context.Context, role *domain.CustomRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if r.TeamID == role.TeamID && strings.EqualFold(r.Name, role.Name) {
			return repository.ErrInvalidArgument
		}
	}
	s.roles[role.ID] = *role
	return nil
}

// GetRole fetches a custom role scoped to its team.
func (s *Store) GetRole(_ context.Context, teamID, roleID string) (*domain.CustomRole, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[roleID]
	if !ok || r.TeamID != teamID {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

// ListRoles returns the custom roles of a team ordered by name.
func (s *Store) ListRoles(_ context.Context, teamID string) ([]domain.CustomRole, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roles := make([]domain.CustomRole, 0)
	for _, r := range s.roles {
		if r.TeamID == teamID {
			roles = append(roles, r)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

// CreateInvitation persists a pending invitation.
func (s *Store) CreateInvitation(_ context.Context, inv *domain.Invitation) error {
	if inv == nil || strings.TrimSpace(inv.TokenHash) == "" {
		return repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email := normalizeEmail(inv.InviteeEmail)
	for hash, existing := range s.invitations {
		if existing.TeamID != inv.TeamID || existing.InviteeEmail != email || !existing.Pending() {
			continue
		}
		if existing.Expired(inv.CreatedAt) {
			existing.Status = domain.InvitationStatusExpired
			s.invitations[hash] = existing
			continue
		}
		return domain.ErrDuplicatePendingInvite
	}
	if _, ok := s.invitations[inv.TokenHash]; ok {
		return repository.ErrInvalidArgument
	}
	inv.InviteeEmail = email
	inv.Status = domain.InvitationStatusPending
	stored := *inv
	stored.Token = ""
	s.invitations[inv.TokenHash] = stored
	return nil
}

// GetInvitation fetches an invitation by token hash.
func (s *Store) GetInvitation(_ context.Context, tokenHash string) (*domain.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &inv, nil
}

// ListPendingInvitations returns live pending invitations for a team.
func (s *Store) ListPendingInvitations(_ context.Context, teamID string, now time.Time) ([]domain.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Invitation, 0)
	for _, inv := range s.invitations {
		if inv.TeamID == teamID && inv.Pending() && !inv.Expired(now) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// MarkInvitationExpired marks a pending invitation as expired.
func (s *Store) MarkInvitationExpired(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv, ok := s.invitations[tokenHash]; ok && inv.Pending() {
		inv.Status = domain.InvitationStatusExpired
		s.invitations[tokenHash] = inv
	}
	return nil
}

// AcceptInvitation consumes the invitation and activates the membership.
func (s *Store) AcceptInvitation(_ context.Context, tokenHash, userID string, now time.Time, member *domain.Membership) (*domain.Invitation, error) {
	if member == nil {
		return nil, repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, err := s.resolvableLocked(tokenHash, now)
	if err != nil {
		return nil, err
	}
	key := memberKey{inv.TeamID, userID}
	if existing, ok := s.members[key]; ok && existing.Active() {
		return nil, domain.ErrAlreadyMember
	}
	if other := s.activeTeamOfLocked(userID); other != "" {
		return nil, domain.ErrAlreadyMember
	}
	ts := now.UTC()
	createdAt := ts
	if existing, ok := s.members[key]; ok {
		createdAt = existing.CreatedAt
	}
	s.members[key] = domain.Membership{
		TeamID:    inv.TeamID,
		UserID:    userID,
		Role:      member.Role,
		Status:    domain.MembershipStatusActive,
		CreatedAt: createdAt,
		UpdatedAt: ts,
	}
	s.finishLocked(&inv, domain.InvitationStatusAccepted, userID, ts)
	return &inv, nil
}

// DeclineInvitation transitions a pending invitation to declined.
func (s *Store) DeclineInvitation(_ context.Context, tokenHash, userID string, now time.Time) (*domain.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, err := s.resolvableLocked(tokenHash, now)
	if err != nil {
		return nil, err
	}
	s.finishLocked(&inv, domain.InvitationStatusDeclined, userID, now.UTC())
	return &inv, nil
}

func (s *Store) resolvableLocked(tokenHash string, now time.Time) (domain.Invitation, error) {
	inv, ok := s.invitations[tokenHash]
	if !ok || !inv.Pending() || inv.Expired(now) {
		return domain.Invitation{}, domain.ErrInvitationNotActionable
	}
	return inv, nil
}

func (s *Store) finishLocked(inv *domain.Invitation, status, userID string, ts time.Time) {
	resolvedBy := userID
	inv.Status = status
	inv.ResolvedAt = &ts
	inv.ResolvedBy = &resolvedBy
	s.invitations[inv.TokenHash] = *inv
}

// GetSubscription returns the billing state of a team.
func (s *Store) GetSubscription(_ context.Context, teamID string) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[teamID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sub, nil
}

// UpsertSubscription stores the billing state of an existing team.
func (s *Store) UpsertSubscription(_ context.Context, sub *domain.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[sub.TeamID]; !ok {
		return repository.ErrNotFound
	}
	stored := *sub
	stored.UpdatedAt = time.Now().UTC()
	s.subscriptions[sub.TeamID] = stored
	return nil
}

// ListLimits returns configured limits ordered by resource type.
func (s *Store) ListLimits(_ context.Context, teamID string) ([]domain.UsageLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UsageLimit, 0, len(s.limits[teamID]))
	for resource, max := range s.limits[teamID] {
		out = append(out, domain.UsageLimit{TeamID: teamID, ResourceType: resource, MaxQuantity: max})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceType < out[j].ResourceType })
	return out, nil
}

// ReplaceLimits swaps the full limit set of a team.
func (s *Store) ReplaceLimits(_ context.Context, teamID string, limits []domain.UsageLimit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]int, len(limits))
	for _, l := range limits {
		set[l.ResourceType] = l.MaxQuantity
	}
	s.limits[teamID] = set
	return nil
}

// ConsumeUsage adds amount to the period record unless it would exceed max.
func (s *Store) ConsumeUsage(_ context.Context, key domain.UsageKey, amount, max int, limited bool) (int, error) {
	if amount <= 0 {
		return 0, repository.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := usageKey{key.TeamID, key.ResourceType, key.Period.Start.UTC().UnixNano()}
	rec, ok := s.usage[k]
	if !ok {
		rec = domain.UsageRecord{
			TeamID:       key.TeamID,
			ResourceType: key.ResourceType,
			PeriodStart:  key.Period.Start.UTC(),
			PeriodEnd:    key.Period.End.UTC(),
		}
	}
	if limited && amount > max-rec.Quantity {
		return 0, domain.ErrQuotaExceeded
	}
	rec.Quantity += amount
	rec.UpdatedAt = time.Now().UTC()
	s.usage[k] = rec
	return rec.Quantity, nil
}

// GetUsage returns the consumed quantity for a period.
func (s *Store) GetUsage(_ context.Context, key domain.UsageKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage[usageKey{key.TeamID, key.ResourceType, key.Period.Start.UTC().UnixNano()}].Quantity, nil
}

// ListUsage returns the records of a team for one period.
func (s *Store) ListUsage(_ context.Context, teamID string, periodStart time.Time) ([]domain.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := periodStart.UTC().UnixNano()
	out := make([]domain.UsageRecord, 0)
	for key, rec := range s.usage {
		if key.teamID == teamID && key.periodStart == start {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceType < out[j].ResourceType })
	return out, nil
}

// CreateContent inserts a content row.
func (s *Store) CreateContent(_ context.Context, content *domain.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[content.TeamID]; !ok {
		return repository.ErrNotFound
	}
	stored := *content
	stored.UpdatedAt = stored.CreatedAt
	s.contents[content.ID] = stored
	return nil
}

// GetContent returns a row only when it belongs to teamID.
func (s *Store) GetContent(_ context.Context, teamID, contentID string) (*domain.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contents[contentID]
	if !ok || c.TeamID != teamID {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

// ListContent pages through a team's content, newest first.
func (s *Store) ListContent(_ context.Context, teamID, kind string, limit, offset int) ([]domain.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	items := make([]domain.Content, 0)
	for _, c := range s.contents {
		if c.TeamID != teamID || (kind != "" && c.Kind != kind) {
			continue
		}
		items = append(items, c)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if offset >= len(items) {
		return []domain.Content{}, nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// UpdateContent rewrites title and body of a team's row.
func (s *Store) UpdateContent(_ context.Context, content *domain.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contents[content.ID]
	if !ok || c.TeamID != content.TeamID {
		return repository.ErrNotFound
	}
	c.Title = content.Title
	c.Body = content.Body
	c.UpdatedAt = content.UpdatedAt
	s.contents[content.ID] = c
	return nil
}

// DeleteContent removes a team's row.
func (s *Store) DeleteContent(_ context.Context, teamID, contentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contents[contentID]
	if !ok || c.TeamID != teamID {
		return repository.ErrNotFound
	}
	delete(s.contents, contentID)
	return nil
}
