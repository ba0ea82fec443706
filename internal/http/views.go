package httpx

import (
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/auth"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/invitation"
)

type userView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type tokensView struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresInSeconds int64  `json:"expires_in"`
	TeamID           string `json:"team_id,omitempty"`
}

type teamView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type memberView struct {
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	Name      string      `json:"name,omitempty"`
	Role      domain.Role `json:"role"`
	RoleID    *string     `json:"role_id,omitempty"`
	Status    string      `json:"status"`
	JoinedAt  time.Time   `json:"joined_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type roleView struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Capabilities domain.Capabilities `json:"capabilities"`
}

type invitationView struct {
	Token        string     `json:"token,omitempty"`
	TeamID       string     `json:"team_id"`
	InviterID    string     `json:"inviter_id"`
	InviteeEmail string     `json:"email"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

type invitationDetailsView struct {
	Invitation   invitationView `json:"invitation"`
	TeamName     string         `json:"team_name"`
	InviterName  string         `json:"inviter_name"`
	InviterEmail string         `json:"inviter_email,omitempty"`
}

type contentView struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	CreatorID string    `json:"creator_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type periodView struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type subscriptionView struct {
	TeamID             string    `json:"team_id"`
	PlanType           string    `json:"plan_type"`
	Status             string    `json:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
}

func toUserView(u *domain.User) userView {
	return userView{ID: u.ID, Email: u.Email, Name: u.Name}
}

func toTokensView(t auth.TokenPair) tokensView {
	return tokensView{
		AccessToken:      t.AccessToken,
		RefreshToken:     t.RefreshToken,
		ExpiresInSeconds: int64(t.ExpiresIn.Seconds()),
		TeamID:           t.TeamID,
	}
}

func toTeamView(t domain.Team) teamView {
	return teamView{ID: t.ID, Name: t.Name, Description: t.Description, OwnerID: t.OwnerID, CreatedAt: t.CreatedAt}
}

func toTeamViews(teams []domain.Team) []teamView {
	out := make([]teamView, 0, len(teams))
	for _, t := range teams {
		out = append(out, toTeamView(t))
	}
	return out
}

func toMemberViews(members []domain.MemberView) []memberView {
	out := make([]memberView, 0, len(members))
	for _, m := range members {
		out = append(out, memberView{
			UserID:    m.UserID,
			Email:     m.Email,
			Name:      m.Name,
			Role:      m.Role,
			RoleID:    m.RoleID,
			Status:    m.Status,
			JoinedAt:  m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		})
	}
	return out
}

func toRoleView(r domain.CustomRole) roleView {
	return roleView{ID: r.ID, Name: r.Name, Capabilities: r.Capabilities}
}

func toInvitationView(inv domain.Invitation) invitationView {
	return invitationView{
		Token:        inv.Token,
		TeamID:       inv.TeamID,
		InviterID:    inv.InviterID,
		InviteeEmail: inv.InviteeEmail,
		Status:       inv.Status,
		CreatedAt:    inv.CreatedAt,
		ExpiresAt:    inv.ExpiresAt,
		ResolvedAt:   inv.ResolvedAt,
	}
}

func toDetailsView(d *invitation.Details) invitationDetailsView {
	return invitationDetailsView{
		Invitation:   toInvitationView(d.Invitation),
		TeamName:     d.TeamName,
		InviterName:  d.InviterName,
		InviterEmail: d.InviterEmail,
	}
}

func toContentView(c domain.Content) contentView {
	return contentView{
		ID:        c.ID,
		TeamID:    c.TeamID,
		CreatorID: c.CreatorID,
		Kind:      c.Kind,
		Title:     c.Title,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toPeriodView(p domain.Period) periodView {
	return periodView{Start: p.Start, End: p.End}
}
