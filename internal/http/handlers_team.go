package httpx

import (
	"net/http"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/domain"
)

func (r *Router) handleCreateTeam(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	var payload struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	team, err := r.teams.Create(req.Context(), info.UserID, payload.Name, payload.Description)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	tokens, err := r.auth.IssueForTeam(info.UserID, team.ID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"team":   toTeamView(*team),
		"tokens": toTokensView(tokens),
	})
}

func (r *Router) handleListTeams(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	teams, err := r.teams.List(req.Context(), info.UserID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"teams":          toTeamViews(teams),
		"active_team_id": info.TeamID,
	})
}

// handleSwitchTeam validates membership and returns a token pair bound to the team.
func (r *Router) handleSwitchTeam(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	var payload struct {
		TeamID string `json:"team_id"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	active, err := r.teams.SwitchActiveTeam(req.Context(), info.UserID, payload.TeamID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	tokens, err := r.auth.IssueForTeam(info.UserID, active.Team.ID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"team":         toTeamView(active.Team),
		"role":         active.Role,
		"capabilities": active.Capabilities,
		"tokens":       toTokensView(tokens),
	})
}

func (r *Router) handleDeleteTeam(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	if err := r.teams.Delete(req.Context(), req.PathValue("id"), info.UserID); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleListMembers(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	members, err := r.teams.ListMembers(req.Context(), req.PathValue("id"), info.UserID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": toMemberViews(members)})
}

func (r *Router) handleRemoveMember(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	if err := r.teams.RemoveMember(req.Context(), req.PathValue("id"), info.UserID, req.PathValue("userID")); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleLeaveTeam(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	if err := r.teams.Leave(req.Context(), req.PathValue("id"), info.UserID); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	tokens, err := r.auth.IssueForTeam(info.UserID, "")
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": toTokensView(tokens)})
}

func (r *Router) handleChangeRole(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	var payload struct {
		Role   string  `json:"role"`
		RoleID *string `json:"role_id"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	role, err := domain.ParseRole(payload.Role)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	if err := r.teams.ChangeMemberRole(req.Context(), req.PathValue("id"), info.UserID, req.PathValue("userID"), role, payload.RoleID); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleListRoles(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	roles, err := r.teams.ListRoles(req.Context(), req.PathValue("id"), info.UserID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	out := make([]roleView, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleView(role))
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (r *Router) handleCreateRole(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	var payload struct {
		Name         string              `json:"name"`
		Capabilities domain.Capabilities `json:"capabilities"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	role, err := r.teams.CreateRole(req.Context(), req.PathValue("id"), info.UserID, payload.Name, payload.Capabilities)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoleView(*role))
}

func (r *Router) handleUsageSummary(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	teamID := req.PathValue("id")
	if _, err := r.teams.Get(req.Context(), teamID, info.UserID); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	period, summary, err := r.usage.Summary(req.Context(), teamID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	active, err := r.subscriptions.IsActive(req.Context(), teamID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period":              toPeriodView(period),
		"subscription_active": active,
		"resources":           summary,
	})
}

// handleConsumeUsage lets generation collaborators charge quota before doing work.
func (r *Router) handleConsumeUsage(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	teamID := req.PathValue("id")
	var payload struct {
		Amount int `json:"amount"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	if err := r.teams.Authorize(req.Context(), info.UserID, teamID, domain.CapCreateContent); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	consumption, err := r.usage.CheckAndRecord(req.Context(), teamID, req.PathValue("resource"), payload.Amount)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resource_type": consumption.ResourceType,
		"used":          consumption.Used,
		"limit":         consumption.Limit,
		"limited":       consumption.Limited,
		"remaining":     consumption.Remaining(),
		"period":        toPeriodView(consumption.Period),
	})
}

func (r *Router) handleGetSubscription(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	teamID := req.PathValue("id")
	if _, err := r.teams.Get(req.Context(), teamID, info.UserID); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	sub, err := r.subscriptions.Get(req.Context(), teamID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	limits, err := r.subscriptions.LimitsFor(req.Context(), teamID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	body := map[string]any{
		"subscription": nil,
		"active":       false,
		"limits":       limits,
		"policy":       r.subscriptions.Policy(),
	}
	if sub != nil {
		body["subscription"] = subscriptionView{
			TeamID:             sub.TeamID,
			PlanType:           sub.PlanType,
			Status:             sub.Status,
			CurrentPeriodStart: sub.CurrentPeriodStart,
			CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		}
		active, err := r.subscriptions.IsActive(req.Context(), teamID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		body["active"] = active
	}
	writeJSON(w, http.StatusOK, body)
}
