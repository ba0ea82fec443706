package httpx

import (
	"net/http"
)

type invitationTokenRequest struct {
	Token string `json:"token"`
}

func (r *Router) handleInvite(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	var payload struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	inv, err := r.invitations.Invite(req.Context(), req.PathValue("id"), info.UserID, payload.Email)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvitationView(*inv))
}

func (r *Router) handleListInvites(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	invites, err := r.invitations.ListPending(req.Context(), req.PathValue("id"), info.UserID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	out := make([]invitationView, 0, len(invites))
	for _, inv := range invites {
		inv.Token = ""
		out = append(out, toInvitationView(inv))
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": out})
}

// handleVerifyInvite is unauthenticated so the landing page can render the invite
// before the invitee signs in.
func (r *Router) handleVerifyInvite(w http.ResponseWriter, req *http.Request) {
	details, err := r.invitations.Verify(req.Context(), req.URL.Query().Get("token"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	details.Invitation.Token = ""
	writeJSON(w, http.StatusOK, toDetailsView(details))
}

func (r *Router) handleAcceptInvite(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	var payload invitationTokenRequest
	if !decodeJSON(w, req, &payload) {
		return
	}
	details, err := r.invitations.Accept(req.Context(), payload.Token, info.UserID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	tokens, err := r.auth.IssueForTeam(info.UserID, details.Invitation.TeamID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	details.Invitation.Token = ""
	writeJSON(w, http.StatusOK, map[string]any{
		"invitation": toDetailsView(details),
		"tokens":     toTokensView(tokens),
	})
}

func (r *Router) handleDeclineInvite(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	var payload invitationTokenRequest
	if !decodeJSON(w, req, &payload) {
		return
	}
	details, err := r.invitations.Decline(req.Context(), payload.Token, info.UserID)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	details.Invitation.Token = ""
	writeJSON(w, http.StatusOK, toDetailsView(details))
}
