package httpx

import "net/http"

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	var payload credentialsRequest
	if !decodeJSON(w, req, &payload) {
		return
	}
	user, tokens, err := r.auth.Signup(req.Context(), payload.Email, payload.Password, payload.Name)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":   toUserView(user),
		"tokens": toTokensView(tokens),
	})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var payload credentialsRequest
	if !decodeJSON(w, req, &payload) {
		return
	}
	user, tokens, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":   toUserView(user),
		"tokens": toTokensView(tokens),
	})
}

func (r *Router) handleRefresh(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeJSON(w, req, &payload) {
		return
	}
	tokens, err := r.auth.Refresh(req.Context(), payload.RefreshToken)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": toTokensView(tokens)})
}
