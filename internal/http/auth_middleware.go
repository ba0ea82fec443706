package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type authContextKey string

// authInfo is the session binding extracted from the access token. TeamID is the
// active team and is empty until the user switches into one.
type authInfo struct {
	UserID string
	Email  string
	TeamID string
}

const contextKeyAuth authContextKey = "wordgen-auth-info"

var errNoActiveTeam = errors.New("no active team; switch into a team first")

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth ensures the request has a valid bearer token before invoking the handler.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, _, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// ensureAuth validates the bearer token and enriches the context.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, authInfo, bool) {
	token, err := requestToken(req)
	if err != nil {
		r.logger.Warn("authorization header invalid", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication required")
		return req.Context(), authInfo{}, false
	}
	user, claims, err := r.auth.Authorize(req.Context(), token)
	if err != nil {
		r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return req.Context(), authInfo{}, false
	}
	info := authInfo{UserID: user.ID, Email: user.Email, TeamID: claims.TeamID}
	ctx := context.WithValue(req.Context(), contextKeyAuth, info)
	return ctx, info, true
}

// authInfoFromContext extracts auth metadata from context.
func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(contextKeyAuth)
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	return info, ok
}

// mustAuth fetches the auth info installed by requireAuth and writes a 500 when the
// handler was mounted without it.
func (r *Router) mustAuth(w http.ResponseWriter, req *http.Request) (authInfo, bool) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
	}
	return info, ok
}

// activeTeam returns the auth info of a request that is bound to a team.
func (r *Router) activeTeam(w http.ResponseWriter, req *http.Request) (authInfo, bool) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return authInfo{}, false
	}
	if info.TeamID == "" {
		writeErrorCode(w, http.StatusForbidden, "no_active_team", errNoActiveTeam.Error())
		return authInfo{}, false
	}
	return info, true
}

// requestToken reads the bearer token. Upgrade requests from browsers cannot set
// headers, so streaming endpoints may pass access_token as a query parameter.
func requestToken(req *http.Request) (string, error) {
	header := req.Header.Get("Authorization")
	if strings.TrimSpace(header) == "" && isStreamRequest(req) {
		if token := strings.TrimSpace(req.URL.Query().Get("access_token")); token != "" {
			return token, nil
		}
	}
	return bearerToken(header)
}

func isStreamRequest(req *http.Request) bool {
	return strings.EqualFold(req.Header.Get("Upgrade"), "websocket") ||
		strings.Contains(req.Header.Get("Accept"), "text/event-stream")
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
