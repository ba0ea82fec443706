package httpx

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/auth"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/billing"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/content"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/invitation"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/subscription"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/team"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/service/usage"
	"github.com/mattbell19/wordgen-v2-production-sub006/internal/ws"
)

// Services bundles the handlers' collaborators.
type Services struct {
	Auth          auth.Service
	Teams         team.Service
	Invitations   invitation.Service
	Subscriptions subscription.Service
	Usage         usage.Meter
	Content       content.Service
	Billing       billing.Service
	Hub           *ws.Hub
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux           *http.ServeMux
	logger        *slog.Logger
	auth          auth.Service
	teams         team.Service
	invitations   invitation.Service
	subscriptions subscription.Service
	usage         usage.Meter
	content       content.Service
	billing       billing.Service
	hub           *ws.Hub
	upgrader      websocket.Upgrader
	limiter       RateLimiter
	dbHealth      func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitSignup    = 5
	rateLimitLogin     = 12
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	rateLimitInvite    = 20
	rateLimitWebsocket = 30
	rateLimitBilling   = 120
	healthCheckTimeout = 2 * time.Second
	sseHeartbeat       = 25 * time.Second
	maxBodyBytes       = 1 << 20
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, svc Services, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:           http.NewServeMux(),
		logger:        logger,
		auth:          svc.Auth,
		teams:         svc.Teams,
		invitations:   svc.Invitations,
		subscriptions: svc.Subscriptions,
		usage:         svc.Usage,
		content:       svc.Content,
		billing:       svc.Billing,
		hub:           svc.Hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:  limiter,
		dbHealth: dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("GET /healthz", r.audit(r.handleHealthz))
	r.mux.Handle("GET /metrics", promhttp.Handler())
	r.mux.HandleFunc("/", r.audit(func(w http.ResponseWriter, _ *http.Request) { r.notFound(w) }))

	r.mux.HandleFunc("POST /auth/signup", r.audit(r.withRateLimit("auth_signup", rateLimitSignup, rateWindowDefault, rateLimitKeyIP, r.handleSignup)))
	r.mux.HandleFunc("POST /auth/login", r.audit(r.withRateLimit("auth_login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("POST /auth/refresh", r.audit(r.withRateLimit("auth_refresh", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleRefresh)))

	r.mux.HandleFunc("POST /teams", r.audit(r.handlerAuthRate("teams_create", rateLimitUserWrite, rateWindowDefault, r.handleCreateTeam)))
	r.mux.HandleFunc("GET /teams", r.audit(r.handlerAuthRate("teams_list", rateLimitUserRead, rateWindowDefault, r.handleListTeams)))
	r.mux.HandleFunc("POST /teams/switch", r.audit(r.handlerAuthRate("teams_switch", rateLimitUserWrite, rateWindowDefault, r.handleSwitchTeam)))
	r.mux.HandleFunc("DELETE /teams/{id}", r.audit(r.handlerAuthRate("teams_delete", rateLimitUserWrite, rateWindowDefault, r.handleDeleteTeam)))
	r.mux.HandleFunc("GET /teams/{id}/members", r.audit(r.handlerAuthRate("members_list", rateLimitUserRead, rateWindowDefault, r.handleListMembers)))
	r.mux.HandleFunc("DELETE /teams/{id}/members/{userID}", r.audit(r.handlerAuthRate("members_remove", rateLimitUserWrite, rateWindowDefault, r.handleRemoveMember)))
	r.mux.HandleFunc("PUT /teams/{id}/members/{userID}/role", r.audit(r.handlerAuthRate("members_role", rateLimitUserWrite, rateWindowDefault, r.handleChangeRole)))
	r.mux.HandleFunc("POST /teams/{id}/leave", r.audit(r.handlerAuthRate("members_leave", rateLimitUserWrite, rateWindowDefault, r.handleLeaveTeam)))
	r.mux.HandleFunc("GET /teams/{id}/roles", r.audit(r.handlerAuthRate("roles_list", rateLimitUserRead, rateWindowDefault, r.handleListRoles)))
	r.mux.HandleFunc("POST /teams/{id}/roles", r.audit(r.handlerAuthRate("roles_create", rateLimitUserWrite, rateWindowDefault, r.handleCreateRole)))
	r.mux.HandleFunc("GET /teams/{id}/usage", r.audit(r.handlerAuthRate("usage_summary", rateLimitUserRead, rateWindowDefault, r.handleUsageSummary)))
	r.mux.HandleFunc("POST /teams/{id}/usage/{resource}", r.audit(r.handlerAuthRate("usage_consume", rateLimitUserWrite, rateWindowDefault, r.handleConsumeUsage)))
	r.mux.HandleFunc("GET /teams/{id}/subscription", r.audit(r.handlerAuthRate("subscription_get", rateLimitUserRead, rateWindowDefault, r.handleGetSubscription)))

	r.mux.HandleFunc("POST /teams/{id}/invite", r.audit(r.handlerAuthRate("invites_create", rateLimitInvite, rateWindowDefault, r.handleInvite)))
	r.mux.HandleFunc("GET /teams/{id}/invites", r.audit(r.handlerAuthRate("invites_list", rateLimitUserRead, rateWindowDefault, r.handleListInvites)))
	r.mux.HandleFunc("GET /teams/invites/verify", r.audit(r.withRateLimit("invites_verify", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleVerifyInvite)))
	r.mux.HandleFunc("POST /teams/invites/accept", r.audit(r.handlerAuthRate("invites_accept", rateLimitUserWrite, rateWindowDefault, r.handleAcceptInvite)))
	r.mux.HandleFunc("POST /teams/invites/decline", r.audit(r.handlerAuthRate("invites_decline", rateLimitUserWrite, rateWindowDefault, r.handleDeclineInvite)))

	r.mux.HandleFunc("GET /content", r.audit(r.handlerAuthRate("content_list", rateLimitUserRead, rateWindowDefault, r.handleListContent)))
	r.mux.HandleFunc("POST /content", r.audit(r.handlerAuthRate("content_create", rateLimitUserWrite, rateWindowDefault, r.handleCreateContent)))
	r.mux.HandleFunc("GET /content/{id}", r.audit(r.handlerAuthRate("content_get", rateLimitUserRead, rateWindowDefault, r.handleGetContent)))
	r.mux.HandleFunc("PUT /content/{id}", r.audit(r.handlerAuthRate("content_update", rateLimitUserWrite, rateWindowDefault, r.handleUpdateContent)))
	r.mux.HandleFunc("DELETE /content/{id}", r.audit(r.handlerAuthRate("content_delete", rateLimitUserWrite, rateWindowDefault, r.handleDeleteContent)))

	r.mux.HandleFunc("POST /billing/subscriptions", r.audit(r.withRateLimit("billing_webhook", rateLimitBilling, rateWindowDefault, rateLimitKeyIP, r.handleBillingEvent)))

	r.mux.HandleFunc("GET /ws/events", r.audit(r.handlerAuthRate("events_ws", rateLimitWebsocket, rateWindowRealtime, r.handleEventsWS)))
	r.mux.HandleFunc("GET /events/stream", r.audit(r.handlerAuthRate("events_sse", rateLimitWebsocket, rateWindowRealtime, r.handleEventsSSE)))
}
func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
			if info.TeamID != "" {
				fields = append(fields, "team_id", info.TeamID)
			}
		} else if strings.HasPrefix(req.URL.Path, "/billing/") {
			actor = "billing"
		}
		fields = append(fields, "actor", actor)

		route := req.Pattern
		if route == "" {
			route = "unmatched"
		}
		r.recordRequestMetrics(req.Method, route, status, duration)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (sr *statusRecorder) Push(target string, opts *http.PushOptions) error {
	if p, ok := sr.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}
	return http.ErrNotSupported
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
