package httpx

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/splax/reportdesk/internal/service/auth"
	"github.com/splax/reportdesk/internal/service/report"
	"github.com/splax/reportdesk/internal/service/users"
	"github.com/splax/reportdesk/internal/session"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	sessions *session.Manager
	auth     auth.Service
	guard    auth.Guard
	users    users.Service
	reports  report.Service
	limiter  RateLimiter
	metrics  *metrics
	dbHealth func(context.Context) error
}

const (
	rateWindowDefault  = time.Minute
	rateLimitSignup    = 5
	rateLimitSignin    = 12
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, sessions *session.Manager, authSvc auth.Service, guard auth.Guard, userSvc users.Service, reportSvc report.Service, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		sessions: sessions,
		auth:     authSvc,
		guard:    guard,
		users:    userSvc,
		reports:  reportSvc,
		limiter:  limiter,
		metrics:  newMetrics(),
		dbHealth: dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
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
	r.mux.Handle("GET /metrics", r.metrics.handler())

	r.mux.HandleFunc("POST /auth/signup", r.audit(r.withSession(r.withRateLimit(rateLimitSignup, rateWindowDefault, rateLimitKeyIP, r.handleSignup))))
	r.mux.HandleFunc("POST /auth/signin", r.audit(r.withSession(r.withRateLimit(rateLimitSignin, rateWindowDefault, rateLimitKeyIP, r.handleSignin))))
	r.mux.HandleFunc("POST /auth/signout", r.audit(r.withSession(r.handleSignout)))
	r.mux.HandleFunc("GET /auth/whoami", r.audit(r.handlerAuthRate(rateLimitUserRead, r.handleWhoami)))

	r.mux.HandleFunc("GET /auth", r.audit(r.handlerAuthRate(rateLimitUserRead, r.handleFindUsers)))
	r.mux.HandleFunc("GET /auth/{id}", r.audit(r.handlerAuthRate(rateLimitUserRead, r.handleGetUser)))
	r.mux.HandleFunc("PATCH /auth/{id}", r.audit(r.handlerAuthRate(rateLimitUserWrite, r.handleUpdateUser)))
	r.mux.HandleFunc("DELETE /auth/{id}", r.audit(r.handlerAuthRate(rateLimitUserWrite, r.handleRemoveUser)))

	r.mux.HandleFunc("POST /reports", r.audit(r.handlerAuthRate(rateLimitUserWrite, r.handleCreateReport)))
	r.mux.HandleFunc("GET /reports/{id}", r.audit(r.handlerAuthRate(rateLimitUserRead, r.handleGetReport)))
	r.mux.HandleFunc("PATCH /reports/{id}", r.audit(r.handlerAuthRate(rateLimitUserWrite, r.handleChangeApproval)))
}

// handlerAuthRate loads the session, runs the guard, then rate limits per user.
func (r *Router) handlerAuthRate(limit int, next http.HandlerFunc) http.HandlerFunc {
	return r.withSession(r.requireAuth(r.withRateLimit(limit, rateWindowDefault, rateLimitKeyUser, next)))
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	var payload auth.Credentials
	if err := decodeJSON(w, req, &payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	user, err := r.auth.Signup(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	if !r.bindSession(w, req, user.ID) {
		return
	}
	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

func (r *Router) handleSignin(w http.ResponseWriter, req *http.Request) {
	var payload auth.Credentials
	if err := decodeJSON(w, req, &payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	user, err := r.auth.Signin(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	if !r.bindSession(w, req, user.ID) {
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// bindSession records userID on the caller's session and commits it.
func (r *Router) bindSession(w http.ResponseWriter, req *http.Request, userID string) bool {
	sess, ok := currentSession(req)
	if !ok {
		r.logger.Error("session context missing", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return false
	}
	sess.SignIn(userID)
	if err := r.sessions.Commit(req.Context(), w, sess); err != nil {
		r.logger.Error("session commit failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return false
	}
	return true
}

func (r *Router) handleSignout(w http.ResponseWriter, req *http.Request) {
	sess, ok := currentSession(req)
	if !ok {
		r.logger.Error("session context missing", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}
	userID := sess.UserID
	if err := r.sessions.Destroy(req.Context(), w, sess); err != nil {
		r.logger.Error("session destroy failed", "error", err)
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}
	if userID != "" {
		r.logger.Info("user signed out", "user_id", userID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (r *Router) handleWhoami(w http.ResponseWriter, req *http.Request) {
	user, ok := auth.CurrentUser(req.Context())
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (r *Router) handleFindUsers(w http.ResponseWriter, req *http.Request) {
	email := strings.TrimSpace(req.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email query parameter required")
		return
	}
	found, err := r.users.FindByEmail(req.Context(), email)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	out := make([]userResponse, 0, len(found))
	for i := range found {
		out = append(out, newUserResponse(&found[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (r *Router) handleGetUser(w http.ResponseWriter, req *http.Request) {
	user, err := r.users.Get(req.Context(), req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (r *Router) handleUpdateUser(w http.ResponseWriter, req *http.Request) {
	var payload users.UpdateInput
	if err := decodeJSON(w, req, &payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	user, err := r.users.Update(req.Context(), req.PathValue("id"), payload)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (r *Router) handleRemoveUser(w http.ResponseWriter, req *http.Request) {
	user, err := r.users.Remove(req.Context(), req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (r *Router) handleCreateReport(w http.ResponseWriter, req *http.Request) {
	var payload report.CreateInput
	if err := decodeJSON(w, req, &payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	owner, _ := auth.CurrentUser(req.Context())
	created, err := r.reports.Create(req.Context(), owner, payload)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, newReportResponse(created))
}

func (r *Router) handleGetReport(w http.ResponseWriter, req *http.Request) {
	found, err := r.reports.Get(req.Context(), req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, newReportResponse(found))
}

func (r *Router) handleChangeApproval(w http.ResponseWriter, req *http.Request) {
	var payload approveRequest
	if err := decodeJSON(w, req, &payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	if err := payload.Validate(); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	updated, err := r.reports.ChangeApproval(req.Context(), req.PathValue("id"), *payload.Approved)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, newReportResponse(updated))
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
		route := routeLabel(req)
		r.metrics.observeRequest(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"route", route,
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
		if user, ok := auth.CurrentUser(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", user.ID)
		} else if sess, ok := session.FromContext(ctx); ok && sess.Authenticated() {
			actor = "session"
		}
		fields = append(fields, "actor", actor)

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

// routeLabel returns the matched mux pattern, keeping path ids out of metric labels.
func routeLabel(req *http.Request) string {
	if req.Pattern != "" {
		return req.Pattern
	}
	return "unmatched"
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
