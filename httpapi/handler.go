// Package httpapi serves the sessionkit Engine over HTTP under
// /api/v1/auth.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/sessionkit"
	"github.com/MrEthical07/sessionkit/middleware"
)

// Prefix is the mount point of every route.
const Prefix = "/api/v1/auth"

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 16

// Engine is the subset of *sessionkit.Engine the handlers call.
type Engine interface {
	SignUp(ctx context.Context, req sessionkit.SignUpRequest) (*sessionkit.SignUpResult, error)
	SignIn(ctx context.Context, req sessionkit.SignInRequest) (*sessionkit.SignInResult, error)
	SignOut(ctx context.Context, accessToken string) error
	RevokeRefresh(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*sessionkit.RefreshResult, error)
	VerifyAccount(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	RecoverAccount(ctx context.Context, email string) error
	Authorize(ctx context.Context, accessToken string) (*sessionkit.Principal, error)
}

// Options configures the handler.
type Options struct {
	// RefreshCookie must match the Engine's cookie configuration.
	RefreshCookie sessionkit.CookieConfig
	// TrustProxyHeaders takes the client IP from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxyHeaders bool
	Logger            *slog.Logger
}

// Handler routes auth requests to an Engine.
type Handler struct {
	engine Engine
	opts   Options
	logger *slog.Logger
	mux    *http.ServeMux
}

// Envelope is the body of every response.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`
	ID         string `json:"id,omitempty"`
	Attributes any    `json:"attributes,omitempty"`
}

// New builds the route table.
func New(engine Engine, opts Options) *Handler {
	h := &Handler{
		engine: engine,
		opts:   opts,
		logger: opts.Logger,
		mux:    http.NewServeMux(),
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}

	guard := middleware.Guard(engine)

	h.mux.HandleFunc("POST "+Prefix+"/signup", h.signUp)
	h.mux.HandleFunc("POST "+Prefix+"/signin", h.signIn)
	h.mux.Handle("GET "+Prefix+"/signout", guard(http.HandlerFunc(h.signOut)))
	h.mux.HandleFunc("GET "+Prefix+"/refresh-token", h.refresh)
	h.mux.HandleFunc("GET "+Prefix+"/account-verification", h.verify)
	h.mux.HandleFunc("POST "+Prefix+"/resend-verification", h.resend)
	h.mux.HandleFunc("PATCH "+Prefix+"/recover-account", h.recoverAccount)
	h.mux.Handle("GET "+Prefix+"/check-token", guard(http.HandlerFunc(h.checkToken)))

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

/*
====================================
ROUTES
====================================
*/

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req sessionkit.SignUpRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.engine.SignUp(h.requestContext(r), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, Envelope{
		Message:    "Account has been registered successfully to the database.",
		Type:       "account_informations",
		ID:         res.AccountID,
		Attributes: res.Account,
	})
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req sessionkit.SignInRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.engine.SignIn(h.requestContext(r), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if res.Refresh != nil {
		http.SetCookie(w, res.Refresh.Cookie())
	}

	writeJSON(w, http.StatusOK, Envelope{
		Message: "User successfully has been signed in.",
		Type:    "user_information",
		ID:      res.Account.ID,
		Attributes: map[string]any{
			"access_token": res.AccessToken,
			"expires_at":   res.AccessExpiresAt,
			"user":         res.Account,
		},
	})
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.BearerToken(r.Header.Get("Authorization"))
	ctx := h.requestContext(r)

	if err := h.engine.SignOut(ctx, token); err != nil {
		h.writeError(w, err)
		return
	}

	if c, err := r.Cookie(h.opts.RefreshCookie.Name); err == nil && c.Value != "" {
		err := h.engine.RevokeRefresh(ctx, c.Value)
		if errors.Is(err, sessionkit.ErrUnavailable) {
			h.writeError(w, err)
			return
		}
		if err != nil {
			h.logger.InfoContext(ctx, "refresh cookie not revoked", "error", err)
		}
	}
	h.clearRefreshCookie(w)

	writeJSON(w, http.StatusOK, Envelope{
		Message: "Token has been killed.",
		Type:    "dead_token",
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(h.opts.RefreshCookie.Name); err == nil {
		token = c.Value
	}

	res, err := h.engine.Refresh(h.requestContext(r), token)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Envelope{
		Message: "Access token has been refreshed.",
		Type:    "access_token",
		Attributes: map[string]any{
			"access_token": res.AccessToken,
			"expires_at":   res.AccessExpiresAt,
		},
	})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.VerifyAccount(h.requestContext(r), r.URL.Query().Get("token")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: "Account has been verified."})
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) resend(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.engine.ResendVerification(h.requestContext(r), req.Email); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: "OK"})
}

func (h *Handler) recoverAccount(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.engine.RecoverAccount(h.requestContext(r), req.Email); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: "OK"})
}

func (h *Handler) checkToken(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Envelope{Message: "Token is valid"})
}

/*
====================================
HELPERS
====================================
*/

func (h *Handler) requestContext(r *http.Request) context.Context {
	return sessionkit.WithClientIP(r.Context(), h.clientIP(r))
}

func (h *Handler) clientIP(r *http.Request) string {
	if h.opts.TrustProxyHeaders {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, Envelope{Message: "Request body must be valid JSON."})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)

	var limited *sessionkit.RateLimitedError
	if errors.As(err, &limited) && limited.RetryAfter > 0 {
		secs := int((limited.RetryAfter + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("unmapped engine error", "error", err)
	}

	writeJSON(w, status, Envelope{Message: messageFor(err, status)})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	c := h.opts.RefreshCookie
	if c.Name == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     c.Path,
		Domain:   c.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	body.StatusCode = status
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
