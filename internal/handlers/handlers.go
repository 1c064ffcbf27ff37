package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tourline/tourline-accounts/internal/domain"
	"github.com/tourline/tourline-accounts/internal/repository"
	"github.com/tourline/tourline-accounts/internal/service"
	"github.com/tourline/tourline-accounts/pkg/auth"
	"github.com/tourline/tourline-accounts/pkg/config"
	"github.com/tourline/tourline-accounts/pkg/logger"
)

const sessionCookieName = "tourline_session"

type Handlers struct {
	loginService service.LoginService
	adminService service.AdminService
	accounts     repository.AccountRepository
	sessions     repository.SessionRepository
	config       *config.Config
}

func New(
	loginService service.LoginService,
	adminService service.AdminService,
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	config *config.Config,
) *Handlers {
	return &Handlers{
		loginService: loginService,
		adminService: adminService,
		accounts:     accounts,
		sessions:     sessions,
		config:       config,
	}
}

// RequireAdminSession resolves the session cookie and rejects anything
// that is not a live administrator session.
func (h *Handlers) RequireAdminSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				writeError(w, http.StatusUnauthorized, "Missing session", "UNAUTHORIZED")
				return
			}

			sess, err := h.sessions.FindByID(r.Context(), cookie.Value)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
				return
			}
			if sess == nil || sess.Expired(time.Now()) {
				writeError(w, http.StatusUnauthorized, "Session expired", "SESSION_EXPIRED")
				return
			}

			acct, err := h.accounts.FindByID(r.Context(), sess.AccountID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
				return
			}
			if acct == nil || acct.Role != domain.RoleAdmin {
				writeError(w, http.StatusForbidden, "Insufficient permissions", "FORBIDDEN")
				return
			}

			ctx := context.WithValue(r.Context(), logger.AccountIDKey, strconv.FormatInt(acct.ID, 10))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCSRF checks that the X-CSRF-Token header carries a token minted
// for the caller's session. Applied to state-changing routes.
func (h *Handlers) RequireCSRF() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				writeError(w, http.StatusUnauthorized, "Missing session", "UNAUTHORIZED")
				return
			}

			token := r.Header.Get("X-CSRF-Token")
			if token == "" {
				writeError(w, http.StatusForbidden, "Missing CSRF token", "CSRF_REQUIRED")
				return
			}

			sessionID, err := auth.ParseCSRF(token, h.config.Auth.CSRFSecret)
			if err != nil || sessionID != cookie.Value {
				writeError(w, http.StatusForbidden, "Invalid CSRF token", "CSRF_INVALID")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Helper functions

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	response := map[string]string{
		"error": message,
		"code":  code,
	}
	writeJSON(w, statusCode, response)
}

// writeServiceError maps domain errors onto HTTP responses. Internal
// failures never leak their message to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var rateErr *domain.RateLimitError
	switch {
	case errors.As(err, &rateErr):
		w.Header().Set("Retry-After", strconv.Itoa(rateErr.RetryAfter(time.Now())))
		writeError(w, http.StatusTooManyRequests, "Too many login attempts. Please try again later.", "RATE_LIMIT_EXCEEDED")
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	case errors.Is(err, domain.ErrAuthentication):
		writeError(w, http.StatusUnauthorized, "Invalid credentials", "LOGIN_FAILED")
	case errors.Is(err, domain.ErrAuthorization):
		writeError(w, http.StatusForbidden, strings.TrimPrefix(err.Error(), domain.ErrAuthorization.Error()+": "), "FORBIDDEN")
	default:
		logger.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
	}
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
