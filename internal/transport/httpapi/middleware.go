package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/logging"
)

// requestLogger stores a request-scoped logger on the context and emits one
// completion line per request.
func requestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			logger := base
			if id := chimw.GetReqID(r.Context()); id != "" {
				logger = logging.WithRequestID(logger, id)
				w.Header().Set("X-Request-ID", id)
			}
			logger = logger.With(
				zap.String("http_method", r.Method),
				zap.String("path", r.URL.Path),
			)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), logger)))

			logger.Info("request completed",
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// jsonRecoverer turns panics into a JSON 500 instead of chi's plain text body.
func jsonRecoverer(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logging.FromContext(r.Context(), base).Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					writeError(w, http.StatusInternalServerError, "internal", "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type accountKey struct{}

func withAccount(ctx context.Context, acct domain.Account) context.Context {
	return context.WithValue(ctx, accountKey{}, acct)
}

// accountFrom returns the caller resolved by authenticate.
func accountFrom(ctx context.Context) domain.Account {
	acct, _ := ctx.Value(accountKey{}).(domain.Account)
	return acct
}

// authenticate resolves the bearer token to a current account. Any failure is a 401.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "missing_token", "missing authorization header")
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(header, bearerPrefix) {
			writeError(w, http.StatusUnauthorized, "invalid_token", "authorization header must use Bearer scheme")
			return
		}

		claims, err := s.tokens.Verify(strings.TrimSpace(header[len(bearerPrefix):]))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
			return
		}

		acct, err := s.svc.Authenticate(r.Context(), claims)
		if err != nil {
			logging.FromContext(r.Context(), s.logger).Debug("token refused", zap.Error(err))
			writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
			return
		}

		logger := logging.FromContext(r.Context(), s.logger).With(
			zap.Int64("account_id", acct.AccountID()),
			zap.String("role", acct.Role()),
		)
		ctx := logging.WithLogger(withAccount(r.Context(), acct), logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole admits only accounts of role. It must run after authenticate.
func requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acct := accountFrom(r.Context())
			if acct == nil || acct.Role() != role {
				writeError(w, http.StatusForbidden, "unauthorized", role+" account required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
