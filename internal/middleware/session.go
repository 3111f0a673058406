package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/xelth-com/eckreport/internal/config"
	"github.com/xelth-com/eckreport/internal/session"
	"github.com/xelth-com/eckreport/internal/utils"
)

type contextKey string

const SessionContextKey contextKey = "session"

// SessionMiddleware binds every request to a visit session. The cookie
// carries a signed session id; a missing or invalid one, or one whose
// session the store has expired, starts a fresh session with an empty
// history.
func SessionMiddleware(store *session.Store, cfg config.SessionConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess *session.Session

			if cookie, err := r.Cookie(cfg.CookieName); err == nil && cookie.Value != "" {
				if sid, err := utils.ValidateSessionToken(cookie.Value, cfg.Secret); err == nil {
					sess, _ = store.Get(sid)
				}
			}

			if sess == nil {
				sess = store.Create()
				token, err := utils.GenerateSessionToken(sess.ID, cfg.Secret)
				if err != nil {
					logger.Error("❌ Failed to sign session cookie", zap.Error(err))
					http.Error(w, "Session error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					Secure:   cfg.SecureCookie,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session bound by SessionMiddleware
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(SessionContextKey).(*session.Session)
	return sess, ok && sess != nil
}

// ClearSessionCookie expires the session cookie on the client
func ClearSessionCookie(w http.ResponseWriter, cfg config.SessionConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
