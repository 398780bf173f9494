package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"marketplace-be/internal/apperror"
	"marketplace-be/internal/auth"
	"marketplace-be/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context key for user ID
type contextKey string

const UserIDKey contextKey = "userID"

// UserIDFrom returns the authenticated user id stored by Auth.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}

// WithUserID stores an authenticated user id on ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return logger.WithUserID(ctx, userID)
}

// Auth reads an HS256 token signed with secret from cookieName or the
// Authorization header and, when it is valid and carries a UUID subject,
// puts the user id on the request context. Requests without a usable token
// pass through anonymously; RequireUser rejects them where a user is needed.
func Auth(secret []byte, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r, cookieName)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

			if err != nil || !token.Valid {
				logger.FromCtx(r.Context()).Debug("ignoring invalid access token", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			userID, ok := subject(claims)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func subject(claims jwt.MapClaims) (string, bool) {
	raw, _ := claims["sub"].(string)
	if raw == "" {
		raw, _ = claims["user_id"].(string)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// RequireUser answers 401 unless Auth has identified the caller.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFrom(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "authentication required",
				"code":  string(apperror.KindUnauthorized),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
