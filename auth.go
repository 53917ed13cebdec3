package relay

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth returns middleware that validates a bearer JWT from the
// Authorization header ("Authorization: Bearer <token>").
//
// On success the user ID is added to the request context (see GetUserID)
// and the chain continues. Otherwise the chain ends with a 401.
//
// Usage:
//
//	r := relay.New[*relay.Exchange]()
//	r.Use("/api/*", relay.RequireAuth("your-secret-key"))
//	r.Get("/api/profile", profile)
func RequireAuth(secret string) Middleware[*Exchange] {
	return MiddlewareFunc[*Exchange](func(ctx context.Context, ex *Exchange, next Next[*Exchange]) (*Exchange, error) {
		authHeader := ex.Request().Header.Get("Authorization")
		if authHeader == "" {
			return ex, Abort(http.StatusUnauthorized, "missing authorization header")
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || token == "" {
			return ex, Abort(http.StatusUnauthorized, "invalid authorization format")
		}

		userID, err := ValidateJWT(token, secret)
		if err != nil {
			return ex, Abort(http.StatusUnauthorized, "invalid token")
		}

		ctx = WithUserID(ctx, userID)
		ex.SetRequest(ex.Request().WithContext(WithUserID(ex.Request().Context(), userID)))

		return next(ctx, ex)
	})
}

// GenerateJWT creates an HS256-signed token whose subject is userID and
// which expires after expiration.
//
// Example:
//
//	token, err := relay.GenerateJWT("user123", "secret", 24*time.Hour)
func GenerateJWT(userID string, secret string, expiration time.Duration) (string, error) {
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateJWT verifies the signature and expiry of tokenString and returns
// its subject.
func ValidateJWT(tokenString string, secret string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}

	if !token.Valid {
		return "", errors.New("invalid token")
	}

	if claims.Subject == "" {
		return "", errors.New("missing user ID in token")
	}

	return claims.Subject, nil
}

// WithUserID adds a user ID to ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID returns the user ID stored by RequireAuth or BasicAuth.
//
// Example:
//
//	profile := relay.MiddlewareFunc[*relay.Exchange](func(ctx context.Context, ex *relay.Exchange, next relay.Next[*relay.Exchange]) (*relay.Exchange, error) {
//	    userID, ok := relay.GetUserID(ctx)
//	    if !ok {
//	        return ex, relay.Abort(http.StatusInternalServerError, "user not found")
//	    }
//	    return ex, ex.JSON(http.StatusOK, map[string]string{"user": userID})
//	})
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}
