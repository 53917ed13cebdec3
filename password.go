package relay

import (
	"context"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost defines the computational cost of the bcrypt algorithm.
// Higher values are more secure but slower.
const bcryptCost = 12

// HashPassword returns a bcrypt hash of password suitable for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword returns nil if password matches hash.
func CheckPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// BasicAuth returns middleware that checks HTTP basic credentials against
// users, a map of username to bcrypt hash (see HashPassword). On success
// the username is stored as the user ID (see GetUserID).
func BasicAuth(realm string, users map[string]string) Middleware[*Exchange] {
	challenge := `Basic realm="` + realm + `"`

	return MiddlewareFunc[*Exchange](func(ctx context.Context, ex *Exchange, next Next[*Exchange]) (*Exchange, error) {
		username, password, ok := ex.Request().BasicAuth()
		if !ok {
			ex.Header().Set("WWW-Authenticate", challenge)
			return ex, Abort(http.StatusUnauthorized, "missing credentials")
		}

		hash, known := users[username]
		if !known || CheckPassword(password, hash) != nil {
			ex.Header().Set("WWW-Authenticate", challenge)
			return ex, Abort(http.StatusUnauthorized, "invalid credentials")
		}

		ctx = WithUserID(ctx, username)
		ex.SetRequest(ex.Request().WithContext(WithUserID(ex.Request().Context(), username)))
		return next(ctx, ex)
	})
}
