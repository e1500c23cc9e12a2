// Package servicekey checks that the credential used against the event log is a
// backend service credential and not an end-user or anonymous key.
//
// Hosted backends issue their API keys as JWTs carrying a "role" claim. The
// signing secret stays with the backend, so the token is decoded without
// signature verification; the backend verifies it on every call. Opaque
// (non-JWT) secret keys are accepted as-is.
package servicekey

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "confide/pkg/domain-errors"
)

const (
	RoleService = "service_role"
	RoleOpaque  = "opaque"
)

// Claims is the subset of backend key claims we inspect.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Inspect returns the role carried by key.
func Inspect(key string, now time.Time) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "service key is empty")
	}
	if strings.Count(key, ".") != 2 {
		return RoleOpaque, nil
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(key, &claims); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnauthorized, "service key is not a valid token")
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(now) {
		return "", dErrors.New(dErrors.CodeUnauthorized, "service key has expired")
	}
	if claims.Role == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "service key carries no role")
	}
	return claims.Role, nil
}

// RequireServiceRole fails unless key is an opaque secret or a service_role token.
func RequireServiceRole(key string, now time.Time) (string, error) {
	role, err := Inspect(key, now)
	if err != nil {
		return "", err
	}
	if role != RoleService && role != RoleOpaque {
		return role, dErrors.New(dErrors.CodeForbidden, "service key has role "+role+", want "+RoleService)
	}
	return role, nil
}
