// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// accessDenied is the error message for every rejected request.
const accessDenied = "access denied"

// BearerAuth returns a middleware that admits requests carrying
// "Authorization: Bearer <token>" where token matches the shared secret.
//
// The secret is checked against token with a constant-time comparison, or
// against hash with bcrypt when hash is set. If both are empty every request
// is rejected. Rejections answer 403 with {"error":"access denied"}.
func BearerAuth(token, hash string) func(http.Handler) http.Handler {
	check := tokenChecker(token, hash)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, ok := bearer(r.Header.Get("Authorization"))
			if !ok || !check(presented) {
				deny(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenChecker(token, hash string) func(string) bool {
	switch {
	case hash != "":
		h := []byte(hash)
		return func(presented string) bool {
			return bcrypt.CompareHashAndPassword(h, []byte(presented)) == nil
		}
	case token != "":
		t := []byte(token)
		return func(presented string) bool {
			return subtle.ConstantTimeCompare(t, []byte(presented)) == 1
		}
	default:
		return func(string) bool { return false }
	}
}

func bearer(header string) (string, bool) {
	scheme, value, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func deny(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": accessDenied})
}
