package middleware

import (
	"context"
	"net/http"
	"strings"

	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
)

// CredentialVerifier validates a bearer credential and resolves the account
// it was issued for. The identity service implements this.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, token string) (id.AccountID, error)
}

type accountIDKey struct{}

// RequireAuth guards endpoints that act on an already-authenticated
// principal. It validates the bearer token and injects the account id into
// the request context; handlers read it back with GetAccountID.
func RequireAuth(verifier CredentialVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, "missing bearer token")
				return
			}
			accountID, err := verifier.VerifyCredential(r.Context(), token)
			if err != nil {
				writeUnauthorized(w, "invalid or expired credential")
				return
			}
			ctx := context.WithValue(r.Context(), accountIDKey{}, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAccountID retrieves the authenticated account id from the context.
func GetAccountID(ctx context.Context) (id.AccountID, bool) {
	accountID, ok := ctx.Value(accountIDKey{}).(id.AccountID)
	return accountID, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
