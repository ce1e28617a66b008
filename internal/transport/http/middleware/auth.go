package middleware

import (
	"net/http"
	"strings"

	"miluim/internal/domain/auth"
	"miluim/internal/requestctx"
	"miluim/internal/transport/http/api"
)

// Auth reads a bearer token when one is sent and records its subject.
// Invalid tokens are ignored here; RequireAuth rejects them.
func Auth(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" || !svc.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := svc.Verify(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := requestctx.WithSubject(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without a valid token. Reads pass unless
// protectReads is set. With authentication disabled everything passes.
func RequireAuth(svc *auth.Service, protectReads bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !svc.Enabled() || (!protectReads && isRead(r.Method)) {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := requestctx.Subject(r.Context()); !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="miluim"`)
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetSubject(r *http.Request) string {
	subject, _ := requestctx.Subject(r.Context())
	return subject
}

func bearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func isRead(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
