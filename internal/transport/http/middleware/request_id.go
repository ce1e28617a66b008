package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"miluim/internal/requestctx"
)

const requestIDHeader = "X-Request-ID"

// RequestID propagates a caller supplied id or mints one. Ids are echoed
// back in the response and end up in every log line and envelope.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(requestctx.WithRequestID(r.Context(), id)))
	})
}

func GetRequestID(ctx context.Context) string {
	return requestctx.GetRequestID(ctx)
}

// validRequestID accepts up to 128 visible ASCII characters so ids can be
// logged and echoed as headers verbatim.
func validRequestID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}
