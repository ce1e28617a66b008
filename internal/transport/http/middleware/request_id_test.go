package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureRequestID(t *testing.T, incoming string) (seen, echoed string) {
	t.Helper()
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	if incoming != "" {
		req.Header.Set(requestIDHeader, incoming)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return seen, rec.Header().Get(requestIDHeader)
}

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	seen, echoed := captureRequestID(t, "")
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, echoed)
}

func TestRequestIDKeepsIncomingValue(t *testing.T) {
	seen, echoed := captureRequestID(t, "import-2025-03")
	assert.Equal(t, "import-2025-03", seen)
	assert.Equal(t, "import-2025-03", echoed)
}

func TestRequestIDReplacesUnusableValues(t *testing.T) {
	for _, incoming := range []string{strings.Repeat("x", 129), "two words", "שלום"} {
		seen, _ := captureRequestID(t, incoming)
		assert.NotEqual(t, incoming, seen)
		assert.Len(t, seen, 36)
	}
}
