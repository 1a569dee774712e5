package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRequestID(t *testing.T, headerID string) (string, *httptest.ResponseRecorder) {
	t.Helper()

	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if headerID != "" {
		req.Header.Set(requestIDHeader, headerID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return captured, rec
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	id, rec := runRequestID(t, "")
	require.NotEmpty(t, id)
	assert.Equal(t, id, rec.Header().Get(requestIDHeader))
}

func TestRequestID_KeepsWellFormedCallerID(t *testing.T) {
	id, rec := runRequestID(t, "retry-42_b")
	assert.Equal(t, "retry-42_b", id)
	assert.Equal(t, "retry-42_b", rec.Header().Get(requestIDHeader))
}

func TestRequestID_ReplacesUnsafeCallerID(t *testing.T) {
	cases := []struct {
		name     string
		headerID string
		keep     bool
	}{
		{"alphanumeric with separators", "abc-123_DEF", true},
		{"newline for log forging", "fake-id\nINJECTED: entry", false},
		{"carriage return", "fake-id\rINJECTED: entry", false},
		{"spaces", "id with spaces", false},
		{"html", "id<script>alert(1)</script>", false},
		{"over length limit", strings.Repeat("a", maxRequestIDLen+1), false},
		{"at length limit", strings.Repeat("a", maxRequestIDLen), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, _ := runRequestID(t, tc.headerID)
			require.NotEmpty(t, id)
			if tc.keep {
				assert.Equal(t, tc.headerID, id)
			} else {
				assert.NotEqual(t, tc.headerID, id, "unsafe id must be replaced")
			}
		})
	}
}

func TestRequestIDFromContext_EmptyWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, RequestIDFromContext(req.Context()))
}
