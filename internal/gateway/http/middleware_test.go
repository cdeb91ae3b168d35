package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerMiddleware(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def", "abc.def"},
		{"bearer   spaced ", "spaced"},
		{"Basic dXNlcjpwYXNz", ""},
		{"", ""},
	}

	for _, tt := range tests {
		var got string
		h := BearerMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = getBearer(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}

		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, tt.want, got, tt.header)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var got string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = getRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", got)
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))
}

func TestSessionMiddleware_GeneratesID(t *testing.T) {
	var got string
	h := SessionMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = getSessionID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, got)
	assert.Equal(t, got, rec.Header().Get(SessionHeader))
}
