package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsTarget(allowed string) http.Handler {
	return CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), allowed)
}

func TestCORSMiddleware_Wildcard(t *testing.T) {
	h := corsTarget("*")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://ishflow.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestCORSMiddleware_AllowedList(t *testing.T) {
	h := corsTarget("https://ishflow.example, https://partner.ishflow.example")

	t.Run("match", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://partner.ishflow.example")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, "https://partner.ishflow.example", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("no match", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	h := corsTarget("*")
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://ishflow.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	// Preflight never reaches the wrapped handler.
	assert.Equal(t, http.StatusOK, w.Code)
}
