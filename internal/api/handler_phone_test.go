package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type failingChecker struct{}

func (failingChecker) Exists(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestCheckPhone(t *testing.T) {
	ts := newTestServer(t)

	testCases := []struct {
		name     string
		path     string
		status   int
		expected string
	}{
		{"registered", "/check-phone?phoneNumber=%2B919876543210", http.StatusOK, `{"exists":true}`},
		{"unregistered", "/check-phone?phoneNumber=%2B911111111111", http.StatusOK, `{"exists":false}`},
		{"missing parameter", "/check-phone", http.StatusBadRequest, `{"error":"phoneNumber query parameter required"}`},
		{"empty parameter", "/check-phone?phoneNumber=", http.StatusBadRequest, `{"error":"phoneNumber query parameter required"}`},
		{"api alias", "/api/check-phone?phoneNumber=%2B919876543210", http.StatusOK, `{"exists":true}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, tc.path, nil, "")
			assert.Equal(t, tc.status, w.Code)
			assert.JSONEq(t, tc.expected, w.Body.String())
		})
	}
}

func TestCheckPhone_ProviderError(t *testing.T) {
	r := gin.New()
	r.GET("/check-phone", CheckPhone(failingChecker{}, zap.NewNop()))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/check-phone?phoneNumber=%2B919876543210", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}
