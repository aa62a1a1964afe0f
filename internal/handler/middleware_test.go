package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/internal/service"
)

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer abc.def.ghi")

	token, err := bearerToken(r)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)
}

func TestBearerTokenCaseInsensitiveScheme(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "bearer abc")

	token, err := bearerToken(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestBearerTokenRejectsMalformedHeaders(t *testing.T) {
	cases := []string{
		"",
		"abc.def.ghi",
		"Bearer",
		"Bearer ",
		"Basic dXNlcjpwYXNz",
	}
	for _, header := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		_, err := bearerToken(r)
		assert.ErrorIs(t, err, errMissingBearer, header)
	}
}

func TestGetStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{service.ErrUserNotFound, http.StatusNotFound},
		{service.ErrEmailNotFound, http.StatusNotFound},
		{service.ErrTokenNotFound, http.StatusNotFound},
		{service.ErrEmailTaken, http.StatusConflict},
		{service.ErrMobileTaken, http.StatusConflict},
		{service.ErrPinMismatch, http.StatusConflict},
		{service.ErrPasswordMismatch, http.StatusConflict},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrInvalidToken, http.StatusUnauthorized},
		{service.ErrTokenExpired, http.StatusUnauthorized},
		{service.ErrOTPMismatch, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrOTPMissing, http.StatusBadRequest},
		{service.ErrWrongPassword, http.StatusBadRequest},
		{service.ErrInvalidPin, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, getStatusCode(tc.err), tc.err.Error())
	}
}

func TestGetStatusCodeUnwrapsErrors(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), service.ErrEmailTaken)
	assert.Equal(t, http.StatusConflict, getStatusCode(wrapped))
}

func TestRequireHTTPS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := requireHTTPS(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/", nil))
	assert.Equal(t, http.StatusUpgradeRequired, rec.Code)

	rec = httptest.NewRecorder()
	tlsReq := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
	h.ServeHTTP(rec, tlsReq)
	assert.Equal(t, http.StatusOK, rec.Code)
}
