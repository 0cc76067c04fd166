package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/sessionkit/httpapi"
	"github.com/MrEthical07/sessionkit/internal/config"
	"github.com/MrEthical07/sessionkit/internal/logging"
	"github.com/MrEthical07/sessionkit/password"
)

func devConfig(t *testing.T) config.File {
	t.Helper()
	f := config.Default()
	f.Dev = true
	f.Auth.Password = password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	applyDevDefaults(&f)
	require.NoError(t, f.Validate())
	return f
}

func TestApplyDevDefaults(t *testing.T) {
	f := config.Default()
	f.Dev = true
	f.Listen = "127.0.0.1:9090"
	applyDevDefaults(&f)

	assert.Len(t, f.Auth.JWT.Secret, 64)
	assert.Equal(t, "http://localhost:9090", f.Auth.Verification.AppURL)

	f = config.Default()
	applyDevDefaults(&f)
	assert.Empty(t, f.Auth.JWT.Secret)
	assert.Empty(t, f.Auth.Verification.AppURL)
}

func TestApplyDevDefaultsKeepsConfiguredSecret(t *testing.T) {
	f := config.Default()
	f.Dev = true
	f.Auth.JWT.Secret = strings.Repeat("k", 40)
	f.Auth.Verification.AppURL = "https://auth.example.com"
	applyDevDefaults(&f)

	assert.Equal(t, strings.Repeat("k", 40), f.Auth.JWT.Secret)
	assert.Equal(t, "https://auth.example.com", f.Auth.Verification.AppURL)
}

func TestDevServerRoutes(t *testing.T) {
	f := devConfig(t)
	logger := logging.Discard()

	b, err := openDevBackends(logger)
	require.NoError(t, err)
	t.Cleanup(b.Close)

	engine, err := buildEngine(f, b, logger)
	require.NoError(t, err)

	mux, err := newMux(engine, f, logger)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, httpapi.Prefix+"/signup",
		strings.NewReader(`{"email":"dev@example.com","username":"dev","password":"correct horse"}`))
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sessionkit_signup_success_total 1")
	assert.Contains(t, rec.Body.String(), "sessionkit_verification_sent_total")
}

func TestBuildEngineRejectsBadAuthConfig(t *testing.T) {
	f := devConfig(t)
	f.Auth.JWT.SigningMethod = "rs256"

	b, err := openDevBackends(logging.Discard())
	require.NoError(t, err)
	t.Cleanup(b.Close)

	_, err = buildEngine(f, b, logging.Discard())
	require.Error(t, err)
}
