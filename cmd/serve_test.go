package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptscout/aptscout/internal/api"
	"github.com/aptscout/aptscout/internal/search"
)

func TestBuildDeps_SearchDisabledWithoutKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	c := testConfig()
	c.Store.DatabaseURL = "postgres://localhost/test"
	c.Search.Provider = "anthropic"
	c.Auth.JWTSecret = "secret"

	deps, err := buildDeps(context.Background(), c, mock)
	require.NoError(t, err)
	assert.NotNil(t, deps.Apartments)
	assert.NotNil(t, deps.Places)
	assert.Same(t, deps.Places, deps.Nearby)
	assert.Equal(t, []byte("secret"), deps.JWTSecret)

	_, err = deps.Search.Search(context.Background(), "anything")
	assert.ErrorIs(t, err, search.ErrProviderUnavailable)

	// The disabled search surfaces as 503 through the router.
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"2 beds"}`))
	api.NewRouter(deps).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "search is not configured")
	assert.NotContains(t, rr.Body.String(), "database")
}

func TestBuildDeps_WithSearch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	c := testConfig()
	c.Store.DatabaseURL = "postgres://localhost/test"
	c.Search.Provider = "anthropic"
	c.Anthropic.Key = "sk-ant"

	deps, err := buildDeps(context.Background(), c, mock)
	require.NoError(t, err)
	assert.IsType(t, &search.Service{}, deps.Search)
}

func TestRunServer_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		resp.Body.Close() //nolint:errcheck
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunServer_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close() //nolint:errcheck

	srv := &http.Server{Addr: ln.Addr().String(), Handler: http.NotFoundHandler()}
	err = runServer(context.Background(), srv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server listen")
}
