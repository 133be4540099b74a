package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/internal/config"
	"task-manager/testutil"
)

func TestNewServers(t *testing.T) {
	db, _, _, _ := testutil.SetupTestDB(t)

	cfg := testutil.TestConfig(config.DBConfig{})
	cfg.Server.Addr = ":18080"

	api, opsSrv, err := newServers(db, cfg)
	require.NoError(t, err)
	assert.Equal(t, ":18080", api.Addr)
	assert.Nil(t, opsSrv, "ops server is disabled when ops.addr is empty")

	w := httptest.NewRecorder()
	api.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/hello", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	cfg.Ops.Addr = ":19090"
	_, opsSrv, err = newServers(db, cfg)
	require.NoError(t, err)
	require.NotNil(t, opsSrv)
	assert.Equal(t, ":19090", opsSrv.Addr)

	w = httptest.NewRecorder()
	opsSrv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
