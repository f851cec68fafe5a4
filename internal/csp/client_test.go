package csp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSync(t *testing.T) {
	var gotPath, gotKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("synchronizationKey")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "csp-token", "test", zerolog.Nop())
	err := client.Sync(context.Background(), "MS-AUTH-1", "tenant-42")
	require.NoError(t, err)

	assert.Equal(t, "/v1/maintenance/authorizations/MS-AUTH-1/customers/tenant-42/sync", gotPath)
	assert.Equal(t, "Bearer csp-token", gotAuth)
	_, err = uuid.Parse(gotKey)
	assert.NoError(t, err, "synchronization key must be a UUID")
}

func TestSyncRequiresIdentifiers(t *testing.T) {
	client := NewClient("http://unused.invalid", "csp-token", "test", zerolog.Nop())
	require.Error(t, client.Sync(context.Background(), "", "tenant-42"))
	require.Error(t, client.Sync(context.Background(), "MS-AUTH-1", ""))
}

func TestSyncRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "unknown tenant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "csp-token", "test", zerolog.Nop())
	err := client.Sync(context.Background(), "MS-AUTH-1", "tenant-42")
	require.ErrorContains(t, err, "platform sync")
}
