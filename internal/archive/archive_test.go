package archive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/mptclone/internal/mpt"
	"github.com/edvin/mptclone/internal/snapshot"
)

func TestUpload(t *testing.T) {
	var mu sync.Mutex
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		mu.Lock()
		keys = append(keys, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := snapshot.NewStore(t.TempDir(), "AGR-1000-2000-3000")
	require.NoError(t, err)
	require.NoError(t, store.WriteDocument(snapshot.AgreementFile, mpt.Document{"id": "AGR-1000-2000-3000"}))
	require.NoError(t, store.WriteDocument(snapshot.AuthorizationFile, mpt.Document{"id": "AUT-1"}))

	up := NewUploader(zerolog.Nop(), srv.URL, "clone-archive", "ak", "sk")
	n, err := up.Upload(context.Background(), store, "AGR-1000-2000-3000")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.ElementsMatch(t, []string{
		"/clone-archive/agreements/AGR-1000-2000-3000/agreement_object.json",
		"/clone-archive/agreements/AGR-1000-2000-3000/authorization.json",
	}, keys)
}

func TestUploadEmptyStore(t *testing.T) {
	store, err := snapshot.NewStore(t.TempDir(), "AGR-1000-2000-3000")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(store.Dir(), 0755))

	up := NewUploader(zerolog.Nop(), "http://unused.invalid", "clone-archive", "ak", "sk")
	_, err = up.Upload(context.Background(), store, "AGR-1000-2000-3000")
	require.ErrorContains(t, err, "nothing to archive")
}
