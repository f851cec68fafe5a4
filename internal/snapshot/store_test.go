package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/mptclone/internal/mpt"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir(), "AGR-1000-2000-3000")
	require.NoError(t, err)

	assert.False(t, store.Exists())

	doc := mpt.Document{"id": "AGR-1000-2000-3000", "name": "Contoso", "price": map[string]any{"defaultMarkup": 7.5}}
	require.NoError(t, store.WriteDocument(AgreementFile, doc))

	assert.True(t, store.Exists())

	got, err := store.ReadDocument(AgreementFile)
	require.NoError(t, err)
	assert.Equal(t, "Contoso", got.Str("name"))
	assert.Equal(t, 7.5, got.Float("price", "defaultMarkup"))

	// Artifacts are written indented so they diff cleanly.
	raw, err := os.ReadFile(filepath.Join(store.Dir(), AgreementFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"id\"")
}

func TestStoreRejectsBadAgreementID(t *testing.T) {
	_, err := NewStore(t.TempDir(), "SUB-1000-2000")
	require.Error(t, err)
}

func TestWriteSubscription(t *testing.T) {
	store, err := NewStore(t.TempDir(), "AGR-1000-2000-3000")
	require.NoError(t, err)

	require.Error(t, store.WriteSubscription("", mpt.Document{"name": "no id"}))

	sub := mpt.Document{"name": "Office 365 E3"}
	require.NoError(t, store.WriteSubscription("SUB-4000-5000", sub))

	got, err := store.ReadSubscription("SUB-4000-5000")
	require.NoError(t, err)
	assert.Equal(t, "Office 365 E3", got.Str("name"))
}

func TestFilesExcludesLogs(t *testing.T) {
	store, err := NewStore(t.TempDir(), "AGR-1000-2000-3000")
	require.NoError(t, err)

	require.NoError(t, store.WriteDocument(AgreementFile, mpt.Document{"id": "AGR-1000-2000-3000"}))
	require.NoError(t, store.WriteDocument(AuthorizationFile, mpt.Document{"id": "AUT-1"}))
	require.NoError(t, os.MkdirAll(store.LogsDir(), 0755))

	files, err := store.Files()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{AgreementFile, AuthorizationFile}, files)
}
