package mpt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docFromJSON(t *testing.T, raw string) Document {
	t.Helper()
	var d Document
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	return d
}

func TestDocument_Str(t *testing.T) {
	d := docFromJSON(t, `{
		"id": "AGR-0001-0001-0001",
		"listing": {"id": "LST-1111-2222"},
		"externalIds": {"vendor": "tenant-42"},
		"parameters": {"ordering": [{"externalId": "domain", "displayValue": "example.com"}]}
	}`)

	assert.Equal(t, "AGR-0001-0001-0001", d.ID())
	assert.Equal(t, "LST-1111-2222", d.Str("listing", "id"))
	assert.Equal(t, "tenant-42", d.Str("externalIds", "vendor"))
	// Lists are traversed through their first element.
	assert.Equal(t, "domain", d.Str("parameters", "ordering", "externalId"))
	assert.Equal(t, "", d.Str("missing", "path"))
}

func TestDocument_FloatAndBool(t *testing.T) {
	d := docFromJSON(t, `{"price": {"defaultMarkup": 7.5}, "autoRenew": true, "quantity": 3}`)

	assert.Equal(t, 7.5, d.Float("price", "defaultMarkup"))
	assert.Equal(t, 3.0, d.Float("quantity"))
	assert.True(t, d.Bool("autoRenew"))
	assert.Zero(t, d.Float("missing"))
}

func TestDocument_Docs_SingleObjectCollapse(t *testing.T) {
	list := docFromJSON(t, `{"lines": [{"id": "ALI-1"}, {"id": "ALI-2"}]}`)
	single := docFromJSON(t, `{"lines": {"id": "ALI-1"}}`)

	require.Len(t, list.Docs("lines"), 2)
	assert.Equal(t, "ALI-2", list.Docs("lines")[1].ID())

	require.Len(t, single.Docs("lines"), 1)
	assert.Equal(t, "ALI-1", single.Docs("lines")[0].ID())
}

func TestDocument_SetCreatesIntermediates(t *testing.T) {
	d := Document{}
	d.Set("LST-9279-6638", "listing", "id")

	assert.Equal(t, "LST-9279-6638", d.Str("listing", "id"))
}

func TestDocument_Delete(t *testing.T) {
	d := docFromJSON(t, `{"externalIds": {"vendor": "v", "client": "c"}, "id": "AGR-1"}`)

	d.Delete("externalIds", "vendor")
	d.Delete("id")
	d.Delete("no", "such", "path")

	assert.False(t, d.Has("id"))
	assert.Equal(t, "", d.Str("externalIds", "vendor"))
	assert.Equal(t, "c", d.Str("externalIds", "client"))
}

func TestDocument_CloneIsDeep(t *testing.T) {
	src := docFromJSON(t, `{"listing": {"id": "LST-1"}}`)

	cp, err := src.Clone()
	require.NoError(t, err)
	cp.Set("LST-2", "listing", "id")

	assert.Equal(t, "LST-1", src.Str("listing", "id"))
	assert.Equal(t, "LST-2", cp.Str("listing", "id"))
}
