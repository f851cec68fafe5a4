package mptclone

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/mptclone/internal/clone"
	"github.com/edvin/mptclone/internal/config"
	"github.com/edvin/mptclone/internal/mpt"
	"github.com/edvin/mptclone/internal/snapshot"
)

const (
	srcAgreement = "AGR-1000-2000-3000"
	newListing   = "LST-9279-6638"
)

func testStage(t *testing.T, baseURL string) *Stage {
	t.Helper()
	store, err := snapshot.NewStore(t.TempDir(), srcAgreement)
	require.NoError(t, err)
	return &Stage{
		Config:      &config.Config{APIURL: baseURL, OpsToken: "ops", VendorToken: "vendor"},
		Logger:      zerolog.Nop(),
		Ops:         mpt.NewClient(baseURL, "ops", "test", zerolog.Nop()),
		Vendor:      mpt.NewClient(baseURL, "vendor", "test", zerolog.Nop()),
		Store:       store,
		AgreementID: srcAgreement,
	}
}

func dumpServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/public/v1/commerce/agreements/" + srcAgreement:
			w.Write([]byte(`{
				"id": "` + srcAgreement + `",
				"name": "Contoso CSP",
				"status": "Active",
				"listing": {"id": "LST-0001-0001", "priceList": {"id": "PRC-1"}},
				"licensee": {"id": "LCE-1111-2222"},
				"buyer": {"id": "BUY-1"},
				"seller": {"id": "SEL-1"},
				"client": {"id": "ACC-1"},
				"externalIds": {"vendor": "tenant-42"},
				"price": {"defaultMarkup": 10}
			}`))
		case "/public/v1/catalog/listings/" + newListing:
			w.Write([]byte(`{
				"id": "` + newListing + `",
				"authorization": {"id": "AUT-77", "externalIds": {"operations": "MS-AUTH-77"}}
			}`))
		case "/public/v1/commerce/subscriptions":
			w.Write([]byte(`{
				"data": [{
					"id": "SUB-1",
					"name": "Office 365 E3",
					"status": "Active",
					"externalIds": {"vendor": "ms-sub-1"},
					"agreement": {"id": "` + srcAgreement + `"},
					"lines": [{"id": "ALI-1", "status": "Active", "item": {"id": "ITM-1"}, "quantity": 4,
						"price": {"unitPP": 100, "unitSP": 110, "currency": "EUR"}}]
				}],
				"$meta": {"pagination": {"offset": 0, "limit": 1000, "total": 1}}
			}`))
		case "/public/v1/commerce/subscriptions/SUB-1":
			w.Write([]byte(`{
				"id": "SUB-1",
				"name": "Office 365 E3",
				"agreement": {"id": "` + srcAgreement + `"},
				"autoRenew": true,
				"lines": [{"id": "ALI-1", "item": {"id": "ITM-1"}, "quantity": 4}]
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestDumpListingTarget(t *testing.T) {
	srv := dumpServer(t)
	defer srv.Close()
	stage := testStage(t, srv.URL)

	err := stage.Dump(context.Background(), DumpOptions{ListingID: newListing})
	require.NoError(t, err)

	agreement, err := stage.Store.ReadDocument(snapshot.AgreementFile)
	require.NoError(t, err)
	assert.Equal(t, srcAgreement, agreement.ID())

	authorization, err := stage.Store.ReadDocument(snapshot.AuthorizationFile)
	require.NoError(t, err)
	assert.Equal(t, "AUT-77", authorization.ID())

	newAgreement, err := stage.Store.ReadDocument(snapshot.NewAgreementFile)
	require.NoError(t, err)
	assert.False(t, newAgreement.Has("id"))
	assert.Equal(t, newListing, newAgreement.Str("listing", "id"))
	assert.Equal(t, "PRC-1", newAgreement.Str("listing", "priceList", "id"))
	assert.Equal(t, "AUT-77", newAgreement.Str("authorization", "id"))
	assert.Equal(t, "LCE-1111-2222", newAgreement.Str("licensee", "id"))

	sub, err := stage.Store.ReadSubscription("SUB-1")
	require.NoError(t, err)
	assert.False(t, sub.Has("id"))
	assert.Equal(t, clone.PendingParent, sub.Str("agreement", "id"))

	ids, err := stage.Store.ReadSubscriptionIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"SUB-1"}, ids)
}

func TestDumpLicenseeTarget(t *testing.T) {
	const destLicensee = "LCE-9999-8888"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/public/v1/commerce/agreements/" + srcAgreement:
			w.Write([]byte(`{
				"id": "` + srcAgreement + `",
				"status": "Active",
				"listing": {"id": "LST-0001-0001"},
				"licensee": {"id": "LCE-1111-2222"},
				"buyer": {"id": "BUY-OLD"},
				"seller": {"id": "SEL-1"},
				"client": {"id": "ACC-1"},
				"price": {"defaultMarkup": 10}
			}`))
		case "/public/v1/catalog/listings/LST-0001-0001":
			w.Write([]byte(`{"id": "LST-0001-0001", "authorization": {"id": "AUT-ORIG"}}`))
		case "/public/v1/accounts/licensees":
			if strings.Contains(r.URL.RawQuery, destLicensee) {
				w.Write([]byte(`{"data": [{"id": "` + destLicensee + `", "buyer": {"id": "BUY-NEW"}}]}`))
			} else {
				w.Write([]byte(`{"data": [{"id": "LCE-1111-2222", "buyer": {"id": "BUY-OLD"}}]}`))
			}
		case "/public/v1/commerce/subscriptions":
			w.Write([]byte(`{"data": [], "$meta": {"pagination": {"offset": 0, "limit": 1000, "total": 0}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	stage := testStage(t, srv.URL)

	err := stage.Dump(context.Background(), DumpOptions{LicenseeID: destLicensee})
	require.NoError(t, err)

	newAgreement, err := stage.Store.ReadDocument(snapshot.NewAgreementFile)
	require.NoError(t, err)
	// The listing stays, the licensee and buyer move, the original listing's
	// authorization is inherited.
	assert.Equal(t, "LST-0001-0001", newAgreement.Str("listing", "id"))
	assert.Equal(t, destLicensee, newAgreement.Str("licensee", "id"))
	assert.Equal(t, "BUY-NEW", newAgreement.Str("buyer", "id"))
	assert.Equal(t, "AUT-ORIG", newAgreement.Str("authorization", "id"))
}

func TestDumpRequiresExactlyOneTarget(t *testing.T) {
	stage := testStage(t, "http://unused.invalid")

	var vErr *clone.ValidationError
	err := stage.Dump(context.Background(), DumpOptions{})
	require.ErrorAs(t, err, &vErr)

	err = stage.Dump(context.Background(), DumpOptions{ListingID: newListing, LicenseeID: "LCE-9"})
	require.ErrorAs(t, err, &vErr)
}

func TestDumpFailedLoadLeavesNoSnapshot(t *testing.T) {
	// Only the agreement endpoint answers; the listing fetch 404s after the
	// agreement loaded fine.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/public/v1/commerce/agreements/"+srcAgreement {
			w.Write([]byte(`{"id": "` + srcAgreement + `", "status": "Active",
				"listing": {"id": "LST-0001-0001"}, "licensee": {"id": "LCE-1111-2222"},
				"price": {"defaultMarkup": 10}}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()
	stage := testStage(t, srv.URL)

	var nfErr *mpt.NotFoundError
	err := stage.Dump(context.Background(), DumpOptions{ListingID: newListing})
	require.ErrorAs(t, err, &nfErr)

	assert.False(t, stage.Store.Exists(), "a failed load must not leave a partial snapshot")
	_, err = os.Stat(filepath.Join(stage.Store.Dir(), snapshot.AgreementFile))
	assert.True(t, os.IsNotExist(err))
}

func TestDumpAbortsOnAmbiguousVendorIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/public/v1/commerce/agreements/" + srcAgreement:
			w.Write([]byte(`{"id": "` + srcAgreement + `", "status": "Active",
				"listing": {"id": "LST-0001-0001"}, "licensee": {"id": "LCE-1111-2222"},
				"price": {"defaultMarkup": 10}}`))
		case "/public/v1/catalog/listings/" + newListing:
			w.Write([]byte(`{"id": "` + newListing + `", "authorization": {"id": "AUT-77"}}`))
		case "/public/v1/commerce/subscriptions":
			w.Write([]byte(`{
				"data": [{"id": "SUB-1", "externalIds": {}}, {"id": "SUB-2"}],
				"$meta": {"pagination": {"offset": 0, "limit": 1000, "total": 2}}
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	stage := testStage(t, srv.URL)

	err := stage.Dump(context.Background(), DumpOptions{ListingID: newListing})
	require.ErrorContains(t, err, "vendor external ID")
}
