// Package clone derives a new-agreement payload and new-subscription payloads
// from a dumped agreement snapshot. The transform is pure: it performs no I/O
// and decides structural equivalence only, never business validity.
package clone

import (
	"fmt"

	"github.com/edvin/mptclone/internal/mpt"
)

// ValidationError reports contradictory or incomplete transform input. It is
// raised before any network call can happen.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

// Target selects the one dimension the clone changes: either the listing or
// the licensee, never both.
type Target struct {
	ListingID  string
	LicenseeID string
	// AuthorizationID is the authorization the clone inherits: the new
	// listing's in listing mode, the source agreement's listing's in
	// licensee mode.
	AuthorizationID string
	// BuyerID is the destination licensee's buyer. Licensee mode only.
	BuyerID string
}

// Validate enforces the exactly-one-dimension rule.
func (t Target) Validate() error {
	switch {
	case t.ListingID == "" && t.LicenseeID == "":
		return &ValidationError{Msg: "either a listing ID or a licensee ID is required"}
	case t.ListingID != "" && t.LicenseeID != "":
		return &ValidationError{Msg: "a listing ID and a licensee ID are mutually exclusive"}
	case t.AuthorizationID == "":
		return &ValidationError{Msg: "an authorization ID is required"}
	case t.LicenseeID != "" && t.BuyerID == "":
		return &ValidationError{Msg: "a buyer ID is required when cloning to a licensee"}
	}
	return nil
}

// Policy is the clone behavior for one top-level agreement field.
type Policy int

const (
	// Copy keeps the source value verbatim.
	Copy Policy = iota
	// Drop removes the field; the platform assigns instance identity.
	Drop
	// Replace rewrites the field from the target: the changed dimension and
	// the inherited authorization. A Replace field that is not the changed
	// dimension is copied verbatim.
	Replace
)

// agreementPolicy is the field-handling table for the agreement document.
// Fields not listed are copied verbatim, commercial terms included.
var agreementPolicy = map[string]Policy{
	"id":            Drop,
	"audit":         Drop,
	"status":        Drop,
	"subscriptions": Drop,
	"listing":       Replace,
	"licensee":      Replace,
	"buyer":         Replace,
	"authorization": Replace,
}

// PendingParent marks a subscription payload whose parent agreement has not
// been created yet. The create stage resolves it to the real identifier.
const PendingParent = "AGR-PENDING"

// Agreement builds the new-agreement document from the source according to
// the policy table and the target.
func Agreement(source mpt.Document, target Target) (mpt.Document, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if source.Str("listing", "id") == "" {
		return nil, &ValidationError{Msg: "source agreement has no listing reference"}
	}
	if source.Str("licensee", "id") == "" {
		return nil, &ValidationError{Msg: "source agreement has no licensee reference"}
	}

	out, err := source.Clone()
	if err != nil {
		return nil, fmt.Errorf("copy agreement: %w", err)
	}

	for field, policy := range agreementPolicy {
		if policy == Drop {
			out.Delete(field)
		}
	}

	switch {
	case target.ListingID != "":
		// Keep the rest of the listing relation; only the reference moves.
		out.Set(target.ListingID, "listing", "id")
	default:
		out["licensee"] = map[string]any{"id": target.LicenseeID}
		out["buyer"] = map[string]any{"id": target.BuyerID}
	}
	out["authorization"] = map[string]any{"id": target.AuthorizationID}

	return out, nil
}

// Subscription builds one new-subscription payload from a full source
// subscription document, in dump order. The instance identity is dropped and
// the parent reference is left pending; zero quantities and non-active
// statuses pass through untouched.
func Subscription(source mpt.Document) (mpt.Document, error) {
	out, err := source.Clone()
	if err != nil {
		return nil, fmt.Errorf("copy subscription: %w", err)
	}
	out.Delete("id")
	out.Set(PendingParent, "agreement", "id")
	return out, nil
}
