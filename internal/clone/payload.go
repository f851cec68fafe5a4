package clone

import (
	"fmt"
	"sort"

	"github.com/edvin/mptclone/internal/mpt"
)

// DeferredFields are values the create endpoint rejects on POST but accepts as
// later PUT updates with the vendor credential.
type DeferredFields struct {
	ExternalIDVendor      string
	ParametersFulfillment any
	TemplateID            string
	Certificates          []mpt.Document
}

// AgreementCreatePayload strips the fields the POST endpoint rejects from the
// new-agreement document and hands them back for post-create application.
func AgreementCreatePayload(agreement mpt.Document) (mpt.Document, DeferredFields, error) {
	payload, err := agreement.Clone()
	if err != nil {
		return nil, DeferredFields{}, fmt.Errorf("copy agreement payload: %w", err)
	}

	deferred := DeferredFields{
		ExternalIDVendor: agreement.Str("externalIds", "vendor"),
		TemplateID:       agreement.Str("template", "id"),
		Certificates:     agreement.Docs("certificates"),
	}
	if params := agreement.Doc("parameters"); params != nil {
		deferred.ParametersFulfillment = params["fulfillment"]
	}

	payload.Delete("externalIds", "vendor")
	payload.Delete("parameters", "fulfillment")
	payload.Delete("certificates")

	return payload, deferred, nil
}

// subscriptionCreateFields is the allow-list of first-level properties the
// create-subscription endpoint accepts.
var subscriptionCreateFields = []string{
	"agreement",
	"autoRenew",
	"commitmentDate",
	"externalIds",
	"lines",
	"name",
	"parameters",
	"startDate",
	"template",
}

// SubscriptionCreatePayload resolves the pending parent reference to the real
// new-agreement identifier and reduces the dumped document to the allow-listed
// properties. Lines keep only the item reference and quantity; the price node
// survives only when keepPurchasePrice is set.
func SubscriptionCreatePayload(dumped mpt.Document, parentID string, keepPurchasePrice bool) (mpt.Document, error) {
	if parentID == "" {
		return nil, &ValidationError{Msg: "pending parent reference cannot be resolved without a new agreement ID"}
	}

	src, err := dumped.Clone()
	if err != nil {
		return nil, fmt.Errorf("copy subscription payload: %w", err)
	}
	src.Set(parentID, "agreement", "id")

	payload := mpt.Document{}
	for _, field := range subscriptionCreateFields {
		if field == "lines" {
			if lines := src.Docs("lines"); lines != nil {
				payload["lines"] = sanitizeLines(lines, keepPurchasePrice)
			}
			continue
		}
		if v, ok := src[field]; ok {
			payload[field] = v
		}
	}

	return payload, nil
}

func sanitizeLines(lines []mpt.Document, keepPurchasePrice bool) []any {
	out := make([]any, 0, len(lines))
	for _, line := range lines {
		sanitized := map[string]any{
			"item":     map[string]any{"id": line.Str("item", "id")},
			"quantity": line["quantity"],
		}
		if keepPurchasePrice {
			if price, ok := line["price"]; ok {
				sanitized["price"] = price
			}
		}
		out = append(out, sanitized)
	}
	return out
}

// RemovedFields lists the top-level properties SubscriptionCreatePayload
// would strip from the given document, for debug logging.
func RemovedFields(dumped mpt.Document) []string {
	allowed := make(map[string]bool, len(subscriptionCreateFields))
	for _, f := range subscriptionCreateFields {
		allowed[f] = true
	}
	var removed []string
	for key := range dumped {
		if !allowed[key] {
			removed = append(removed, key)
		}
	}
	sort.Strings(removed)
	return removed
}
