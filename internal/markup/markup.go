// Package markup recomputes subscription line prices from a workbook-derived
// request. Planning is pure; Apply performs the PUT calls and defaults to a
// dry run.
package markup

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/edvin/mptclone/internal/mpt"
	"github.com/edvin/mptclone/internal/snapshot"
)

// ItemMarkup is the requested markup for one line item, with an optional
// purchase price override from the workbook.
type ItemMarkup struct {
	Markup float64
	UnitPP *float64
}

// SubscriptionRequest groups the requested item markups of one subscription.
type SubscriptionRequest struct {
	SubscriptionID string
	Items          map[string]ItemMarkup
}

// Request maps vendor subscription IDs to their requested markups. Matching
// against live subscriptions runs on externalIds.vendor, which survives the
// clone while platform IDs do not.
type Request map[string]*SubscriptionRequest

// BuildRequest groups workbook rows by vendor subscription ID.
func BuildRequest(rows []snapshot.MarkupRow) Request {
	req := Request{}
	for _, row := range rows {
		sub, ok := req[row.VendorSubID]
		if !ok {
			sub = &SubscriptionRequest{
				SubscriptionID: row.SubscriptionID,
				Items:          map[string]ItemMarkup{},
			}
			req[row.VendorSubID] = sub
		}
		sub.Items[row.ItemID] = ItemMarkup{Markup: row.Markup, UnitPP: row.UnitPP}
	}
	return req
}

// UnitSP computes the selling price from a purchase price and a percentage
// markup, rounded to two decimals.
func UnitSP(unitPP, markupPercent float64) float64 {
	pp := decimal.NewFromFloat(unitPP)
	factor := decimal.NewFromFloat(markupPercent).Div(decimal.NewFromInt(100)).Add(decimal.NewFromInt(1))
	f, _ := pp.Mul(factor).Round(2).Float64()
	return f
}

// SubscriptionUpdate is one planned PUT against a live subscription.
type SubscriptionUpdate struct {
	SubscriptionID string
	VendorSubID    string
	Lines          []mpt.Document
}

// Plan matches live subscriptions against the request and builds the line
// update payloads. Subscriptions without a vendor external ID are ignored;
// ones with an ID that has no workbook entry are reported as not matched.
// Only active lines whose item appears in the request are updated; a matched
// subscription can come back with no lines at all, which Apply reports but
// does not send.
func Plan(subscriptions []mpt.Document, req Request, keepPurchasePrice bool) (updates []SubscriptionUpdate, notMatched []string) {
	for _, sub := range subscriptions {
		vendorID := sub.Str("externalIds", "vendor")
		if vendorID == "" {
			continue
		}

		subReq, ok := req[vendorID]
		if !ok {
			notMatched = append(notMatched, sub.ID())
			continue
		}

		var lines []mpt.Document
		for _, line := range sub.Docs("lines") {
			if !strings.EqualFold(line.Str("status"), "active") {
				continue
			}
			itemID := line.Str("item", "id")
			lineID := line.Str("id")
			if itemID == "" || lineID == "" {
				continue
			}
			item, ok := subReq.Items[itemID]
			if !ok {
				continue
			}
			lines = append(lines, linePayload(sub.ID(), line, item, keepPurchasePrice))
		}

		updates = append(updates, SubscriptionUpdate{
			SubscriptionID: sub.ID(),
			VendorSubID:    vendorID,
			Lines:          lines,
		})
	}
	return updates, notMatched
}

// linePayload builds one line of the PUT body. With keepPurchasePrice the
// price node pins unitPP (workbook value, falling back to the live one) and
// the derived unitSP; otherwise only the markup is sent and the platform
// reprices from its list.
func linePayload(subscriptionID string, line mpt.Document, item ItemMarkup, keepPurchasePrice bool) mpt.Document {
	var price map[string]any
	if keepPurchasePrice {
		unitPP := 0.0
		if item.UnitPP != nil {
			unitPP = *item.UnitPP
		}
		if unitPP == 0 {
			unitPP = line.Float("price", "unitPP")
		}
		if unitPP != 0 {
			price = map[string]any{
				"unitPP": unitPP,
				"unitSP": UnitSP(unitPP, item.Markup),
			}
		} else {
			price = map[string]any{"markup": item.Markup}
		}
	} else {
		price = map[string]any{"markup": item.Markup}
	}

	payload := mpt.Document{
		"id":                    line.Str("id"),
		"subscription":          map[string]any{"id": subscriptionID},
		"item":                  map[string]any{"id": line.Str("item", "id")},
		"quantity":              lineQuantity(line),
		"quantityNotApplicable": line.Bool("quantityNotApplicable"),
		"price":                 price,
	}
	if !keepPurchasePrice {
		terms := line.Doc("terms")
		if terms == nil {
			terms = mpt.Document{}
		}
		payload["terms"] = map[string]any(terms)
	}
	return payload
}

func lineQuantity(line mpt.Document) any {
	if q, ok := line["quantity"]; ok {
		return q
	}
	return 1
}
