package mpt

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

const pageLimit = 1000

// subscriptionSelect is the field selection used when listing an agreement's
// subscriptions. It pulls in the relations the snapshot needs while dropping
// the agreement's own subscription and line collections, which would bloat
// every row.
const subscriptionSelect = "agreement,lines,agreement.authorization.externalIds," +
	"agreement.listing.priceList,agreement.parameters,agreement.certificates," +
	"licensee,buyer,seller,audit,-agreement.subscriptions,-agreement.lines"

type page struct {
	Data []Document `json:"data"`
	Meta struct {
		Pagination struct {
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
			Total  int `json:"total"`
		} `json:"pagination"`
	} `json:"$meta"`
}

func (p *page) hasMore() bool {
	m := p.Meta.Pagination
	return m.Offset+m.Limit < m.Total
}

// ListAgreementSubscriptions fetches every active subscription under the
// agreement, page by page, newest first. The creation-time upper bound pins
// the listing to the moment the call started so rows created mid-run cannot
// shift the pages.
func (c *Client) ListAgreementSubscriptions(ctx context.Context, agreementID string) ([]Document, error) {
	now := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	filter := fmt.Sprintf("and(lt(audit.created.at,%s),eq(agreement.id,%s),eq(status,active))", now, agreementID)

	var items []Document
	offset := 0
	for {
		path := fmt.Sprintf("/public/v1/commerce/subscriptions?%s&select=%s&order=-audit.created.at&offset=%d&limit=%d",
			filter, url.QueryEscape(subscriptionSelect), offset, pageLimit)

		resp, err := c.Get(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("list subscriptions for %s: %w", agreementID, err)
		}

		var p page
		if err := resp.Decode(&p); err != nil {
			return nil, fmt.Errorf("list subscriptions for %s: %w", agreementID, err)
		}
		items = append(items, p.Data...)

		if !p.hasMore() {
			break
		}
		offset = p.Meta.Pagination.Offset + p.Meta.Pagination.Limit
	}

	c.logger.Info().Int("count", len(items)).Str("agreement", agreementID).Msg("collected subscriptions")
	return items, nil
}

// GetSubscription fetches one subscription with the caller's credential. The
// vendor token sees the full document shape needed for re-creation.
func (c *Client) GetSubscription(ctx context.Context, id string) (Document, error) {
	resp, err := c.Get(ctx, "/public/v1/commerce/subscriptions/"+id)
	if err != nil {
		return nil, err
	}
	return resp.Document()
}

// CreateSubscription posts a new subscription and returns the created record.
func (c *Client) CreateSubscription(ctx context.Context, payload Document) (Document, error) {
	resp, err := c.Post(ctx, "/public/v1/commerce/subscriptions", payload)
	if err != nil {
		return nil, err
	}
	created, err := resp.Document()
	if err != nil {
		return nil, err
	}
	if created.ID() == "" {
		return nil, fmt.Errorf("create subscription: response carries no id")
	}
	return created, nil
}

// UpdateSubscription puts a partial update (typically line pricing) onto a
// subscription.
func (c *Client) UpdateSubscription(ctx context.Context, id string, payload Document) error {
	_, err := c.Put(ctx, "/public/v1/commerce/subscriptions/"+id, payload)
	return err
}

// TerminateSubscription posts the terminate action for a subscription.
func (c *Client) TerminateSubscription(ctx context.Context, id string) error {
	_, err := c.Post(ctx, "/public/v1/commerce/subscriptions/"+id+"/terminate", Document{"id": id})
	return err
}
