package mpt

import (
	"context"
	"fmt"
)

// GetListing fetches a listing together with its authorization relation,
// which the clone inherits.
func (c *Client) GetListing(ctx context.Context, id string) (Document, error) {
	resp, err := c.Get(ctx, "/public/v1/catalog/listings/"+id+"?select=authorization,authorization.externalIds")
	if err != nil {
		return nil, err
	}
	return resp.Document()
}

// FindLicensee looks up a licensee scoped to a seller and client account.
// Exactly one match is required; zero or several is an error because the
// clone would otherwise attach to the wrong party.
func (c *Client) FindLicensee(ctx context.Context, licenseeID, sellerID, clientID string) (Document, error) {
	path := fmt.Sprintf("/public/v1/accounts/licensees?and(eq(id,%s),eq(seller.id,%s),eq(account.id,%s))",
		licenseeID, sellerID, clientID)

	resp, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	var p page
	if err := resp.Decode(&p); err != nil {
		return nil, err
	}
	switch len(p.Data) {
	case 0:
		return nil, &NotFoundError{Method: "GET", Path: path, Body: fmt.Sprintf("no licensee %s for seller %s and client %s", licenseeID, sellerID, clientID)}
	case 1:
		return p.Data[0], nil
	default:
		return nil, fmt.Errorf("ambiguous licensee %s: %d matches for seller %s and client %s", licenseeID, len(p.Data), sellerID, clientID)
	}
}
