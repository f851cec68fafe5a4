package mpt

import (
	"context"
	"fmt"
	"strings"
)

// GetAgreement fetches one agreement by ID.
func (c *Client) GetAgreement(ctx context.Context, id string) (Document, error) {
	resp, err := c.Get(ctx, "/public/v1/commerce/agreements/"+id)
	if err != nil {
		return nil, err
	}
	return resp.Document()
}

// CreateAgreement posts a new agreement and returns the created record.
func (c *Client) CreateAgreement(ctx context.Context, payload Document) (Document, error) {
	resp, err := c.Post(ctx, "/public/v1/commerce/agreements", payload)
	if err != nil {
		return nil, err
	}
	created, err := resp.Document()
	if err != nil {
		return nil, err
	}
	if created.ID() == "" {
		return nil, fmt.Errorf("create agreement: response carries no id")
	}
	return created, nil
}

// UpdateAgreementField puts a single dotted-path field onto an agreement.
// The payload always carries the agreement id alongside the nested field,
// which is what the platform expects for partial updates.
func (c *Client) UpdateAgreementField(ctx context.Context, id, fieldPath string, value any) error {
	payload := Document{"id": id}
	payload.Set(value, strings.Split(fieldPath, ".")...)

	_, err := c.Put(ctx, "/public/v1/commerce/agreements/"+id, payload)
	if err != nil {
		return fmt.Errorf("update %s: %w", fieldPath, err)
	}
	return nil
}

// UpdateAgreementCertificates puts the certificate references onto an
// agreement. Only the ids are sent; the platform resolves the rest.
func (c *Client) UpdateAgreementCertificates(ctx context.Context, id string, certificates []Document) error {
	refs := make([]Document, 0, len(certificates))
	for _, cert := range certificates {
		if certID := cert.ID(); certID != "" {
			refs = append(refs, Document{"id": certID})
		}
	}
	if len(refs) == 0 {
		return fmt.Errorf("update certificates: no certificate ids in source")
	}

	_, err := c.Put(ctx, "/public/v1/commerce/agreements/"+id, Document{"certificates": refs})
	if err != nil {
		return fmt.Errorf("update certificates: %w", err)
	}
	return nil
}
