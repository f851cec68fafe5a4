package mpt

import (
	"context"
	"fmt"
)

// AuditRecord is a private audit trail entry attached to a platform object.
type AuditRecord struct {
	Event     string
	Summary   string
	Details   string
	ObjectID  string
	Documents map[string]any
}

// CreateAuditRecord posts an audit record against the record identified by
// ObjectID.
func (c *Client) CreateAuditRecord(ctx context.Context, rec AuditRecord) error {
	body := Document{
		"event":   rec.Event,
		"summary": rec.Summary,
		"details": rec.Details,
		"type":    "Private",
		"object": Document{
			"id": rec.ObjectID,
		},
		"documents": rec.Documents,
	}

	if _, err := c.Post(ctx, "/public/v1/audit/records", body); err != nil {
		return fmt.Errorf("create audit record for %s: %w", rec.ObjectID, err)
	}
	return nil
}
