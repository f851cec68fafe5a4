// Package csp triggers the tunnel-routed maintenance sync that makes the
// vendor side rebuild subscriptions for a tenant under a new authorization.
package csp

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edvin/mptclone/internal/mpt"
)

// Client calls the maintenance API through the tunnel. It reuses the
// platform client for transport so retries and auth handling stay uniform.
type Client struct {
	api    *mpt.Client
	logger zerolog.Logger
}

// NewClient builds a sync client for the tunnel base URL and credential.
func NewClient(baseURL, token, userAgent string, logger zerolog.Logger) *Client {
	return &Client{
		api:    mpt.NewClient(baseURL, token, userAgent, logger),
		logger: logger,
	}
}

// Sync requests a rebuild of the tenant's subscriptions under the given
// authorization. The authorization is addressed by its operations external
// ID, the tenant by the agreement's vendor external ID. Each call carries a
// fresh synchronization key so repeated runs are distinguishable.
func (c *Client) Sync(ctx context.Context, authorizationExternalID, tenantID string) error {
	if authorizationExternalID == "" || tenantID == "" {
		return fmt.Errorf("sync needs both an authorization external ID and a tenant ID")
	}

	key := uuid.NewString()
	path := fmt.Sprintf("/v1/maintenance/authorizations/%s/customers/%s/sync?synchronizationKey=%s",
		authorizationExternalID, tenantID, key)

	c.logger.Info().
		Str("authorization", authorizationExternalID).
		Str("tenant", tenantID).
		Str("synchronization_key", key).
		Msg("triggering platform sync")

	if _, err := c.api.Post(ctx, path, mpt.Document{}); err != nil {
		return fmt.Errorf("platform sync for %s/%s: %w", authorizationExternalID, tenantID, err)
	}
	c.logger.Info().Str("authorization", authorizationExternalID).Str("tenant", tenantID).
		Msg("platform sync completed")
	return nil
}
