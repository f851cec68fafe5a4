package mptclone

import (
	"context"
	"fmt"

	"github.com/edvin/mptclone/internal/clone"
	"github.com/edvin/mptclone/internal/csp"
	"github.com/edvin/mptclone/internal/snapshot"
)

// CreateOptions controls the create stage. With Sync the vendor platform is
// asked to rebuild the subscriptions itself instead of creating them from
// the dump.
type CreateOptions struct {
	Sync              bool
	KeepPurchasePrice bool
}

// Create builds the new agreement from the persisted dump: POST the filtered
// payload with the operations token, re-apply the deferred fields with the
// vendor token, then either create the dumped subscriptions or trigger the
// platform sync. The final agreement is fetched back and persisted for the
// later stages.
func (s *Stage) Create(ctx context.Context, opts CreateOptions) error {
	if opts.Sync {
		if err := s.Config.RequireCSP(); err != nil {
			return err
		}
	}

	newAgreement, err := s.Store.ReadDocument(snapshot.NewAgreementFile)
	if err != nil {
		return fmt.Errorf("load new agreement payload, run dump first: %w", err)
	}

	payload, deferred, err := clone.AgreementCreatePayload(newAgreement)
	if err != nil {
		return err
	}

	s.Logger.Info().Msg("step 1: creating agreement")
	created, err := s.Ops.CreateAgreement(ctx, payload)
	if err != nil {
		return fmt.Errorf("create agreement: %w", err)
	}
	newID := created.ID()
	s.Logger.Info().Str("agreement", newID).Msg("agreement created")

	// Deferred field failures are logged and skipped: the agreement exists
	// and the operator can re-apply fields by hand.
	s.Logger.Info().Msg("step 2: re-applying deferred fields")
	if deferred.ParametersFulfillment != nil {
		if err := s.Vendor.UpdateAgreementField(ctx, newID, "parameters.fulfillment", deferred.ParametersFulfillment); err != nil {
			s.Logger.Warn().Err(err).Msg("could not update parameters.fulfillment, continuing")
		}
	}
	if deferred.ExternalIDVendor != "" {
		if err := s.Vendor.UpdateAgreementField(ctx, newID, "externalIds.vendor", deferred.ExternalIDVendor); err != nil {
			s.Logger.Warn().Err(err).Msg("could not update externalIds.vendor, continuing")
		}
	}
	if deferred.TemplateID != "" {
		if err := s.Vendor.UpdateAgreementField(ctx, newID, "template.id", deferred.TemplateID); err != nil {
			s.Logger.Warn().Err(err).Msg("could not update template.id, continuing")
		}
	}
	if len(deferred.Certificates) > 0 {
		if err := s.Vendor.UpdateAgreementCertificates(ctx, newID, deferred.Certificates); err != nil {
			s.Logger.Warn().Err(err).Msg("could not update certificates, continuing")
		}
	}

	if opts.Sync {
		s.Logger.Info().Msg("step 3: triggering platform sync")
		if err := s.platformSync(ctx, deferred.ExternalIDVendor); err != nil {
			return err
		}
	} else {
		s.Logger.Info().Msg("step 3: creating subscriptions from dump")
		if err := s.createSubscriptions(ctx, newID, opts.KeepPurchasePrice); err != nil {
			return err
		}
	}

	s.Logger.Info().Msg("step 4: fetching final agreement")
	final, err := s.Ops.GetAgreement(ctx, newID)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("could not fetch final agreement, skipping save")
		return nil
	}
	if err := s.Store.WriteDocument(snapshot.FinalAgreementFile, final); err != nil {
		return err
	}

	s.Logger.Info().Str("agreement", newID).Msg("create completed")
	return nil
}

// createSubscriptions creates one subscription per workbook ID from its JSON
// dump. The workbook is the selection mechanism: deleting rows scopes the
// run.
func (s *Stage) createSubscriptions(ctx context.Context, newAgreementID string, keepPurchasePrice bool) error {
	ids, err := s.Store.ReadSubscriptionIDs()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		s.Logger.Warn().Msg("no subscription IDs in workbook, nothing to create")
		return nil
	}

	createdCount, failedCount := 0, 0
	for _, id := range ids {
		dumped, err := s.Store.ReadSubscription(id)
		if err != nil {
			s.Logger.Warn().Err(err).Str("subscription", id).Msg("could not load subscription dump, skipping")
			failedCount++
			continue
		}
		payload, err := clone.SubscriptionCreatePayload(dumped, newAgreementID, keepPurchasePrice)
		if err != nil {
			return err
		}
		if removed := clone.RemovedFields(dumped); len(removed) > 0 {
			s.Logger.Debug().Strs("removed", removed).Str("subscription", id).Msg("fields stripped from create payload")
		}

		created, err := s.Vendor.CreateSubscription(ctx, payload)
		if err != nil {
			s.Logger.Error().Err(err).Str("subscription", id).Msg("subscription creation failed")
			failedCount++
			continue
		}
		s.Logger.Info().Str("subscription", created.ID()).Str("source", id).Msg("subscription created")
		createdCount++
	}

	s.Logger.Info().Int("created", createdCount).Int("failed", failedCount).Int("total", len(ids)).
		Msg("subscription creation summary")
	return nil
}

// platformSync asks the vendor platform to rebuild the tenant under the new
// authorization, using the authorization dumped earlier.
func (s *Stage) platformSync(ctx context.Context, tenantID string) error {
	authorization, err := s.Store.ReadDocument(snapshot.AuthorizationFile)
	if err != nil {
		return fmt.Errorf("load authorization, run dump first: %w", err)
	}
	authExternalID := authorization.Str("externalIds", "operations")
	if authExternalID == "" {
		return fmt.Errorf("authorization has no operations external ID, cannot sync")
	}
	if tenantID == "" {
		return fmt.Errorf("agreement has no vendor external ID, cannot sync")
	}

	client := csp.NewClient(s.Config.CSPTunnelURL, s.Config.CSPToken, "mptclone/create", s.Logger)
	return client.Sync(ctx, authExternalID, tenantID)
}
