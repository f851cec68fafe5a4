package mptclone

import (
	"context"
	"fmt"
	"strings"

	"github.com/edvin/mptclone/internal/archive"
	"github.com/edvin/mptclone/internal/clone"
	"github.com/edvin/mptclone/internal/mpt"
	"github.com/edvin/mptclone/internal/snapshot"
)

// DumpOptions selects the clone target and optional archiving.
type DumpOptions struct {
	ListingID  string
	LicenseeID string
	Archive    bool
}

// Dump snapshots the source agreement: the agreement document, the inherited
// authorization, the new-agreement payload, the subscription workbook and a
// per-subscription payload dump. Nothing is created remotely. All remote
// loads run before the first write, so a failed load leaves no partial
// snapshot on disk.
func (s *Stage) Dump(ctx context.Context, opts DumpOptions) error {
	switch {
	case opts.ListingID == "" && opts.LicenseeID == "":
		return &clone.ValidationError{Msg: "either a listing ID or a licensee ID is required"}
	case opts.ListingID != "" && opts.LicenseeID != "":
		return &clone.ValidationError{Msg: "a listing ID and a licensee ID are mutually exclusive"}
	}
	if opts.Archive {
		if err := s.Config.RequireArchive(); err != nil {
			return err
		}
	}

	s.Logger.Info().Str("agreement", s.AgreementID).Msg("step 1: fetching agreement")
	agreement, err := s.Ops.GetAgreement(ctx, s.AgreementID)
	if err != nil {
		return fmt.Errorf("fetch agreement %s: %w", s.AgreementID, err)
	}

	s.Logger.Info().Msg("step 2: resolving clone target")
	target, authorization, err := s.resolveTarget(ctx, agreement, opts)
	if err != nil {
		return err
	}

	s.Logger.Info().Msg("step 3: building new agreement payload")
	newAgreement, err := clone.Agreement(agreement, target)
	if err != nil {
		return err
	}

	s.Logger.Info().Msg("step 4: fetching subscriptions")
	subscriptions, err := s.Ops.ListAgreementSubscriptions(ctx, s.AgreementID)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	if err := s.checkVendorIDs(subscriptions); err != nil {
		return err
	}

	s.Logger.Info().Int("subscriptions", len(subscriptions)).Msg("step 5: fetching subscription payloads")
	type subDump struct {
		id      string
		payload mpt.Document
	}
	var dumps []subDump
	for _, sub := range subscriptions {
		id := sub.ID()
		if id == "" {
			s.Logger.Warn().Msg("skipping subscription without id")
			continue
		}
		full, err := s.Vendor.GetSubscription(ctx, id)
		if err != nil {
			s.Logger.Warn().Err(err).Str("subscription", id).Msg("could not fetch subscription, skipping dump")
			continue
		}
		payload, err := clone.Subscription(full)
		if err != nil {
			return err
		}
		dumps = append(dumps, subDump{id: id, payload: payload})
	}

	s.Logger.Info().Msg("step 6: writing snapshot")
	if err := s.Store.WriteDocument(snapshot.AgreementFile, agreement); err != nil {
		return err
	}
	if err := s.Store.WriteDocument(snapshot.AuthorizationFile, authorization); err != nil {
		return err
	}
	if err := s.Store.WriteDocument(snapshot.NewAgreementFile, newAgreement); err != nil {
		return err
	}
	if err := s.Store.WriteWorkbook(subscriptions, s.Logger); err != nil {
		return err
	}
	for _, d := range dumps {
		if err := s.Store.WriteSubscription(d.id, d.payload); err != nil {
			return err
		}
	}
	s.Logger.Info().Int("dumped", len(dumps)).Msg("subscription payloads written")

	if opts.Archive {
		s.Logger.Info().Msg("step 7: archiving snapshot")
		up := archive.NewUploader(s.Logger, s.Config.ArchiveEndpoint, s.Config.ArchiveBucket,
			s.Config.ArchiveAccessKey, s.Config.ArchiveSecretKey)
		if _, err := up.Upload(ctx, s.Store, s.AgreementID); err != nil {
			return err
		}
	}

	s.Logger.Info().Str("dir", s.Store.Dir()).Msg("dump completed")
	return nil
}

// resolveTarget fetches the records the clone target needs and returns the
// transform target plus the authorization document to persist.
func (s *Stage) resolveTarget(ctx context.Context, agreement mpt.Document, opts DumpOptions) (clone.Target, mpt.Document, error) {
	switch {
	case opts.ListingID != "":
		if err := mpt.ValidateListingID(opts.ListingID); err != nil {
			return clone.Target{}, nil, err
		}
		listing, err := s.Ops.GetListing(ctx, opts.ListingID)
		if err != nil {
			return clone.Target{}, nil, fmt.Errorf("fetch listing %s: %w", opts.ListingID, err)
		}
		authorization := listing.Doc("authorization")
		if authorization == nil || authorization.ID() == "" {
			return clone.Target{}, nil, fmt.Errorf("listing %s has no authorization", opts.ListingID)
		}
		return clone.Target{
			ListingID:       opts.ListingID,
			AuthorizationID: authorization.ID(),
		}, authorization, nil

	default:
		if err := mpt.ValidateLicenseeID(opts.LicenseeID); err != nil {
			return clone.Target{}, nil, err
		}
		sourceLicenseeID := agreement.Str("licensee", "id")
		sellerID := agreement.Str("seller", "id")
		clientID := agreement.Str("client", "id")
		listingID := agreement.Str("listing", "id")
		for _, ref := range []struct{ name, value string }{
			{"licensee.id", sourceLicenseeID},
			{"seller.id", sellerID},
			{"client.id", clientID},
			{"listing.id", listingID},
		} {
			if ref.value == "" {
				return clone.Target{}, nil, fmt.Errorf("agreement %s has no %s", s.AgreementID, ref.name)
			}
		}

		// The source licensee fetch is a consistency check: the destination
		// must live under the same seller and client.
		if _, err := s.Ops.FindLicensee(ctx, sourceLicenseeID, sellerID, clientID); err != nil {
			return clone.Target{}, nil, fmt.Errorf("fetch source licensee %s: %w", sourceLicenseeID, err)
		}
		destination, err := s.Ops.FindLicensee(ctx, opts.LicenseeID, sellerID, clientID)
		if err != nil {
			return clone.Target{}, nil, fmt.Errorf("fetch destination licensee %s: %w", opts.LicenseeID, err)
		}
		buyerID := destination.Str("buyer", "id")
		if buyerID == "" {
			return clone.Target{}, nil, fmt.Errorf("destination licensee %s has no buyer", opts.LicenseeID)
		}

		listing, err := s.Ops.GetListing(ctx, listingID)
		if err != nil {
			return clone.Target{}, nil, fmt.Errorf("fetch original listing %s: %w", listingID, err)
		}
		authorization := listing.Doc("authorization")
		if authorization == nil || authorization.ID() == "" {
			return clone.Target{}, nil, fmt.Errorf("original listing %s has no authorization", listingID)
		}
		return clone.Target{
			LicenseeID:      opts.LicenseeID,
			AuthorizationID: authorization.ID(),
			BuyerID:         buyerID,
		}, authorization, nil
	}
}

// checkVendorIDs aborts the dump when more than one subscription lacks a
// vendor external ID; those cannot be told apart by the markup stage later.
func (s *Stage) checkVendorIDs(subscriptions []mpt.Document) error {
	var missing []string
	for _, sub := range subscriptions {
		if strings.TrimSpace(sub.Str("externalIds", "vendor")) == "" {
			missing = append(missing, sub.ID())
		}
	}
	switch len(missing) {
	case 0:
		return nil
	case 1:
		s.Logger.Warn().Str("subscription", missing[0]).
			Msg("subscription has no vendor external ID and may not be matchable later")
		return nil
	default:
		return fmt.Errorf("%d subscriptions have no vendor external ID (%s), matching would be ambiguous",
			len(missing), strings.Join(missing, ", "))
	}
}
