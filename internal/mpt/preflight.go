package mpt

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Preflight checks the agreement and both credentials before a stage does any
// writes:
//
//  1. the agreement is fetchable with the operations token,
//  2. the agreement is fetchable with the vendor token,
//  3. its status is Active or Terminated,
//  4. the operations token sees price.defaultMarkup (proves its scope),
//  5. the vendor token does not (proves the tokens were not swapped).
func Preflight(ctx context.Context, ops, vendor *Client, agreementID string, logger zerolog.Logger) error {
	_, err := PreflightOps(ctx, ops, agreementID, logger)
	if err != nil {
		return err
	}

	vendorView, err := vendor.GetAgreement(ctx, agreementID)
	if err != nil {
		return fmt.Errorf("fetch agreement %s with vendor token: %w", agreementID, err)
	}
	if defaultMarkupVisible(vendorView) {
		return fmt.Errorf("vendor token can see price.defaultMarkup on %s; it appears to be an operations token", agreementID)
	}
	logger.Info().Str("agreement", agreementID).Msg("token scopes verified")

	return nil
}

// PreflightOps is the operations-token half of Preflight, for stages that
// never touch the platform with the vendor credential.
func PreflightOps(ctx context.Context, ops *Client, agreementID string, logger zerolog.Logger) (Document, error) {
	if err := ValidateAgreementID(agreementID); err != nil {
		return nil, err
	}

	opsView, err := ops.GetAgreement(ctx, agreementID)
	if err != nil {
		return nil, fmt.Errorf("fetch agreement %s with operations token: %w", agreementID, err)
	}

	status := opsView.Str("status")
	if status != "Active" && status != "Terminated" {
		return nil, fmt.Errorf("agreement %s has status %q, expected Active or Terminated", agreementID, status)
	}
	logger.Info().Str("agreement", agreementID).Str("status", status).Msg("agreement status ok")

	if !defaultMarkupVisible(opsView) {
		return nil, fmt.Errorf("operations token cannot see price.defaultMarkup on %s; the token is invalid or mis-scoped", agreementID)
	}
	return opsView, nil
}

func defaultMarkupVisible(agreement Document) bool {
	if price := agreement.Doc("price"); price != nil {
		if _, ok := price["defaultMarkup"]; ok {
			return true
		}
	}
	_, ok := agreement["defaultMarkup"]
	return ok
}
