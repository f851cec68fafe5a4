package mptclone

import (
	"context"

	"github.com/edvin/mptclone/internal/terminate"
)

// Terminate winds down the source agreement by terminating its remaining
// active subscriptions with the vendor token. Requires a prior dump.
func (s *Stage) Terminate(ctx context.Context) (terminate.Report, error) {
	return terminate.Run(ctx, s.Vendor, s.Store, s.AgreementID, s.Logger)
}
