package mptclone

import (
	"context"
	"fmt"

	"github.com/edvin/mptclone/internal/markup"
	"github.com/edvin/mptclone/internal/snapshot"
)

// MarkupOptions controls the update-markups stage. Without Apply the stage
// only reports what it would change.
type MarkupOptions struct {
	Apply             bool
	KeepPurchasePrice bool
}

// UpdateMarkups reprices the new agreement's subscriptions from the workbook.
// Matching runs on vendor external IDs against the agreement recorded in
// final_agreement.json, so it works regardless of whether the subscriptions
// were created from the dump or by platform sync.
func (s *Stage) UpdateMarkups(ctx context.Context, opts MarkupOptions) (markup.Report, error) {
	final, err := s.Store.ReadDocument(snapshot.FinalAgreementFile)
	if err != nil {
		return markup.Report{}, fmt.Errorf("load final agreement, run create first: %w", err)
	}
	newAgreementID := final.ID()
	if newAgreementID == "" {
		return markup.Report{}, fmt.Errorf("final agreement has no id")
	}

	rows, err := s.Store.ReadMarkupRows()
	if err != nil {
		return markup.Report{}, err
	}
	request := markup.BuildRequest(rows)
	if len(request) == 0 {
		return markup.Report{}, fmt.Errorf("workbook holds no usable markup rows")
	}
	s.Logger.Info().Int("rows", len(rows)).Int("subscriptions", len(request)).
		Str("agreement", newAgreementID).Msg("markup request loaded")

	subscriptions, err := s.Ops.ListAgreementSubscriptions(ctx, newAgreementID)
	if err != nil {
		return markup.Report{}, fmt.Errorf("list subscriptions of %s: %w", newAgreementID, err)
	}

	updates, notMatched := markup.Plan(subscriptions, request, opts.KeepPurchasePrice)
	if !opts.Apply {
		s.Logger.Info().Msg("dry run, pass -apply to issue the updates")
	}
	report := markup.Apply(ctx, s.Ops, updates, notMatched, !opts.Apply, s.Logger)

	s.Logger.Info().
		Int("matched", report.Matched).
		Int("updated", report.Updated).
		Int("lines", report.LinesUpdated).
		Int("not_matched", report.NotMatched).
		Int("failed", len(report.Failed)).
		Msg("markup update summary")
	return report, nil
}
