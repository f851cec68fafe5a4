package markup

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/edvin/mptclone/internal/mpt"
)

// Report summarizes one markup run.
type Report struct {
	Matched      int
	Updated      int
	LinesUpdated int
	NotMatched   int
	Failed       []string
}

// Apply executes the planned updates. With dryRun each PUT is logged instead
// of sent. A failed subscription is recorded and the run continues.
func Apply(ctx context.Context, client *mpt.Client, updates []SubscriptionUpdate, notMatched []string, dryRun bool, logger zerolog.Logger) Report {
	report := Report{Matched: len(updates), NotMatched: len(notMatched)}
	for _, id := range notMatched {
		logger.Debug().Str("subscription", id).Msg("no workbook entry for subscription, skipping")
	}

	for _, update := range updates {
		log := logger.With().
			Str("subscription", update.SubscriptionID).
			Str("vendor_id", update.VendorSubID).
			Int("lines", len(update.Lines)).
			Logger()

		if len(update.Lines) == 0 {
			log.Warn().Msg("subscription has no matching lines to update, skipping")
			continue
		}

		if dryRun {
			log.Info().Msg("dry run, would update subscription lines")
			report.Updated++
			report.LinesUpdated += len(update.Lines)
			continue
		}

		payload := mpt.Document{"lines": linesAny(update.Lines)}
		if err := client.UpdateSubscription(ctx, update.SubscriptionID, payload); err != nil {
			log.Error().Err(err).Msg("subscription line update failed")
			report.Failed = append(report.Failed, update.SubscriptionID)
			continue
		}
		log.Info().Msg("subscription lines updated")
		report.Updated++
		report.LinesUpdated += len(update.Lines)
	}
	return report
}

func linesAny(lines []mpt.Document) []any {
	out := make([]any, len(lines))
	for i, l := range lines {
		out[i] = l
	}
	return out
}
