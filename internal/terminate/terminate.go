// Package terminate winds down the source agreement after a clone by
// terminating its remaining active subscriptions.
package terminate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/mptclone/internal/mpt"
	"github.com/edvin/mptclone/internal/snapshot"
)

// Report summarizes one termination run.
type Report struct {
	Total             int
	Terminated        int
	AlreadyTerminated int
	Failed            []string
}

// Run terminates every active subscription of the agreement. It refuses to
// run without a prior dump on disk so the old state is always recoverable.
// Individual failures are collected and the run continues; a subscription
// the platform reports as no longer active counts as already terminated.
func Run(ctx context.Context, client *mpt.Client, store *snapshot.Store, agreementID string, logger zerolog.Logger) (Report, error) {
	if !store.Exists() {
		return Report{}, fmt.Errorf("no dump found in %s, run dump first", store.Dir())
	}
	if _, err := store.ReadDocument(snapshot.AgreementFile); err != nil {
		return Report{}, fmt.Errorf("agreement dump is incomplete, run dump first: %w", err)
	}

	subs, err := client.ListAgreementSubscriptions(ctx, agreementID)
	if err != nil {
		return Report{}, fmt.Errorf("list subscriptions of %s: %w", agreementID, err)
	}
	if len(subs) == 0 {
		logger.Warn().Str("agreement", agreementID).Msg("no active subscriptions to terminate")
		return Report{}, nil
	}

	report := Report{Total: len(subs)}
	for _, sub := range subs {
		id := sub.ID()
		if id == "" {
			logger.Error().Msg("skipping subscription without id")
			report.Failed = append(report.Failed, "(missing id)")
			continue
		}

		err := client.TerminateSubscription(ctx, id)
		switch {
		case err == nil:
			logger.Info().Str("subscription", id).Msg("subscription terminated")
			report.Terminated++
		case alreadyTerminated(err):
			logger.Info().Str("subscription", id).Msg("subscription already terminated")
			report.AlreadyTerminated++
		default:
			logger.Error().Err(err).Str("subscription", id).Msg("subscription termination failed")
			report.Failed = append(report.Failed, id)
		}
	}

	logger.Info().
		Int("total", report.Total).
		Int("terminated", report.Terminated).
		Int("already_terminated", report.AlreadyTerminated).
		Int("failed", len(report.Failed)).
		Msg("termination completed")
	return report, nil
}

// alreadyTerminated reports whether the error indicates the subscription is
// no longer in a terminable state, which happens when a previous run was
// interrupted after some terminations.
func alreadyTerminated(err error) bool {
	var remote *mpt.RemoteError
	if !errors.As(err, &remote) {
		return false
	}
	if remote.Status == http.StatusConflict {
		return true
	}
	return remote.Status == http.StatusBadRequest && strings.Contains(strings.ToLower(remote.Body), "terminat")
}
