package mptclone

import (
	"context"
	"fmt"

	"github.com/edvin/mptclone/internal/mpt"
	"github.com/edvin/mptclone/internal/snapshot"
)

// auditEvent tags clone audit records in the platform's audit trail.
const auditEvent = "extensions.clone.agreement"

// Audit records the clone on both agreements: one record on the old
// agreement pointing at the new one and vice versa, each attaching both
// documents. One side failing does not stop the other; both failing fails
// the stage.
func (s *Stage) Audit(ctx context.Context) error {
	oldAgreement, err := s.Store.ReadDocument(snapshot.AgreementFile)
	if err != nil {
		return fmt.Errorf("load old agreement, run dump first: %w", err)
	}
	newAgreement, err := s.Store.ReadDocument(snapshot.FinalAgreementFile)
	if err != nil {
		return fmt.Errorf("load final agreement, run create first: %w", err)
	}

	oldID, newID := oldAgreement.ID(), newAgreement.ID()
	if oldID == "" || newID == "" {
		return fmt.Errorf("agreement dumps are missing IDs (old %q, new %q)", oldID, newID)
	}

	documents := map[string]any{
		"Old Agreement": map[string]any(oldAgreement),
		"New Agreement": map[string]any(newAgreement),
	}

	oldErr := s.Ops.CreateAuditRecord(ctx, mpt.AuditRecord{
		Event:     auditEvent,
		Summary:   fmt.Sprintf("Agreement has been cloned to %s", newID),
		Details:   fmt.Sprintf("The agreement has been cloned to new one with id %s", newID),
		ObjectID:  oldID,
		Documents: documents,
	})
	if oldErr != nil {
		s.Logger.Error().Err(oldErr).Str("agreement", oldID).Msg("audit record for old agreement failed")
	} else {
		s.Logger.Info().Str("agreement", oldID).Msg("audit record created for old agreement")
	}

	newErr := s.Ops.CreateAuditRecord(ctx, mpt.AuditRecord{
		Event:     auditEvent,
		Summary:   fmt.Sprintf("Agreement has been cloned from %s", oldID),
		Details:   fmt.Sprintf("The agreement has been cloned from the one with id %s", oldID),
		ObjectID:  newID,
		Documents: documents,
	})
	if newErr != nil {
		s.Logger.Error().Err(newErr).Str("agreement", newID).Msg("audit record for new agreement failed")
	} else {
		s.Logger.Info().Str("agreement", newID).Msg("audit record created for new agreement")
	}

	if oldErr != nil && newErr != nil {
		return fmt.Errorf("both audit records failed: %w", newErr)
	}
	return nil
}
