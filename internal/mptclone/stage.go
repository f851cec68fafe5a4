// Package mptclone wires the agreement-cloning stages together: dump,
// create, update-markups, terminate and audit all share the same
// environment, credentials and on-disk snapshot layout.
package mptclone

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/edvin/mptclone/internal/config"
	"github.com/edvin/mptclone/internal/logging"
	"github.com/edvin/mptclone/internal/mpt"
	"github.com/edvin/mptclone/internal/snapshot"
)

// Stage carries everything a pipeline stage needs: validated configuration,
// a stage logger, the platform clients and the snapshot store of the source
// agreement. Vendor is nil for stages that run on the operations token only.
type Stage struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Ops         *mpt.Client
	Vendor      *mpt.Client
	Store       *snapshot.Store
	AgreementID string

	closeLog func() error
}

// The audit stage writes with the operations token only, so it neither needs
// nor validates the vendor credential.
func opsOnly(name string) bool {
	return name == "audit"
}

// NewStage loads the environment, opens the stage log and verifies the
// agreement and the stage's tokens before it does any work. On success the
// caller owns the stage and must Close it.
func NewStage(ctx context.Context, name, agreementID string, debug bool) (*Stage, error) {
	if err := mpt.ValidateAgreementID(agreementID); err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if !opsOnly(name) {
		if err := cfg.RequireVendor(); err != nil {
			return nil, err
		}
	}

	logger, closeLog, err := logging.NewStageLogger(name, cfg.OutputDir, agreementID, cfg.LogLevel, debug)
	if err != nil {
		return nil, err
	}

	store, err := snapshot.NewStore(cfg.OutputDir, agreementID)
	if err != nil {
		closeLog()
		return nil, err
	}

	userAgent := "mptclone/" + name
	s := &Stage{
		Config:      cfg,
		Logger:      logger,
		Ops:         mpt.NewClient(cfg.APIURL, cfg.OpsToken, userAgent, logger),
		Store:       store,
		AgreementID: agreementID,
		closeLog:    closeLog,
	}

	if opsOnly(name) {
		if _, err := mpt.PreflightOps(ctx, s.Ops, agreementID, logger); err != nil {
			closeLog()
			return nil, fmt.Errorf("preflight: %w", err)
		}
		return s, nil
	}

	s.Vendor = mpt.NewClient(cfg.APIURL, cfg.VendorToken, userAgent, logger)
	if err := mpt.Preflight(ctx, s.Ops, s.Vendor, agreementID, logger); err != nil {
		closeLog()
		return nil, fmt.Errorf("preflight: %w", err)
	}
	return s, nil
}

// Close flushes the stage log file.
func (s *Stage) Close() error {
	if s.closeLog == nil {
		return nil
	}
	return s.closeLog()
}
