package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/edvin/mptclone/internal/mptclone"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "dump":
		fs := flag.NewFlagSet("dump", flag.ExitOnError)
		agreement := fs.String("agreement", "", "Source agreement ID (required)")
		listing := fs.String("listing", "", "Destination listing ID (clone to another listing)")
		licensee := fs.String("licensee", "", "Destination licensee ID (clone to another licensee)")
		archiveFlag := fs.Bool("archive", false, "Upload the snapshot directory to S3 after dumping")
		debug := fs.Bool("debug", false, "Debug console logging")
		fs.Parse(os.Args[2:])
		requireAgreement(fs, *agreement)
		if (*listing == "") == (*licensee == "") {
			fmt.Fprintln(os.Stderr, "Error: exactly one of -listing or -licensee is required")
			fs.Usage()
			os.Exit(2)
		}

		runStage(ctx, "dump", *agreement, *debug, func(ctx context.Context, s *mptclone.Stage) error {
			return s.Dump(ctx, mptclone.DumpOptions{
				ListingID:  *listing,
				LicenseeID: *licensee,
				Archive:    *archiveFlag,
			})
		})

	case "create":
		fs := flag.NewFlagSet("create", flag.ExitOnError)
		agreement := fs.String("agreement", "", "Source agreement ID (required)")
		sync := fs.Bool("sync", false, "Trigger the platform sync instead of creating subscriptions from the dump")
		keepPP := fs.Bool("keep-purchase-price", false, "Carry line prices into the created subscriptions")
		debug := fs.Bool("debug", false, "Debug console logging")
		fs.Parse(os.Args[2:])
		requireAgreement(fs, *agreement)

		runStage(ctx, "create", *agreement, *debug, func(ctx context.Context, s *mptclone.Stage) error {
			return s.Create(ctx, mptclone.CreateOptions{
				Sync:              *sync,
				KeepPurchasePrice: *keepPP,
			})
		})

	case "update-markups":
		fs := flag.NewFlagSet("update-markups", flag.ExitOnError)
		agreement := fs.String("agreement", "", "Source agreement ID (required)")
		apply := fs.Bool("apply", false, "Issue the updates (default is a dry run)")
		keepPP := fs.Bool("keep-purchase-price", false, "Pin unitPP and send derived unitSP instead of a markup")
		debug := fs.Bool("debug", false, "Debug console logging")
		fs.Parse(os.Args[2:])
		requireAgreement(fs, *agreement)

		runStage(ctx, "update-markups", *agreement, *debug, func(ctx context.Context, s *mptclone.Stage) error {
			_, err := s.UpdateMarkups(ctx, mptclone.MarkupOptions{
				Apply:             *apply,
				KeepPurchasePrice: *keepPP,
			})
			return err
		})

	case "terminate":
		fs := flag.NewFlagSet("terminate", flag.ExitOnError)
		agreement := fs.String("agreement", "", "Source agreement ID (required)")
		debug := fs.Bool("debug", false, "Debug console logging")
		fs.Parse(os.Args[2:])
		requireAgreement(fs, *agreement)

		runStage(ctx, "terminate", *agreement, *debug, func(ctx context.Context, s *mptclone.Stage) error {
			_, err := s.Terminate(ctx)
			return err
		})

	case "audit":
		fs := flag.NewFlagSet("audit", flag.ExitOnError)
		agreement := fs.String("agreement", "", "Source agreement ID (required)")
		debug := fs.Bool("debug", false, "Debug console logging")
		fs.Parse(os.Args[2:])
		requireAgreement(fs, *agreement)

		runStage(ctx, "audit", *agreement, *debug, func(ctx context.Context, s *mptclone.Stage) error {
			return s.Audit(ctx)
		})

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

func requireAgreement(fs *flag.FlagSet, agreement string) {
	if agreement == "" {
		fmt.Fprintln(os.Stderr, "Error: -agreement flag is required")
		fs.Usage()
		os.Exit(2)
	}
}

func runStage(ctx context.Context, name, agreementID string, debug bool, fn func(context.Context, *mptclone.Stage) error) {
	stage, err := mptclone.NewStage(ctx, name, agreementID, debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer stage.Close()

	if err := fn(ctx, stage); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stage.Close()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  mptclone dump -agreement <AGR-ID> (-listing <LST-ID> | -licensee <LCE-ID>) [-archive] [-debug]
  mptclone create -agreement <AGR-ID> [-sync] [-keep-purchase-price] [-debug]
  mptclone update-markups -agreement <AGR-ID> [-apply] [-keep-purchase-price] [-debug]
  mptclone terminate -agreement <AGR-ID> [-debug]
  mptclone audit -agreement <AGR-ID> [-debug]

Commands:
  dump            Snapshot an agreement and build the new-agreement payload
  create          Create the new agreement (and its subscriptions, or -sync)
  update-markups  Reprice the new agreement's subscription lines from the workbook
  terminate       Terminate the source agreement's active subscriptions
  audit           Record the clone in the audit trail of both agreements

Configuration is read from ~/.mpt-clone-agreement and the environment:
  API_URL, OPS_TOKEN                        always required
  VENDOR_TOKEN                              required except for audit
  CSP_URL_TUNNEL, CSP_TOKEN                 required for create -sync
  ARCHIVE_S3_ENDPOINT/BUCKET/ACCESS_KEY/SECRET_KEY  required for dump -archive
  OUTPUT_DIR (default "output"), LOG_LEVEL (default "info")`)
}
