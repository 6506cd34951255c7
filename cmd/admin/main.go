package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"horizon/internal/domain/bank"
	"horizon/internal/domain/linking"
	"horizon/internal/infrastructure/backend"
	"horizon/internal/infrastructure/crypto"
	"horizon/internal/infrastructure/docstore"
	"horizon/internal/infrastructure/dwolla"
	"horizon/internal/infrastructure/plaid"
	"horizon/internal/shared/config"
)

const usage = `Horizon Admin CLI - Maintenance commands for the Horizon API

Usage:
  admin <command> [options]

Commands:
  reconciliations list   List reconciliation records
  reconciliations run    Retry cleanup for every pending record
  shareable-id encode    Encode an account ID as a shareable ID
  shareable-id decode    Decode a shareable ID back to the account ID

Examples:
  admin reconciliations list --status=abandoned
  admin reconciliations run --timeout=10m
  admin shareable-id encode acc_123
  admin shareable-id decode YWNjXzEyMw
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage + "\n")
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "reconciliations":
		err = runReconciliations(os.Args[2:])
	case "shareable-id":
		err = runShareableID(os.Stdout, os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage + "\n")
		return
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		fmt.Print(usage + "\n")
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

var errUsage = errors.New("invalid arguments, see admin help")

func runShareableID(w io.Writer, args []string) error {
	if len(args) != 2 {
		return errUsage
	}

	switch args[0] {
	case "encode":
		if args[1] == "" {
			return errUsage
		}
		fmt.Fprintln(w, bank.EncodeShareableID(args[1]))
	case "decode":
		accountID, err := bank.DecodeShareableID(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(w, accountID)
	default:
		return errUsage
	}
	return nil
}

func runReconciliations(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	sub, args := args[0], args[1:]

	fs := flag.NewFlagSet("reconciliations "+sub, flag.ExitOnError)
	status := fs.String("status", string(linking.StatusPending), "Status to list (pending, resolved, abandoned)")
	timeout := fs.Duration("timeout", 5*time.Minute, "Timeout for the operation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	b, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		return err
	}
	repo := docstore.NewReconciliationRepository(b.Store, cfg.Store.ReconciliationCollection, encryptor)

	switch sub {
	case "list":
		st, err := parseStatus(*status)
		if err != nil {
			return err
		}
		records, err := repo.ListByStatus(ctx, st)
		if err != nil {
			return fmt.Errorf("failed to list reconciliations: %w", err)
		}
		printReconciliations(os.Stdout, records)
		return nil

	case "run":
		aggregator, err := plaid.NewClient(cfg.Plaid.ClientID, cfg.Plaid.Secret, cfg.Plaid.Env)
		if err != nil {
			return err
		}
		payments, err := dwolla.NewClient(ctx, cfg.Dwolla.Key, cfg.Dwolla.Secret, cfg.Dwolla.Env)
		if err != nil {
			return err
		}

		start := time.Now()
		summary, err := linking.NewReconciler(repo, aggregator, payments, cfg.Reconciler.MaxAttempts).RunOnce(ctx)
		if summary != nil {
			printSummary(os.Stdout, summary)
		}
		if err != nil {
			return err
		}
		log.Printf("Reconciliation pass completed in %v", time.Since(start))
		return nil

	default:
		return errUsage
	}
}

func parseStatus(s string) (linking.ReconciliationStatus, error) {
	switch st := linking.ReconciliationStatus(s); st {
	case linking.StatusPending, linking.StatusResolved, linking.StatusAbandoned:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

func printReconciliations(w io.Writer, records []*linking.Reconciliation) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No reconciliations found")
		return
	}
	for _, rec := range records {
		fmt.Fprintf(w, "\n=== Reconciliation %s ===\n", rec.ID)
		fmt.Fprintf(w, "  User:        %s\n", rec.UserID)
		fmt.Fprintf(w, "  Failed step: %s\n", rec.FailedStep)
		fmt.Fprintf(w, "  Status:      %s (%d attempts)\n", rec.Status, rec.Attempts)
		fmt.Fprintf(w, "  Remaining:   %v\n", rec.Artifacts.Describe())
		if rec.LastError != "" {
			fmt.Fprintf(w, "  Last error:  %s\n", rec.LastError)
		}
		fmt.Fprintf(w, "  Created:     %s\n", rec.CreatedAt.Format(time.RFC3339))
	}
}

func printSummary(w io.Writer, s *linking.ReconcileSummary) {
	fmt.Fprintf(w, "Processed: %d\n", s.Processed)
	fmt.Fprintf(w, "Resolved:  %d\n", s.Resolved)
	fmt.Fprintf(w, "Abandoned: %d\n", s.Abandoned)
	fmt.Fprintf(w, "Failed:    %d\n", s.Failed)
}
