package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/globalan/gan-forms-cloud-functions/internal/account"
	"github.com/globalan/gan-forms-cloud-functions/internal/bootstrap"
	"github.com/globalan/gan-forms-cloud-functions/internal/config"
	"github.com/globalan/gan-forms-cloud-functions/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		out        string
		reconciler *account.Reconciler
	)

	root := &cobra.Command{
		Use:          "reconcile",
		Short:        "Inspect and clean up identities orphaned by failed account creation",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if out != "text" && out != "json" {
				return fmt.Errorf("unsupported output format %q (json|text)", out)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			logger := logging.New(os.Stderr, "reconcile")
			adapters, err := bootstrap.Init(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("adapter init error: %w", err)
			}
			reconciler = account.NewReconciler(adapters.Identities, adapters.Reconciliations, logger)
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return bootstrap.Close()
		},
	}
	root.PersistentFlags().StringVar(&out, "out", "text", "Output format: json|text")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List unresolved reconciliation records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pending, err := reconciler.Pending(cmd.Context())
			if err != nil {
				return err
			}
			if out == "json" {
				return printJSON(cmd, pending)
			}
			w := cmd.OutOrStdout()
			if len(pending) == 0 {
				fmt.Fprintln(w, "no pending records")
				return nil
			}
			for _, rec := range pending {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", rec.ID, rec.IdentityID, rec.Email,
					rec.CreatedAt.Format(time.RFC3339), rec.Reason)
			}
			return nil
		},
	}

	retryCmd := &cobra.Command{
		Use:   "retry",
		Short: "Delete orphaned identities and mark their records resolved",
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := reconciler.Retry(cmd.Context())
			if err != nil {
				return err
			}
			if out == "json" {
				failed := make(map[string]string, len(report.Failed))
				for id, ferr := range report.Failed {
					failed[id] = ferr.Error()
				}
				if err := printJSON(cmd, map[string]any{"resolved": report.Resolved, "failed": failed}); err != nil {
					return err
				}
			} else {
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "resolved=%d failed=%d\n", len(report.Resolved), len(report.Failed))
				for id, ferr := range report.Failed {
					fmt.Fprintf(w, "%s\t%v\n", id, ferr)
				}
			}
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d records could not be resolved", len(report.Failed))
			}
			return nil
		},
	}

	root.AddCommand(listCmd, retryCmd)

	return root
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
