package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hopeland/leasebot/internal/config"
	"github.com/hopeland/leasebot/internal/digest"
)

func digestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Owner digest of recent enquiries",
	}
	cmd.AddCommand(digestSendCmd())
	return cmd
}

func digestSendCmd() *cobra.Command {
	var window time.Duration
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Build the digest now and email it to the owners",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if window > 0 {
				cfg.DigestWindow = window
			}
			log := newLogger(cfg)

			enquiries, err := openEnquiryLog(cfg)
			if err != nil {
				return err
			}
			defer enquiries.Close()

			svc := newDigestService(cfg, enquiries, nil, log)
			if dryRun {
				report, err := svc.Build(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.Subject)
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), report.Text)
				return nil
			}

			report, err := svc.SendOnce(cmd.Context())
			if errors.Is(err, digest.ErrEmailDisabled) {
				fmt.Fprintf(cmd.OutOrStdout(), "digest not sent: email not configured (%d enquiries)\n", report.Count)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %q to %d owners\n", report.Subject, len(cfg.OwnerEmails))
			return nil
		},
	}
	cmd.Flags().DurationVar(&window, "window", 0, "Lookback window (defaults to DIGEST_WINDOW)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the digest instead of emailing it")
	return cmd
}
