package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "scanner",
		Short:         "EMA crossover + ADX signal scanner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "internal/config/config.yaml", "path to YAML config")

	root.AddCommand(runCmd(&configPath), onceCmd(&configPath), checkCmd(&configPath))
	return root
}

func runCmd(configPath *string) *cobra.Command {
	var skipChecks bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan continuously until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			srv := startMetrics(app)
			if srv != nil {
				defer srv.Close()
			}
			if !skipChecks {
				if _, err := app.scanner.Check(cmd.Context(), app.csv); err != nil {
					return fmt.Errorf("startup checks failed: %w", err)
				}
			}
			return app.run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "skip Telegram/journal readiness checks")
	return cmd
}

func onceCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single scan cycle and print the signals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			rep := app.scanner.RunCycle(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cycle %s: evaluated=%d insufficient=%d signals=%d errors=%d elapsed=%s\n",
				rep.ID, rep.Evaluated, rep.Insufficient, len(rep.Signals), rep.Errors, rep.Elapsed)
			for _, rec := range rep.Signals {
				fmt.Fprintf(out, "%s %s price=%.6f adx=%.2f\n", rec.Symbol, rec.Kind, rec.Price, rec.ADX)
			}
			return nil
		},
	}
}

func checkCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run startup readiness checks only",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			rep, err := app.scanner.Check(cmd.Context(), app.csv)
			fmt.Fprintf(cmd.OutOrStdout(), "telegram=%s journal=%s\n", rep.Telegram, rep.Journal)
			return err
		},
	}
}
