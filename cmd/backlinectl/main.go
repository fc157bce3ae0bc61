package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/backline-erp/backline/internal/app"
	"github.com/backline-erp/backline/internal/balances"
	"github.com/backline-erp/backline/internal/ledger"
	"github.com/backline-erp/backline/internal/platform/db"
	"github.com/backline-erp/backline/jobs"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "backlinectl",
		Short: "Operational tooling for the Backline ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRebuildCommand())
	rootCmd.AddCommand(newVerifyCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRebuildCommand() *cobra.Command {
	var (
		productID int64
		inline    bool
	)
	cmd := &cobra.Command{
		Use:   "rebuild-snapshots",
		Short: "Recompute stock snapshots from ledger history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if !inline {
				client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
				defer func() { _ = client.Close() }()
				if err := client.EnqueueSnapshotRebuild(ctx, productID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "rebuild enqueued")
				return nil
			}

			svc, pool, err := balanceService(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			if productID > 0 {
				err = svc.Rebuild(ctx, productID)
			} else {
				err = svc.RebuildAll(ctx)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rebuild completed")
			return nil
		},
	}
	cmd.Flags().Int64Var(&productID, "product", 0, "product id to rebuild, 0 means all")
	cmd.Flags().BoolVar(&inline, "inline", false, "run against the database instead of enqueuing")
	return cmd
}

func newVerifyCommand() *cobra.Command {
	var (
		date      string
		tolerance string
		inline    bool
	)
	cmd := &cobra.Command{
		Use:   "verify-ledger",
		Short: "Replay the ledger and report snapshot drift",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if !inline {
				client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
				defer func() { _ = client.Close() }()
				if err := client.EnqueueLedgerVerify(ctx, date, tolerance); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "verify enqueued")
				return nil
			}

			at := time.Now().UTC()
			if date != "" {
				at, err = time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
				}
			}
			tol := decimal.Zero
			if tolerance != "" {
				tol, err = decimal.NewFromString(tolerance)
				if err != nil {
					return fmt.Errorf("tolerance must be a number: %w", err)
				}
			}

			svc, pool, err := balanceService(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			ids, err := ledger.NewRepository(pool).ProductIDs(ctx)
			if err != nil {
				return err
			}
			drifted := 0
			for _, id := range ids {
				res, err := svc.Verify(ctx, id, at, tol)
				if err != nil {
					drifted++
					fmt.Fprintf(cmd.OutOrStdout(), "product %d: qty drift %s, value drift %s\n",
						id, res.QtyDrift, res.ValueDrift)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "verified %d products, %d drifted\n", len(ids), drifted)
			if drifted > 0 {
				return fmt.Errorf("%d products drifted", drifted)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "verify as of this date (YYYY-MM-DD), empty means today")
	cmd.Flags().StringVar(&tolerance, "tolerance", "0.000001", "maximum allowed drift")
	cmd.Flags().BoolVar(&inline, "inline", false, "run against the database instead of enqueuing")
	return cmd
}

func balanceService(ctx context.Context, cfg *app.Config) (*balances.Service, *pgxpool.Pool, error) {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, nil, err
	}
	logger := app.NewLogger(cfg)
	svc := balances.NewService(balances.NewRepository(pool), ledger.NewRepository(pool), logger)
	return svc, pool, nil
}
