package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"montra/internal/services"
)

func seedCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-categories",
		Short: "Create or refresh the system categories",
		Long: `Create the missing system categories and refresh icon and color of the
existing ones. Safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			loc, err := appCfg.Location()
			if err != nil {
				return err
			}
			svc := services.NewLedgerService(store, services.Options{Logger: logger, Location: loc})
			res, err := svc.SeedSystemCategories(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "system categories: %d created, %d updated\n", res.Created, res.Updated)
			return nil
		},
	}
}

func seedDemoCmd() *cobra.Command {
	var (
		userID int64
		months int
	)
	cmd := &cobra.Command{
		Use:   "seed-demo",
		Short: "Fill a user's ledger with demo transactions and budgets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user must be a positive user id")
			}
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			loc, err := appCfg.Location()
			if err != nil {
				return err
			}
			svc := services.NewLedgerService(store, services.Options{Logger: logger, Location: loc})
			if _, err := svc.SeedSystemCategories(ctx); err != nil {
				return err
			}

			var bar *progressbar.ProgressBar
			res, err := svc.SeedDemoData(ctx, userID, services.DemoOptions{
				Months: months,
				Progress: func(done, total int) {
					if bar == nil {
						bar = progressbar.NewOptions(total,
							progressbar.OptionSetWriter(cmd.ErrOrStderr()),
							progressbar.OptionShowCount(),
							progressbar.OptionSetWidth(40),
							progressbar.OptionSetDescription("Seeding demo data"),
							progressbar.OptionClearOnFinish())
					}
					_ = bar.Set(done)
				},
			})
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d: %d transactions, %d budgets\n", userID, res.Transactions, res.Budgets)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id to seed (required)")
	cmd.Flags().IntVar(&months, "months", 6, "months of history to generate")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
