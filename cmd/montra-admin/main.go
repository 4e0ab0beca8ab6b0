package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"montra/internal/backend"
	"montra/internal/cli"
	"montra/internal/config"
	"montra/internal/ledger"
	applog "montra/internal/log"
)

var (
	logger  *applog.Logger
	appCfg  *config.Config
	rootCmd = &cobra.Command{
		Use:   "montra-admin",
		Short: "Administrative tasks for a Montra deployment",
		Long: `montra-admin manages the Montra database and integrations: schema
migrations, system categories, demo data, Google Sheets authorization and
development tokens.

Configuration is read from the environment and an optional .env file.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCategoriesCmd())
	rootCmd.AddCommand(seedDemoCmd())
	rootCmd.AddCommand(sheetsAuthCmd())
	rootCmd.AddCommand(tokenCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		os.Setenv("LOG_LEVEL", level)
	}
	logger = cli.SetupLogger(applog.ComponentAdmin)
	appCfg = config.Load()
	return nil
}

// openStore opens the configured ledger. The admin commands only make sense
// against a persistent backend.
func openStore(ctx context.Context) (ledger.Store, error) {
	if appCfg.DataBackend != config.BackendSQLite {
		return nil, fmt.Errorf("DATA_BACKEND=%s: admin commands need the sqlite backend", appCfg.DataBackend)
	}
	bcfg, err := backend.FromAppConfig(appCfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).Open(ctx, bcfg)
}
