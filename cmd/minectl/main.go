// minectl is the operator CLI: migrations, account inspection and replaying
// referral claims that an upstream webhook lost.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"tapminer/internal/config"
	"tapminer/internal/db"
	"tapminer/internal/logger"
	"tapminer/internal/migrations"
	"tapminer/internal/store"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env is resolved lazily so `minectl --help` works without configuration.
type env struct {
	cfg *config.Config
}

func (e *env) config() (*config.Config, error) {
	if e.cfg != nil {
		return e.cfg, nil
	}
	_ = godotenv.Load()
	cfg, err := config.Parse()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	e.cfg = cfg
	return cfg, nil
}

func (e *env) store(ctx context.Context) (store.Store, error) {
	cfg, err := e.config()
	if err != nil {
		return nil, err
	}
	return db.OpenStore(ctx, cfg, false)
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:          "minectl",
		Short:        "Tap Miner operator tool",
		SilenceUsage: true,
	}
	root.AddCommand(
		newMigrateCmd(e),
		newAccountCmd(e),
		newTopCmd(e),
		newReferralCmd(e),
		newTokenCmd(e),
	)
	return root
}

func newMigrateCmd(e *env) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				names, err := migrations.Names()
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			}

			cfg, err := e.config()
			if err != nil {
				return err
			}
			if cfg.StoreDriver != config.DriverPostgres {
				fmt.Fprintln(cmd.OutOrStdout(), "sqlite schema is created on open; nothing to do")
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: 2})
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := migrations.Apply(ctx, pool)
			for _, n := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "applied", n)
			}
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "up to date")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list migration files without connecting")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid account id %q", s)
	}
	return id, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
