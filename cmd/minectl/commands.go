package main

import (
	"context"
	"fmt"
	"time"

	"tapminer/internal/catalog"
	"tapminer/internal/service"

	"github.com/spf13/cobra"
)

func newAccountCmd(e *env) *cobra.Command {
	account := &cobra.Command{
		Use:   "account",
		Short: "Inspect or create accounts",
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Print one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			st, err := e.store(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			cfg, _ := e.config()
			acc, err := service.NewAccountService(st, cfg.NewAccountSubscribed).Get(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd, acc)
		},
	}

	var username string
	create := &cobra.Command{
		Use:   "create <id>",
		Short: "Fetch or create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			st, err := e.store(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			cfg, _ := e.config()
			acc, created, err := service.NewAccountService(st, cfg.NewAccountSubscribed).FetchOrCreate(ctx, id, username)
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintln(cmd.ErrOrStderr(), "account already existed")
			}
			return printJSON(cmd, acc)
		},
	}
	create.Flags().StringVar(&username, "username", "", "display name")

	account.AddCommand(get, create)
	return account
}

func newTopCmd(e *env) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print the leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			st, err := e.store(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			cfg, _ := e.config()
			lb := service.NewLeaderboardService(st, catalog.Default(), nil, service.LeaderboardConfig{
				DefaultLimit: cfg.LeaderboardDefaultLimit,
				MaxLimit:     cfg.LeaderboardMaxLimit,
			})
			entries, err := lb.Top(ctx, limit)
			if err != nil {
				return err
			}
			for _, en := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %-20d %-32s %12d  L%d %s\n",
					en.Rank, en.ID, en.Username, en.Balance, en.Level, en.Title)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of accounts")
	return cmd
}

func newReferralCmd(e *env) *cobra.Command {
	referral := &cobra.Command{
		Use:   "referral",
		Short: "Referral operations",
	}

	var username string
	claim := &cobra.Command{
		Use:   "claim <referrer-id> <referred-id>",
		Short: "Replay a referral claim through the engine (idempotent)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			referrerID, err := parseID(args[0])
			if err != nil {
				return err
			}
			referredID, err := parseID(args[1])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			st, err := e.store(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			cfg, _ := e.config()
			svc := service.NewReferralService(st, service.ReferralConfig{
				Bonus:                cfg.ReferralBonus,
				NewAccountSubscribed: cfg.NewAccountSubscribed,
				BotUsername:          cfg.BotUsername,
				WebAppShortName:      cfg.WebAppShortName,
			})
			res, err := svc.Claim(ctx, referrerID, referredID, username)
			if err != nil {
				return fmt.Errorf("%s: %w", service.Code(err), err)
			}
			return printJSON(cmd, res)
		},
	}
	claim.Flags().StringVar(&username, "username", "", "username for a referred account created by this claim")

	referral.AddCommand(claim)
	return referral
}

func newTokenCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "token <id>",
		Short: "Issue a session token for an account (testing)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cfg, err := e.config()
			if err != nil {
				return err
			}
			service.InitJWT(cfg.JWTSecret)
			token, err := service.GenerateJWT(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}
