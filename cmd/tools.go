package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/hackjudge/internal/app"
	"github.com/okian/hackjudge/internal/config"
	"github.com/okian/hackjudge/internal/domain/types"
	"github.com/okian/hackjudge/internal/simulate"
	"github.com/okian/hackjudge/pkg/logger"
)

func addRoundFlags(cmd *cobra.Command) {
	cmd.Flags().String("hackathon", "", "hackathon id")
	cmd.Flags().Int("round", 0, "round index")
	_ = cmd.MarkFlagRequired("hackathon")
}

func roundFlags(cmd *cobra.Command) (string, int, error) {
	id, err := cmd.Flags().GetString("hackathon")
	if err != nil {
		return "", 0, err
	}
	round, err := cmd.Flags().GetInt("round")
	if err != nil {
		return "", 0, err
	}
	return id, round, nil
}

// withOfflineService opens the configured sqlite store without the HTTP
// layer and runs fn against it.
func withOfflineService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.Service) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.StoreSQLite {
		return fmt.Errorf("%w (got %q)", ErrOfflineStore, cfg.StoreDriver)
	}
	if err := setupLogging(cmd.Context(), cfg, cmd.ErrOrStderr()); err != nil {
		return err
	}
	ctx := cmd.Context()
	svc := service.New(service.WithConfig(cfg))
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = svc.Shutdown(context.WithoutCancel(ctx)) }()
	return fn(ctx, svc)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRebuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Recomputes every aggregate of a round from the score ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, round, err := roundFlags(cmd)
			if err != nil {
				return err
			}
			return withOfflineService(cmd, func(ctx context.Context, svc *service.Service) error {
				n, err := svc.Engine().RebuildRound(ctx, id, round)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), types.RebuildResponse{HackathonID: id, RoundIndex: round, Enqueued: n})
			})
		},
	}
	addRoundFlags(cmd)
	return cmd
}

func newEligibilityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eligibility SUBJECT",
		Short: "Checks whether a participant or team may enter a round",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, round, err := roundFlags(cmd)
			if err != nil {
				return err
			}
			return withOfflineService(cmd, func(ctx context.Context, svc *service.Service) error {
				d, err := svc.Engine().IsEligible(ctx, id, round, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), types.EligibilityResponse{
					HackathonID: id,
					RoundIndex:  round,
					SubjectID:   args[0],
					Decision:    d,
				})
			})
		},
	}
	addRoundFlags(cmd)
	return cmd
}

func newSimulateCmd() *cobra.Command {
	def := simulate.NewConfig()
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Runs a full judging round against a live server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			cfg := simulate.NewConfig()
			cfg.BaseURL, _ = f.GetString("url")
			cfg.HackathonID, _ = f.GetString("hackathon")
			cfg.Teams, _ = f.GetInt("teams")
			cfg.TeamSize, _ = f.GetInt("team-size")
			cfg.Solo, _ = f.GetInt("solo")
			cfg.Judges, _ = f.GetInt("judges")
			cfg.Shortlist, _ = f.GetInt("shortlist")
			cfg.Workers, _ = f.GetInt("workers")
			cfg.Timeout, _ = f.GetDuration("timeout")
			cfg.RoundWindow, _ = f.GetDuration("window")
			cfg.Seed, _ = f.GetUint64("seed")
			cfg.Verbose, _ = f.GetBool("verbose")

			if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RoundWindow+10*time.Minute)
			defer cancel()
			stats, err := simulate.Run(ctx, cfg)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
	f := cmd.Flags()
	f.String("url", def.BaseURL, "base URL of the server")
	f.String("hackathon", "", "hackathon id (generated when empty)")
	f.Int("teams", def.Teams, "number of teams")
	f.Int("team-size", def.TeamSize, "members per team")
	f.Int("solo", def.Solo, "individual participants")
	f.Int("judges", def.Judges, "judges on the panel")
	f.Int("shortlist", def.Shortlist, "submissions to shortlist (top_n)")
	f.Int("workers", def.Workers, "concurrent HTTP workers")
	f.Duration("timeout", def.Timeout, "per-request timeout")
	f.Duration("window", def.RoundWindow, "how long round 0 stays open")
	f.Uint64("seed", def.Seed, "score generator seed")
	f.Bool("verbose", false, "log every step")
	return cmd
}
