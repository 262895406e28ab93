package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/redis/go-redis/v9"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	redis_adapter "github.com/user/prospector/internal/adapter/redis"
	"github.com/user/prospector/internal/entity"
	"github.com/user/prospector/internal/repository"
	"github.com/user/prospector/internal/usecase"
	"github.com/user/prospector/pkg/config"
)

func harvestCmd(a *app) *cobra.Command {
	var (
		req     entity.HarvestRequest
		noCache bool
	)
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Run one harvest in the foreground and store its prospects",
		Example: `  prospector harvest --role "plombier" --area "Paris 11" --area "Paris 12" --cap 20
  prospector harvest --role "coiffeur" --area "Lyon 3,Lyon 7"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, logger := a.cfg, a.logger

			valid, err := usecase.ValidateHarvestRequest(req, cfg.MaxAreas, cfg.MaxPerArea)
			if err != nil {
				return err
			}

			store, err := openStore(ctx, cfg, cfg.StoreDriver == "sqlite", logger)
			if err != nil {
				return err
			}
			defer store.Close()

			var (
				rdb  *redis.Client
				seen repository.SeenRepository
			)
			if !noCache {
				if rdb, err = connectRedis(ctx, cfg); err != nil {
					logger.Warn("running without verdict and seen caches", zap.Error(err))
					rdb = nil
				} else {
					defer rdb.Close()
					seen = redis_adapter.NewSeenRepo(rdb)
				}
			}

			svc := newServices(cfg, store, rdb, logger, nil)
			runner := usecase.NewHarvestService(svc.harvester, store, seen, config.Hours(cfg.SeenTTLHours), logger)

			out := cmd.OutOrStdout()
			bar := newAreaBar(out, len(valid.Areas))
			report, err := runner.Run(ctx, valid, func(p entity.HarvestProgress) {
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] kept %d/%d", p.Area, p.Kept, p.Found))
				_ = bar.Add(1)
			})
			_ = bar.Finish()
			if report != nil {
				renderReport(out, report)
			}
			if err != nil && ctx.Err() != nil {
				return fmt.Errorf("harvest interrupted: %w", err)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&req.RoleDescription, "role", "", "trade or business role to search for")
	cmd.Flags().StringSliceVar(&req.Areas, "area", nil, "area to search (repeatable or comma separated)")
	cmd.Flags().IntVar(&req.PerAreaCap, "cap", 0, "maximum results per area (default MAX_PER_AREA)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "do not use redis for verdict and seen caches")
	_ = cmd.MarkFlagRequired("role")
	_ = cmd.MarkFlagRequired("area")
	return cmd
}

func newAreaBar(w io.Writer, areas int) *progressbar.ProgressBar {
	return progressbar.NewOptions(areas,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("[cyan][bold]Harvesting areas...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
}

func renderReport(w io.Writer, report *entity.HarvestReport) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(fmt.Sprintf("Harvest: %s", report.RoleDescription))
	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Areas processed", len(report.AreasProcessed)},
		{"Areas failed", len(report.AreasFailed)},
		{"Items found", report.TotalFound},
		{"Prospects kept", report.TotalKept},
		{"Saved", report.TotalSaved},
		{"Duplicates", report.TotalDuplicates},
		{"Save failures", report.TotalSaveFailed},
	})
	if len(report.AreasFailed) > 0 {
		tw.AppendFooter(table.Row{"Failed areas", strings.Join(report.AreasFailed, ", ")})
	}
	tw.Render()
}
