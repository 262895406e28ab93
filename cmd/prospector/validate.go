package main

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/prospector/internal/entity"
)

func validateCmd(a *app) *cobra.Command {
	var structural bool
	cmd := &cobra.Command{
		Use:   "validate <url>...",
		Short: "Classify the web presence of one or more sites",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger := a.cfg, a.logger

			rdb, err := connectRedis(ctx, cfg)
			if err != nil {
				logger.Debug("running without verdict cache", zap.Error(err))
				rdb = nil
			} else {
				defer rdb.Close()
			}
			svc := newServices(cfg, nil, rdb, logger, nil)

			verdicts := make([]entity.SiteVerdict, 0, len(args))
			for _, raw := range args {
				if structural {
					verdicts = append(verdicts, svc.validator.Classify(raw))
					continue
				}
				verdict, err := svc.validator.ValidateURL(ctx, raw)
				if err != nil {
					return err
				}
				verdicts = append(verdicts, verdict)
			}
			renderVerdicts(cmd.OutOrStdout(), args, verdicts)
			return nil
		},
	}
	cmd.Flags().BoolVar(&structural, "structural", false, "skip the browser inspection")
	return cmd
}

func renderVerdicts(w io.Writer, urls []string, verdicts []entity.SiteVerdict) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"URL", "Category", "Reason", "Adequate", "Last signal"})
	for i, v := range verdicts {
		tw.AppendRow(table.Row{urls[i], v.Category, v.Reason, v.IsAdequate, v.LastSignalDate})
	}
	tw.Render()
}
