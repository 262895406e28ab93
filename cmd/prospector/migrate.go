package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the record store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd.Context(), a.cfg, true, a.logger)
			if err != nil {
				return err
			}
			a.logger.Info("schema is up to date", zap.String("driver", a.cfg.StoreDriver))
			return store.Close()
		},
	}
}
