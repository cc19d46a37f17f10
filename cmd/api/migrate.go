package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply Postgres migrations or ensure Mongo indexes, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := newApp(ctx, v)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(ctx))

			if err := a.openStore(ctx, true); err != nil {
				return err
			}
			a.log.Infow("schema up to date", "driver", a.cfg.StoreDriver)
			return nil
		},
	}
}
