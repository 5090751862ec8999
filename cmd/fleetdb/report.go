package main

import (
	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-analytics/internal/cache"
	"github.com/ukydev/fleet-analytics/internal/report"
)

func newReportCmd(a *app) *cobra.Command {
	opts := report.DefaultOptions()
	var noCache bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the battery, maintenance and top-owner reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			database, err := a.database(ctx)
			if err != nil {
				return err
			}
			var reporter report.Reporter = report.NewMongoReporter(database, a.cfg.VehiclesCollection, a.cfg.UsersCollection)

			if a.cfg.RedisURL != "" && !noCache {
				store, err := cache.NewRedisStore(ctx, a.cfg.RedisURL)
				if err != nil {
					a.log.WithError(err).Warn("Report cache disabled")
				} else {
					defer store.Close()
					reporter = report.NewCached(reporter, store, a.cfg.ReportCacheTTL, a.log)
				}
			}
			return report.Run(ctx, reporter, cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.IncidentType, "incident-type", opts.IncidentType, "incident type of the maintenance report")
	cmd.Flags().IntVar(&opts.TopOwners, "top", opts.TopOwners, "number of owners in the ranking")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the Redis report cache")
	return cmd
}
