package main

import (
	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-analytics/internal/db"
)

func newProvisionCmd(a *app) *cobra.Command {
	var indexesOnly bool
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create the vehicles collection with its validator and indexes",
		Long: `provision creates the vehicles collection with the $jsonSchema validator
at the moderate level, then the unique registration, ownerId and partial
specs.range_km indexes. Running it against an existing collection fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			database, err := a.database(ctx)
			if err != nil {
				return err
			}
			p := db.NewProvisioner(database, a.cfg.VehiclesCollection, a.log)
			if indexesOnly {
				_, err := p.CreateIndexes(ctx)
				return err
			}
			return p.Provision(ctx)
		},
	}
	cmd.Flags().BoolVar(&indexesOnly, "indexes-only", false, "only build the indexes on an existing collection")
	return cmd
}
