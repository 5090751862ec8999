package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-analytics/internal/db"
	"github.com/ukydev/fleet-analytics/internal/seed"
	"go.mongodb.org/mongo-driver/bson"
)

func newSeedCmd(a *app) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the demo owner, vehicle, telemetry update and incident",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			database, err := a.database(ctx)
			if err != nil {
				return err
			}
			// Documents are deleted rather than the collections dropped so
			// the vehicles validator and indexes survive.
			if reset {
				for _, coll := range []string{a.cfg.UsersCollection, a.cfg.VehiclesCollection} {
					res, err := database.Collection(coll).DeleteMany(ctx, bson.M{})
					if err != nil {
						return db.Classify(err)
					}
					a.log.WithFields(log.Fields{"collection": coll, "deleted": res.DeletedCount}).Info("Reset collection")
				}
			}

			res, err := seed.Demo(ctx,
				&db.MongoUserCollection{Collection: database.Collection(a.cfg.UsersCollection)},
				a.vehicles(database),
				a.log)
			if err != nil {
				return err
			}
			a.log.WithField("vehicle_id", res.Vehicle.ID.Hex()).Info("Seed complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "delete existing users and vehicles first")
	return cmd
}
