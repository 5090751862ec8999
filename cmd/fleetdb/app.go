package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/fleet-analytics/internal/config"
	"github.com/ukydev/fleet-analytics/internal/db"
	"github.com/ukydev/fleet-analytics/internal/logging"
	"go.mongodb.org/mongo-driver/mongo"
)

// app carries what every command shares. The Mongo client is opened on
// first use so commands that fail validation never dial.
type app struct {
	envFile string
	cfg     *config.Config
	log     *log.Logger
	client  *mongo.Client
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	return nil
}

func (a *app) database(ctx context.Context) (*mongo.Database, error) {
	if a.client == nil {
		client, err := db.ConnectMongo(ctx, a.cfg.MongoURI, a.cfg.MongoTimeout)
		if err != nil {
			return nil, err
		}
		a.client = client
		a.log.WithField("database", a.cfg.MongoDB).Debug("Connected to MongoDB")
	}
	return a.client.Database(a.cfg.MongoDB), nil
}

func (a *app) vehicles(database *mongo.Database) *db.MongoVehicleCollection {
	return &db.MongoVehicleCollection{Collection: database.Collection(a.cfg.VehiclesCollection)}
}

func (a *app) close() {
	if a.client == nil {
		return
	}
	if err := a.client.Disconnect(context.Background()); err != nil && a.log != nil {
		a.log.WithError(err).Warn("Disconnect from MongoDB")
	}
	a.client = nil
}

// execute runs root and releases the Mongo client afterwards, also when the
// command failed. Cobra skips post-run hooks after a RunE error.
func execute(ctx context.Context, a *app, root *cobra.Command) error {
	defer a.close()
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "fleetdb",
		Short: "Provision and report on the fleet MongoDB database",
		Long: `fleetdb manages the vehicles database: it creates the validated
vehicles collection and its indexes, prints the fleet reports, and loads
demo, telemetry history and live telemetry data.

Connection and collection names come from the environment, optionally
seeded from a .env file.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		newProvisionCmd(a),
		newReportCmd(a),
		newSeedCmd(a),
		newIngestCmd(a),
		newEvidenceCmd(a),
		newHistoryCmd(a),
		newAlertsCmd(a),
	)
	return root
}

func usageErr(format string, args ...interface{}) error {
	return fmt.Errorf("usage: "+format, args...)
}
