package db

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-analytics/internal/schema"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionCreator is the part of *mongo.Database the provisioner needs.
type CollectionCreator interface {
	CreateCollection(ctx context.Context, name string, opts ...*options.CreateCollectionOptions) error
}

// IndexCreator is satisfied by mongo.IndexView.
type IndexCreator interface {
	CreateMany(ctx context.Context, models []mongo.IndexModel, opts ...*options.CreateIndexesOptions) ([]string, error)
}

// Provisioner creates the vehicles collection with its validator and indexes.
// It does not check for an existing collection: a second run fails with
// ErrCollectionAlreadyExists.
type Provisioner struct {
	Database   CollectionCreator
	Indexes    IndexCreator
	Collection string
	Log        log.FieldLogger
}

// NewProvisioner provisions the named collection of database.
func NewProvisioner(database *mongo.Database, collection string, logger log.FieldLogger) *Provisioner {
	return &Provisioner{
		Database:   database,
		Indexes:    database.Collection(collection).Indexes(),
		Collection: collection,
		Log:        logger,
	}
}

// CreateVehicleCollection creates the collection with the vehicle validator
// at the moderate validation level.
func (p *Provisioner) CreateVehicleCollection(ctx context.Context) error {
	opts := options.CreateCollection().
		SetValidator(schema.Vehicle.Validator()).
		SetValidationLevel(schema.ValidationLevelModerate)

	if err := p.Database.CreateCollection(ctx, p.Collection, opts); err != nil {
		return fmt.Errorf("create collection %s: %w", p.Collection, Classify(err))
	}
	p.logger().WithField("collection", p.Collection).Info("Created collection with validator")
	return nil
}

// CreateIndexes builds the unique registration, ownerId and partial
// specs.range_km indexes.
func (p *Provisioner) CreateIndexes(ctx context.Context) ([]string, error) {
	names, err := p.Indexes.CreateMany(ctx, schema.VehicleIndexes())
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("create indexes on %s: %w", p.Collection, wrap(ErrIndexBuildConflict, err))
		}
		return nil, fmt.Errorf("create indexes on %s: %w", p.Collection, Classify(err))
	}
	p.logger().WithFields(log.Fields{
		"collection": p.Collection,
		"indexes":    names,
	}).Info("Created indexes")
	return names, nil
}

// Provision runs CreateVehicleCollection then CreateIndexes.
func (p *Provisioner) Provision(ctx context.Context) error {
	if err := p.CreateVehicleCollection(ctx); err != nil {
		return err
	}
	_, err := p.CreateIndexes(ctx)
	return err
}

func (p *Provisioner) logger() log.FieldLogger {
	if p.Log == nil {
		return log.StandardLogger()
	}
	return p.Log
}
