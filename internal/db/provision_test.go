package db

import (
	"context"
	"io"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-analytics/internal/schema"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type fakeDatabase struct {
	created map[string]*options.CreateCollectionOptions
}

func (f *fakeDatabase) CreateCollection(ctx context.Context, name string, opts ...*options.CreateCollectionOptions) error {
	if _, ok := f.created[name]; ok {
		return mongo.CommandError{Code: 48, Name: "NamespaceExists", Message: "Collection already exists."}
	}
	if f.created == nil {
		f.created = map[string]*options.CreateCollectionOptions{}
	}
	f.created[name] = opts[0]
	return nil
}

type fakeIndexes struct {
	models []mongo.IndexModel
	err    error
}

func (f *fakeIndexes) CreateMany(ctx context.Context, models []mongo.IndexModel, opts ...*options.CreateIndexesOptions) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.models = models
	return []string{"registration_1", "ownerId_1", "specs.range_km_1"}, nil
}

func quietLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestProvisioner_CreateVehicleCollection(t *testing.T) {
	database := &fakeDatabase{}
	p := &Provisioner{Database: database, Indexes: &fakeIndexes{}, Collection: "vehicles", Log: quietLogger()}

	require.NoError(t, p.CreateVehicleCollection(context.Background()))

	opts := database.created["vehicles"]
	require.NotNil(t, opts)
	assert.Equal(t, schema.Vehicle.Validator(), opts.Validator)
	require.NotNil(t, opts.ValidationLevel)
	assert.Equal(t, "moderate", *opts.ValidationLevel)
}

func TestProvisioner_SecondRunFails(t *testing.T) {
	p := &Provisioner{Database: &fakeDatabase{}, Indexes: &fakeIndexes{}, Collection: "vehicles", Log: quietLogger()}

	require.NoError(t, p.Provision(context.Background()))
	err := p.Provision(context.Background())
	assert.ErrorIs(t, err, ErrCollectionAlreadyExists)
}

func TestProvisioner_CreateIndexes(t *testing.T) {
	indexes := &fakeIndexes{}
	p := &Provisioner{Database: &fakeDatabase{}, Indexes: indexes, Collection: "vehicles", Log: quietLogger()}

	names, err := p.CreateIndexes(context.Background())
	require.NoError(t, err)
	assert.Len(t, names, 3)
	assert.Equal(t, schema.VehicleIndexes(), indexes.models)
}

func TestProvisioner_IndexBuildConflict(t *testing.T) {
	dup := mongo.CommandError{Code: 11000, Name: "DuplicateKey", Message: "E11000 duplicate key error collection: fleetdb.vehicles index: registration_1 dup key"}
	p := &Provisioner{Database: &fakeDatabase{}, Indexes: &fakeIndexes{err: dup}, Collection: "vehicles", Log: quietLogger()}

	_, err := p.CreateIndexes(context.Background())
	assert.ErrorIs(t, err, ErrIndexBuildConflict)
	assert.NotErrorIs(t, err, ErrDuplicateKey)
}
