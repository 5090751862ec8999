package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/fleet-analytics/internal/db"
	"github.com/ukydev/fleet-analytics/internal/models"
	"github.com/ukydev/fleet-analytics/internal/schema"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ExplainLimit caps the explained find, matching the dashboard query.
const ExplainLimit = 100

// ErrEmpty is returned when the collection holds no samples.
var ErrEmpty = errors.New("telemetry history is empty")

// Querier is the read side of *mongo.Collection used by Store.
type Querier interface {
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
}

// Commander runs database commands. *mongo.Database implements it.
type Commander interface {
	RunCommand(ctx context.Context, runCommand interface{}, opts ...*options.RunCmdOptions) *mongo.SingleResult
}

// Store queries one telemetry history collection.
type Store struct {
	Collection string
	Query      Querier
	Indexes    db.IndexCreator
	Commands   Commander
}

// NewStore returns a Store on database's collection.
func NewStore(database *mongo.Database, collection string) *Store {
	coll := database.Collection(collection)
	return &Store{Collection: collection, Query: coll, Indexes: coll.Indexes(), Commands: database}
}

// EnsureIndex creates the {vehicleId: 1, timestamp: -1} index. It is a
// no-op on the server when the index already exists.
func (s *Store) EnsureIndex(ctx context.Context) ([]string, error) {
	names, err := s.Indexes.CreateMany(ctx, schema.TelemetryHistoryIndexes())
	if err != nil {
		return nil, fmt.Errorf("create telemetry history index: %w", db.Classify(err))
	}
	return names, nil
}

// SampleVehicleID returns the vehicleId of an arbitrary stored sample.
func (s *Store) SampleVehicleID(ctx context.Context) (string, error) {
	var sample models.TelemetrySample
	opts := options.FindOne().SetProjection(bson.M{"vehicleId": 1})
	err := s.Query.FindOne(ctx, bson.M{}, opts).Decode(&sample)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrEmpty
	}
	if err != nil {
		return "", fmt.Errorf("sample vehicle id: %w", db.ClassifyQuery(err))
	}
	return sample.VehicleID, nil
}

// RecentFilter selects samples since the given time, optionally for one
// vehicle.
func RecentFilter(vehicleID string, since time.Time) bson.D {
	filter := bson.D{}
	if vehicleID != "" {
		filter = append(filter, bson.E{Key: "vehicleId", Value: vehicleID})
	}
	return append(filter, bson.E{Key: "timestamp", Value: bson.M{"$gte": since}})
}

// ExplainCommand builds the explain of a find on filter, newest first,
// limited to ExplainLimit documents.
func ExplainCommand(collection string, filter interface{}) bson.D {
	return bson.D{
		{Key: "explain", Value: bson.D{
			{Key: "find", Value: collection},
			{Key: "filter", Value: filter},
			{Key: "sort", Value: bson.D{{Key: "timestamp", Value: -1}}},
			{Key: "limit", Value: ExplainLimit},
		}},
		{Key: "verbosity", Value: "queryPlanner"},
	}
}

// Explain returns the server's query plan for the find described by
// ExplainCommand.
func (s *Store) Explain(ctx context.Context, filter interface{}) (bson.M, error) {
	var plan bson.M
	if err := s.Commands.RunCommand(ctx, ExplainCommand(s.Collection, filter)).Decode(&plan); err != nil {
		return nil, fmt.Errorf("explain: %w", db.ClassifyQuery(err))
	}
	return plan, nil
}

// PlanStages lists the stages of the winning plan from the root down, e.g.
// [LIMIT FETCH IXSCAN] or [SORT COLLSCAN].
func PlanStages(plan bson.M) []string {
	planner, _ := asMap(plan["queryPlanner"])
	stage, _ := asMap(planner["winningPlan"])
	// Newer servers nest the classic plan under queryPlan.
	if nested, ok := asMap(stage["queryPlan"]); ok {
		stage = nested
	}

	var stages []string
	for stage != nil {
		name, _ := stage["stage"].(string)
		if name == "" {
			break
		}
		stages = append(stages, name)
		stage, _ = asMap(stage["inputStage"])
	}
	return stages
}

func asMap(v interface{}) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case bson.D:
		return m.Map(), true
	}
	return nil, false
}

// EnergyByCityPipeline totals energyConsumed per city since the given
// time, highest total first.
func EnergyByCityPipeline(since time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"timestamp": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$location.city"},
			{Key: "totalEnergy", Value: bson.M{"$sum": "$energyConsumed"}},
			{Key: "avgEnergy", Value: bson.M{"$avg": "$energyConsumed"}},
			{Key: "count", Value: bson.M{"$sum": 1}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "totalEnergy", Value: -1}}}},
	}
}

// EnergyByCity runs EnergyByCityPipeline.
func (s *Store) EnergyByCity(ctx context.Context, since time.Time) ([]models.CityEnergy, error) {
	cursor, err := s.Query.Aggregate(ctx, EnergyByCityPipeline(since))
	if err != nil {
		return nil, fmt.Errorf("energy by city: %w", db.ClassifyQuery(err))
	}
	defer cursor.Close(ctx)

	rows := []models.CityEnergy{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("energy by city: %w", db.ClassifyQuery(err))
	}
	return rows, nil
}
