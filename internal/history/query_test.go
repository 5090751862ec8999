package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-analytics/internal/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type fakeQuerier struct {
	pipeline interface{}
	docs     []interface{}
	aggErr   error
	one      interface{}
	oneErr   error
}

func (f *fakeQuerier) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error) {
	f.pipeline = pipeline
	if f.aggErr != nil {
		return nil, f.aggErr
	}
	return mongo.NewCursorFromDocuments(f.docs, nil, nil)
}

func (f *fakeQuerier) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	doc := f.one
	if doc == nil {
		doc = bson.D{}
	}
	return mongo.NewSingleResultFromDocument(doc, f.oneErr, nil)
}

type fakeCommander struct {
	command interface{}
	reply   bson.D
}

func (f *fakeCommander) RunCommand(ctx context.Context, runCommand interface{}, opts ...*options.RunCmdOptions) *mongo.SingleResult {
	f.command = runCommand
	return mongo.NewSingleResultFromDocument(f.reply, nil, nil)
}

func TestEnergyByCityPipeline(t *testing.T) {
	since := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	p := EnergyByCityPipeline(since)

	require.Len(t, p, 3)
	assert.Equal(t, bson.M{"timestamp": bson.M{"$gte": since}}, p[0][0].Value)
	group := p[1][0].Value.(bson.D)
	assert.Equal(t, "$location.city", group[0].Value)
	assert.Equal(t, bson.M{"$sum": 1}, group[3].Value)
	assert.Equal(t, bson.D{{Key: "totalEnergy", Value: -1}}, p[2][0].Value)
}

func TestStore_EnergyByCity(t *testing.T) {
	q := &fakeQuerier{docs: []interface{}{
		bson.D{{Key: "_id", Value: "Paris"}, {Key: "totalEnergy", Value: 12.5}, {Key: "avgEnergy", Value: 6.25}, {Key: "count", Value: int32(2)}},
	}}
	s := &Store{Collection: "telemetry_history", Query: q}

	rows, err := s.EnergyByCity(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Paris", rows[0].City)
	assert.Equal(t, 2, rows[0].Count)

	q.aggErr = mongo.CommandError{Code: 2, Message: "bad"}
	_, err = s.EnergyByCity(context.Background(), time.Now())
	assert.ErrorIs(t, err, db.ErrQueryExecution)
}

func TestStore_SampleVehicleID(t *testing.T) {
	q := &fakeQuerier{one: bson.D{{Key: "vehicleId", Value: "VEH-0042"}}}
	s := &Store{Query: q}

	id, err := s.SampleVehicleID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "VEH-0042", id)

	q.oneErr = mongo.ErrNoDocuments
	_, err = s.SampleVehicleID(context.Background())
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRecentFilter(t *testing.T) {
	since := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, bson.D{
		{Key: "vehicleId", Value: "VEH-0001"},
		{Key: "timestamp", Value: bson.M{"$gte": since}},
	}, RecentFilter("VEH-0001", since))
	assert.Len(t, RecentFilter("", since), 1)
}

func TestStore_Explain(t *testing.T) {
	cmd := &fakeCommander{reply: bson.D{{Key: "queryPlanner", Value: bson.D{
		{Key: "winningPlan", Value: bson.D{
			{Key: "stage", Value: "LIMIT"},
			{Key: "inputStage", Value: bson.D{
				{Key: "stage", Value: "FETCH"},
				{Key: "inputStage", Value: bson.D{{Key: "stage", Value: "IXSCAN"}}},
			}},
		}},
	}}}}
	s := &Store{Collection: "telemetry_history", Commands: cmd}
	filter := RecentFilter("VEH-0001", time.Now())

	plan, err := s.Explain(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, []string{"LIMIT", "FETCH", "IXSCAN"}, PlanStages(plan))
	assert.Equal(t, ExplainCommand("telemetry_history", filter), cmd.command)
}

func TestExplainCommand(t *testing.T) {
	c := ExplainCommand("telemetry_history", bson.D{})
	find := c[0].Value.(bson.D)
	assert.Equal(t, "telemetry_history", find[0].Value)
	assert.Equal(t, bson.D{{Key: "timestamp", Value: -1}}, find[2].Value)
	assert.Equal(t, ExplainLimit, find[3].Value)
}

func TestPlanStages_Unknown(t *testing.T) {
	assert.Empty(t, PlanStages(bson.M{}))
}

func TestStore_EnsureIndex(t *testing.T) {
	idx := &recordingIndexes{}
	s := &Store{Indexes: idx}

	_, err := s.EnsureIndex(context.Background())
	require.NoError(t, err)
	require.Len(t, idx.models, 1)
	assert.Equal(t, bson.D{{Key: "vehicleId", Value: 1}, {Key: "timestamp", Value: -1}}, idx.models[0].Keys)
}

type recordingIndexes struct {
	models []mongo.IndexModel
}

func (r *recordingIndexes) CreateMany(ctx context.Context, models []mongo.IndexModel, opts ...*options.CreateIndexesOptions) ([]string, error) {
	r.models = models
	return []string{"vehicleId_1_timestamp_-1"}, nil
}
