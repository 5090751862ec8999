package report

import (
	"context"
	"fmt"

	"github.com/ukydev/fleet-analytics/internal/db"
	"github.com/ukydev/fleet-analytics/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Aggregator is the part of *mongo.Collection the reports use.
type Aggregator interface {
	Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
}

// MongoReporter runs the reports against the vehicles collection, joining
// owners from UsersCollection.
type MongoReporter struct {
	Vehicles        Aggregator
	UsersCollection string
}

// NewMongoReporter reports on database's vehicles and users collections.
func NewMongoReporter(database *mongo.Database, vehicles, users string) *MongoReporter {
	return &MongoReporter{Vehicles: database.Collection(vehicles), UsersCollection: users}
}

// BatteryAverageByBrand averages telemetry.batteryPercent per make. Vehicles
// without a battery reading are left out of both sums and counts.
func (r *MongoReporter) BatteryAverageByBrand(ctx context.Context) ([]models.BrandBattery, error) {
	rows, err := aggregate[models.BrandBattery](ctx, r.Vehicles, BatteryAverageByBrandPipeline())
	if err != nil {
		return nil, fmt.Errorf("battery average by brand: %w", err)
	}
	return rows, nil
}

// MaintenanceAlerts returns one row per incident of the given type.
func (r *MongoReporter) MaintenanceAlerts(ctx context.Context, incidentType string) ([]models.MaintenanceAlert, error) {
	rows, err := aggregate[models.MaintenanceAlert](ctx, r.Vehicles, MaintenanceAlertsPipeline(incidentType, r.UsersCollection))
	if err != nil {
		return nil, fmt.Errorf("maintenance alerts %q: %w", incidentType, err)
	}
	return rows, nil
}

// TopOwners returns the limit owners with the most vehicles.
func (r *MongoReporter) TopOwners(ctx context.Context, limit int) ([]models.OwnerRanking, error) {
	rows, err := aggregate[models.OwnerRanking](ctx, r.Vehicles, TopOwnersPipeline(limit, r.UsersCollection))
	if err != nil {
		return nil, fmt.Errorf("top owners: %w", err)
	}
	return rows, nil
}

func aggregate[T any](ctx context.Context, coll Aggregator, pipeline mongo.Pipeline) ([]T, error) {
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, db.ClassifyQuery(err)
	}
	defer cursor.Close(ctx)

	rows := []T{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, db.ClassifyQuery(err)
	}
	return rows, nil
}

// BatteryAverageByBrandPipeline groups vehicles with a battery reading by
// make. Rows are sorted by brand.
func BatteryAverageByBrandPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"telemetry.batteryPercent": bson.M{"$exists": true}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$make"},
			{Key: "avgBattery", Value: bson.M{"$avg": "$telemetry.batteryPercent"}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "brand", Value: "$_id"},
			{Key: "avgBattery", Value: 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "brand", Value: 1}}}},
	}
}

// MaintenanceAlertsPipeline unwinds incidents, keeps those of incidentType
// and left-joins the owner's name.
func MaintenanceAlertsPipeline(incidentType, users string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$incidents"}},
		{{Key: "$match", Value: bson.M{"incidents.type": incidentType}}},
		lookupOwner(users, "ownerId"),
		unwindOwner(),
		{{Key: "$project", Value: bson.D{
			{Key: "registration", Value: 1},
			{Key: "brand", Value: "$make"},
			{Key: "model", Value: 1},
			{Key: "incident", Value: "$incidents"},
			{Key: "ownerName", Value: "$owner.name"},
		}}},
	}
}

// TopOwnersPipeline counts vehicles per owner and keeps the first limit by
// count, ties broken by ownerId ascending.
func TopOwnersPipeline(limit int, users string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$ownerId"},
			{Key: "vehicleCount", Value: bson.M{"$sum": 1}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "vehicleCount", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
		lookupOwner(users, "_id"),
		unwindOwner(),
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "ownerId", Value: "$_id"},
			{Key: "ownerName", Value: "$owner.name"},
			{Key: "vehicleCount", Value: 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "vehicleCount", Value: -1}, {Key: "ownerId", Value: 1}}}},
	}
}

func lookupOwner(users, localField string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: users},
		{Key: "localField", Value: localField},
		{Key: "foreignField", Value: "_id"},
		{Key: "as", Value: "owner"},
	}}}
}

// unwindOwner keeps rows whose owner lookup matched nothing.
func unwindOwner() bson.D {
	return bson.D{{Key: "$unwind", Value: bson.D{
		{Key: "path", Value: "$owner"},
		{Key: "preserveNullAndEmptyArrays", Value: true},
	}}}
}
