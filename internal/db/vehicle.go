package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ukydev/fleet-analytics/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoVehicleCollection implements VehicleStore on a vehicles collection.
type MongoVehicleCollection struct {
	Collection *mongo.Collection
}

var errNilCollection = errors.New("mongo collection is nil")

// RegisterVehicle stamps and inserts a vehicle. The server validator and the
// unique registration index decide whether the write is accepted.
func (c *MongoVehicleCollection) RegisterVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	if c.Collection == nil {
		return errNilCollection
	}
	stamp(vehicle, time.Now())

	if _, err := c.Collection.InsertOne(ctx, vehicle); err != nil {
		return fmt.Errorf("register vehicle %s: %w", vehicle.Registration, Classify(err))
	}
	return nil
}

// UpdateTelemetry replaces the last position and battery level of a vehicle.
func (c *MongoVehicleCollection) UpdateTelemetry(ctx context.Context, id primitive.ObjectID, telemetry models.Telemetry) error {
	return c.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": telemetrySet(telemetry, time.Now())})
}

// UpdateTelemetryByRegistration is UpdateTelemetry keyed by registration.
func (c *MongoVehicleCollection) UpdateTelemetryByRegistration(ctx context.Context, registration string, telemetry models.Telemetry) error {
	return c.updateOne(ctx, bson.M{"registration": registration}, bson.M{"$set": telemetrySet(telemetry, time.Now())})
}

// ReportIncident appends an incident to the vehicle's log.
func (c *MongoVehicleCollection) ReportIncident(ctx context.Context, id primitive.ObjectID, incident models.Incident) error {
	return c.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"incidents": incident},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
}

// AttachEvidence records fileID as the evidence of the index-th incident.
func (c *MongoVehicleCollection) AttachEvidence(ctx context.Context, id primitive.ObjectID, index int, fileID primitive.ObjectID) error {
	return c.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		fmt.Sprintf("incidents.%d.evidenceId", index): fileID,
		"updatedAt": time.Now(),
	}})
}

// FindVehicleByID finds a vehicle by its ID.
func (c *MongoVehicleCollection) FindVehicleByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}

	var vehicle models.Vehicle
	err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&vehicle)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrVehicleNotFound, id.Hex())
		}
		return nil, Classify(err)
	}
	return &vehicle, nil
}

// FindLowBatteryAndManyIncidents returns vehicles whose battery is below
// maxBattery and that logged more than minIncidents incidents.
func (c *MongoVehicleCollection) FindLowBatteryAndManyIncidents(ctx context.Context, maxBattery int32, minIncidents int) ([]models.Vehicle, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}

	cursor, err := c.Collection.Find(ctx, LowBatteryFilter(maxBattery, minIncidents))
	if err != nil {
		return nil, ClassifyQuery(err)
	}
	defer cursor.Close(ctx)

	var vehicles []models.Vehicle
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, ClassifyQuery(err)
	}
	return vehicles, nil
}

// LowBatteryFilter matches battery < maxBattery and size(incidents) > minIncidents.
// Vehicles without an incidents array count as having none.
func LowBatteryFilter(maxBattery int32, minIncidents int) bson.M {
	return bson.M{"$and": bson.A{
		bson.M{"telemetry.batteryPercent": bson.M{"$lt": maxBattery}},
		bson.M{"$expr": bson.M{"$gt": bson.A{
			bson.M{"$size": bson.M{"$ifNull": bson.A{"$incidents", bson.A{}}}},
			minIncidents,
		}}},
	}}
}

func (c *MongoVehicleCollection) updateOne(ctx context.Context, filter, update bson.M) error {
	if c.Collection == nil {
		return errNilCollection
	}

	result, err := c.Collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return Classify(err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %v", ErrVehicleNotFound, filter)
	}
	return nil
}

func telemetrySet(telemetry models.Telemetry, now time.Time) bson.M {
	set := bson.M{
		"telemetry.lastPosition": telemetry.LastPosition,
		"updatedAt":              now,
	}
	if telemetry.BatteryPercent != nil {
		set["telemetry.batteryPercent"] = *telemetry.BatteryPercent
	}
	return set
}

func stamp(vehicle *models.Vehicle, now time.Time) {
	if vehicle.ID.IsZero() {
		vehicle.ID = primitive.NewObjectID()
	}
	if vehicle.CreatedAt.IsZero() {
		vehicle.CreatedAt = now
	}
	vehicle.UpdatedAt = now
	vehicle.Registration = strings.TrimSpace(vehicle.Registration)
}
