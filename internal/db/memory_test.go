package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-analytics/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newVehicle(registration string) *models.Vehicle {
	return &models.Vehicle{
		Make:         "Renault",
		Model:        "Zoe",
		Registration: registration,
		OwnerID:      primitive.NewObjectID(),
		Telemetry: &models.Telemetry{
			LastPosition:   models.Position{Lat: 48.8566, Lon: 2.3522, TS: time.Now()},
			BatteryPercent: models.Battery(78),
		},
	}
}

func TestMemoryFleet_RejectsMissingRequiredFields(t *testing.T) {
	ctx := context.Background()
	for _, field := range []string{"make", "model", "registration", "ownerId", "telemetry"} {
		t.Run(field, func(t *testing.T) {
			fleet := NewMemoryFleet()
			doc := bson.M{
				"make":         "Renault",
				"model":        "Zoe",
				"registration": "AB-123-CD",
				"ownerId":      primitive.NewObjectID(),
				"telemetry": bson.M{
					"lastPosition":   bson.M{"lat": 48.8, "lon": 2.3, "ts": time.Now()},
					"batteryPercent": int32(50),
				},
			}
			delete(doc, field)

			err := fleet.InsertVehicleDocument(ctx, doc)
			assert.ErrorIs(t, err, ErrValidationFailure)
			assert.Empty(t, fleet.Vehicles())
		})
	}
}

func TestMemoryFleet_RegisterVehicle(t *testing.T) {
	fleet := NewMemoryFleet()
	vehicle := newVehicle("AB-123-CD")

	require.NoError(t, fleet.RegisterVehicle(context.Background(), vehicle))
	assert.False(t, vehicle.ID.IsZero())
	assert.False(t, vehicle.CreatedAt.IsZero())

	stored, err := fleet.FindVehicleByID(context.Background(), vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, "AB-123-CD", stored.Registration)
	assert.Equal(t, int32(78), *stored.Telemetry.BatteryPercent)
}

func TestMemoryFleet_RegisterWithoutTelemetryFails(t *testing.T) {
	fleet := NewMemoryFleet()
	vehicle := newVehicle("AB-123-CD")
	vehicle.Telemetry = nil

	assert.ErrorIs(t, fleet.RegisterVehicle(context.Background(), vehicle), ErrValidationFailure)
}

func TestMemoryFleet_DuplicateRegistration(t *testing.T) {
	fleet := NewMemoryFleet()
	ctx := context.Background()

	require.NoError(t, fleet.RegisterVehicle(ctx, newVehicle("AB-123-CD")))
	err := fleet.RegisterVehicle(ctx, newVehicle("AB-123-CD"))
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Len(t, fleet.Vehicles(), 1)
}

func TestMemoryFleet_UpdateTelemetry(t *testing.T) {
	fleet := NewMemoryFleet()
	ctx := context.Background()
	vehicle := newVehicle("AB-123-CD")
	require.NoError(t, fleet.RegisterVehicle(ctx, vehicle))

	update := models.Telemetry{
		LastPosition:   models.Position{Lat: 48.8570, Lon: 2.3530, TS: time.Now()},
		BatteryPercent: models.Battery(65),
	}
	require.NoError(t, fleet.UpdateTelemetry(ctx, vehicle.ID, update))

	stored, err := fleet.FindVehicleByID(ctx, vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(65), *stored.Telemetry.BatteryPercent)
	assert.InDelta(t, 48.8570, stored.Telemetry.LastPosition.Lat, 1e-9)

	require.NoError(t, fleet.UpdateTelemetryByRegistration(ctx, "AB-123-CD", models.Telemetry{
		LastPosition: models.Position{Lat: 1, Lon: 2, TS: time.Now()},
	}))
	stored, err = fleet.FindVehicleByID(ctx, vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(65), *stored.Telemetry.BatteryPercent, "battery kept when the update has none")

	assert.ErrorIs(t, fleet.UpdateTelemetryByRegistration(ctx, "ZZ-999-ZZ", update), ErrVehicleNotFound)
}

func TestMemoryFleet_ModerateValidation(t *testing.T) {
	fleet := NewMemoryFleet()
	ctx := context.Background()

	// A legacy vehicle written before the validator: no telemetry at all.
	legacy := models.Vehicle{ID: primitive.NewObjectID(), Make: "Peugeot", Model: "e-208", Registration: "LE-000-GC", OwnerID: primitive.NewObjectID()}
	fleet.Seed(legacy)

	err := fleet.ReportIncident(ctx, legacy.ID, models.Incident{Date: time.Now(), Type: "Freins"})
	assert.NoError(t, err, "updates to non-conforming documents are not validated")

	valid := newVehicle("AB-123-CD")
	require.NoError(t, fleet.RegisterVehicle(ctx, valid))
	require.NoError(t, fleet.ReportIncident(ctx, valid.ID, models.Incident{Date: time.Now(), Type: "Moteur"}))

	stored, err := fleet.FindVehicleByID(ctx, legacy.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Incidents, 1)
	assert.Nil(t, stored.Telemetry)
}

func TestMemoryFleet_UpdateMakesLegacyDocumentConforming(t *testing.T) {
	fleet := NewMemoryFleet()
	ctx := context.Background()
	legacy := models.Vehicle{ID: primitive.NewObjectID(), Make: "Peugeot", Model: "e-208", Registration: "LE-000-GC", OwnerID: primitive.NewObjectID()}
	fleet.Seed(legacy)
	require.False(t, fleet.vehicles[0].valid)

	require.NoError(t, fleet.UpdateTelemetry(ctx, legacy.ID, models.Telemetry{
		LastPosition:   models.Position{Lat: 45.76, Lon: 4.83, TS: time.Now()},
		BatteryPercent: models.Battery(40),
	}))
	assert.True(t, fleet.vehicles[0].valid, "later updates are validated once the document conforms")

	require.NoError(t, fleet.ReportIncident(ctx, legacy.ID, models.Incident{Date: time.Now(), Type: "Freins"}))
	assert.True(t, fleet.vehicles[0].valid)
}

func TestMemoryFleet_FindLowBatteryAndManyIncidents(t *testing.T) {
	fleet := NewMemoryFleet()
	ctx := context.Background()

	low := newVehicle("LOW-1")
	low.Telemetry.BatteryPercent = models.Battery(10)
	for i := 0; i < 3; i++ {
		low.Incidents = append(low.Incidents, models.Incident{Date: time.Now(), Type: "Moteur"})
	}
	lowFew := newVehicle("LOW-2")
	lowFew.Telemetry.BatteryPercent = models.Battery(10)
	lowFew.Incidents = []models.Incident{{Date: time.Now(), Type: "Moteur"}, {Date: time.Now(), Type: "Moteur"}}
	high := newVehicle("HIGH-1")
	high.Incidents = low.Incidents

	for _, v := range []*models.Vehicle{low, lowFew, high} {
		require.NoError(t, fleet.RegisterVehicle(ctx, v))
	}

	found, err := fleet.FindLowBatteryAndManyIncidents(ctx, LowBatteryThreshold, ManyIncidents)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "LOW-1", found[0].Registration)
}

func TestMemoryFleet_VehiclesAreCopies(t *testing.T) {
	fleet := NewMemoryFleet()
	vehicle := newVehicle("AB-123-CD")
	require.NoError(t, fleet.RegisterVehicle(context.Background(), vehicle))

	snapshot := fleet.Vehicles()
	*snapshot[0].Telemetry.BatteryPercent = 1

	assert.Equal(t, int32(78), *fleet.Vehicles()[0].Telemetry.BatteryPercent)
}

func TestMemoryFleet_Users(t *testing.T) {
	fleet := NewMemoryFleet()
	ctx := context.Background()
	user := &models.User{Name: "Jean Dupont"}

	require.NoError(t, fleet.InsertUser(ctx, user))
	found, err := fleet.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jean Dupont", found.Name)

	_, err = fleet.FindUserByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLowBatteryFilter(t *testing.T) {
	expected := bson.M{"$and": bson.A{
		bson.M{"telemetry.batteryPercent": bson.M{"$lt": int32(20)}},
		bson.M{"$expr": bson.M{"$gt": bson.A{
			bson.M{"$size": bson.M{"$ifNull": bson.A{"$incidents", bson.A{}}}},
			2,
		}}},
	}}
	assert.Equal(t, expected, LowBatteryFilter(20, 2))
}
