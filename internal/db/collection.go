package db

import (
	"context"

	"github.com/ukydev/fleet-analytics/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleStore defines the write and lookup operations on vehicles.
type VehicleStore interface {
	RegisterVehicle(ctx context.Context, vehicle *models.Vehicle) error
	UpdateTelemetry(ctx context.Context, id primitive.ObjectID, telemetry models.Telemetry) error
	UpdateTelemetryByRegistration(ctx context.Context, registration string, telemetry models.Telemetry) error
	ReportIncident(ctx context.Context, id primitive.ObjectID, incident models.Incident) error
	FindVehicleByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error)
	FindLowBatteryAndManyIncidents(ctx context.Context, maxBattery int32, minIncidents int) ([]models.Vehicle, error)
}

// UserStore defines the operations on vehicle owners.
type UserStore interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Defaults of the low-battery alert.
const (
	LowBatteryThreshold = 20
	ManyIncidents       = 2
)
