package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vehicle represents a fleet vehicle document in the vehicles collection.
type Vehicle struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Make         string             `bson:"make" json:"make"`
	Model        string             `bson:"model" json:"model"`
	Registration string             `bson:"registration" json:"registration"`
	OwnerID      primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	Telemetry    *Telemetry         `bson:"telemetry,omitempty" json:"telemetry,omitempty"`
	Incidents    []Incident         `bson:"incidents,omitempty" json:"incidents,omitempty"`
	Specs        bson.M             `bson:"specs,omitempty" json:"specs,omitempty"`
	ModelType    string             `bson:"modelType,omitempty" json:"modelType,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt    time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// Telemetry is the last known state reported by a vehicle.
// BatteryPercent is nil when the vehicle never reported a charge level.
type Telemetry struct {
	LastPosition   Position `bson:"lastPosition" json:"lastPosition"`
	BatteryPercent *int32   `bson:"batteryPercent,omitempty" json:"batteryPercent,omitempty"`
}

// Incident is a single entry of a vehicle's incident log.
type Incident struct {
	Date        time.Time           `bson:"date" json:"date"`
	Type        string              `bson:"type" json:"type"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	EvidenceID  *primitive.ObjectID `bson:"evidenceId,omitempty" json:"evidenceId,omitempty"`
}

// Battery returns a pointer suitable for Telemetry.BatteryPercent.
func Battery(percent int32) *int32 {
	return &percent
}

// HasBattery reports whether the vehicle carries a battery reading.
func (v *Vehicle) HasBattery() bool {
	return v.Telemetry != nil && v.Telemetry.BatteryPercent != nil
}
