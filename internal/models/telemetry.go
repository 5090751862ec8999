package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TelemetrySample is one entry of the telemetry_history collection.
type TelemetrySample struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VehicleID      string             `bson:"vehicleId" json:"vehicleId"`
	Timestamp      time.Time          `bson:"timestamp" json:"timestamp"`
	Location       SampleLocation     `bson:"location" json:"location"`
	EnergyConsumed float64            `bson:"energyConsumed" json:"energyConsumed"` // in kWh
	Speed          float64            `bson:"speed" json:"speed"`                   // in km/h
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}

// SampleLocation holds the city and [lon, lat] coordinates of a sample.
type SampleLocation struct {
	City   string    `bson:"city" json:"city"`
	Coords []float64 `bson:"coords" json:"coords"`
}

// CityEnergy is a row of the energy-per-city aggregation.
type CityEnergy struct {
	City        string  `bson:"_id" json:"city"`
	TotalEnergy float64 `bson:"totalEnergy" json:"totalEnergy"`
	AvgEnergy   float64 `bson:"avgEnergy" json:"avgEnergy"`
	Count       int     `bson:"count" json:"count"`
}
