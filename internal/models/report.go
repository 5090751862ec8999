package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// BrandBattery is a row of the battery-average-per-brand report.
type BrandBattery struct {
	Brand      string  `bson:"brand" json:"brand"`
	AvgBattery float64 `bson:"avgBattery" json:"avgBattery"`
}

// MaintenanceAlert is one matching incident joined with its vehicle and owner.
// OwnerName is empty when ownerId references no user.
type MaintenanceAlert struct {
	VehicleID    primitive.ObjectID `bson:"_id" json:"_id"`
	Registration string             `bson:"registration" json:"registration"`
	Brand        string             `bson:"brand" json:"brand"`
	Model        string             `bson:"model" json:"model"`
	Incident     Incident           `bson:"incident" json:"incident"`
	OwnerName    string             `bson:"ownerName,omitempty" json:"ownerName,omitempty"`
}

// OwnerRanking is a row of the top-owners report.
type OwnerRanking struct {
	OwnerID      primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	OwnerName    string             `bson:"ownerName,omitempty" json:"ownerName,omitempty"`
	VehicleCount int                `bson:"vehicleCount" json:"vehicleCount"`
}
