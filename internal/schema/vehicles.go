package schema

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ValidationLevelModerate gates inserts and updates of conforming documents
// without rejecting documents that were already invalid.
const ValidationLevelModerate = "moderate"

// Vehicle is the structural contract for the vehicles collection.
var Vehicle = Schema{
	BSONType: "object",
	Required: []string{"make", "model", "registration", "ownerId", "telemetry"},
	Properties: map[string]Schema{
		"make":         {BSONType: "string"},
		"model":        {BSONType: "string"},
		"registration": {BSONType: "string"},
		"ownerId":      {BSONType: "objectId"},
		"telemetry": {
			BSONType: "object",
			Required: []string{"lastPosition", "batteryPercent"},
			Properties: map[string]Schema{
				"lastPosition": {
					BSONType: "object",
					Required: []string{"lat", "lon", "ts"},
					Properties: map[string]Schema{
						"lat": {BSONType: "double"},
						"lon": {BSONType: "double"},
						"ts":  {BSONType: "date"},
					},
				},
				"batteryPercent": {BSONType: "int"},
			},
		},
		"incidents": {
			BSONType: "array",
			Items: &Schema{
				BSONType: "object",
				Required: []string{"date", "type"},
				Properties: map[string]Schema{
					"date":        {BSONType: "date"},
					"type":        {BSONType: "string"},
					"description": {BSONType: "string"},
				},
			},
		},
		"specs":     {BSONType: "object"},
		"modelType": {BSONType: "string"},
		"createdAt": {BSONType: "date"},
		"updatedAt": {BSONType: "date"},
	},
}

// VehicleIndexes returns the index set of the vehicles collection.
func VehicleIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "registration", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "ownerId", Value: 1}},
		},
		{
			// Only vehicles that declare a range are indexed.
			Keys: bson.D{{Key: "specs.range_km", Value: 1}},
			Options: options.Index().SetPartialFilterExpression(bson.M{
				"specs.range_km": bson.M{"$exists": true},
			}),
		},
	}
}

// TelemetryHistoryIndexes returns the index set of the telemetry history collection.
func TelemetryHistoryIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "vehicleId", Value: 1}, {Key: "timestamp", Value: -1}},
		},
	}
}
