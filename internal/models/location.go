package models

import "time"

// Position is a timestamped latitude/longitude fix.
type Position struct {
	Lat float64   `bson:"lat" json:"lat"`
	Lon float64   `bson:"lon" json:"lon"`
	TS  time.Time `bson:"ts" json:"ts"`
}
