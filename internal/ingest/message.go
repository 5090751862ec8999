// Package ingest applies live telemetry published over MQTT to the vehicles
// collection.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ukydev/fleet-analytics/internal/models"
)

// ErrInvalidPayload marks messages that cannot be applied.
var ErrInvalidPayload = errors.New("invalid telemetry payload")

// Payload is the JSON body of a telemetry message.
type Payload struct {
	Registration   string   `json:"registration"`
	Lat            *float64 `json:"lat"`
	Lon            *float64 `json:"lon"`
	TS             string   `json:"ts,omitempty"`
	BatteryPercent *int32   `json:"batteryPercent,omitempty"`
}

// Reading is a decoded message ready to be stored.
type Reading struct {
	Registration string
	Telemetry    models.Telemetry
}

// Parse decodes a message published on topic. The registration comes from
// the payload or, when absent, from the second topic segment
// (fleet/<registration>/telemetry). A missing ts defaults to now.
func Parse(topic string, body []byte, now time.Time) (Reading, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	registration := p.Registration
	if registration == "" {
		registration = registrationFromTopic(topic)
	}
	if registration == "" {
		return Reading{}, fmt.Errorf("%w: no registration in payload or topic %q", ErrInvalidPayload, topic)
	}
	if p.Lat == nil || p.Lon == nil {
		return Reading{}, fmt.Errorf("%w: lat and lon are required", ErrInvalidPayload)
	}

	ts := now
	if p.TS != "" {
		parsed, err := time.Parse(time.RFC3339, p.TS)
		if err != nil {
			return Reading{}, fmt.Errorf("%w: ts: %w", ErrInvalidPayload, err)
		}
		ts = parsed
	}

	return Reading{
		Registration: registration,
		Telemetry: models.Telemetry{
			LastPosition:   models.Position{Lat: *p.Lat, Lon: *p.Lon, TS: ts},
			BatteryPercent: p.BatteryPercent,
		},
	}, nil
}

func registrationFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[1] == "+" || parts[1] == "#" {
		return ""
	}
	return parts[1]
}

// BatteryInRange reports whether a battery reading is within 0-100. Readings
// outside the range are still stored.
func BatteryInRange(percent *int32) bool {
	return percent == nil || (*percent >= 0 && *percent <= 100)
}
