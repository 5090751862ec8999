// Package seed writes the demo owner and vehicle used to try the reports.
package seed

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-analytics/internal/db"
	"github.com/ukydev/fleet-analytics/internal/models"
)

// Demo values.
const (
	OwnerName    = "Jean Dupont"
	Registration = "AB-123-CD"
)

// Result identifies the documents written by Demo.
type Result struct {
	Owner   models.User
	Vehicle models.Vehicle
}

// Demo creates one owner with a Renault Zoe, moves it, drains its battery
// from 78% to 65% and reports an engine incident.
func Demo(ctx context.Context, users db.UserStore, vehicles db.VehicleStore, logger log.FieldLogger) (*Result, error) {
	owner := &models.User{Name: OwnerName}
	if err := users.InsertUser(ctx, owner); err != nil {
		return nil, fmt.Errorf("insert owner: %w", err)
	}
	logger.WithFields(log.Fields{"owner": owner.Name, "id": owner.ID.Hex()}).Info("Created owner")

	vehicle := &models.Vehicle{
		Make:         "Renault",
		Model:        "Zoe",
		Registration: Registration,
		OwnerID:      owner.ID,
		Telemetry: &models.Telemetry{
			LastPosition:   models.Position{Lat: 48.8566, Lon: 2.3522, TS: time.Now()},
			BatteryPercent: models.Battery(78),
		},
	}
	if err := vehicles.RegisterVehicle(ctx, vehicle); err != nil {
		return nil, err
	}
	logger.WithFields(log.Fields{"registration": vehicle.Registration, "owner": owner.Name}).Info("Registered vehicle")

	update := models.Telemetry{
		LastPosition:   models.Position{Lat: 48.8570, Lon: 2.3530, TS: time.Now()},
		BatteryPercent: models.Battery(65),
	}
	if err := vehicles.UpdateTelemetry(ctx, vehicle.ID, update); err != nil {
		return nil, fmt.Errorf("update telemetry: %w", err)
	}
	logger.WithFields(log.Fields{"registration": vehicle.Registration, "battery": 65}).Info("Updated telemetry")

	incident := models.Incident{Date: time.Now(), Type: "Moteur", Description: "Strange noise from engine"}
	if err := vehicles.ReportIncident(ctx, vehicle.ID, incident); err != nil {
		return nil, fmt.Errorf("report incident: %w", err)
	}
	logger.WithFields(log.Fields{"registration": vehicle.Registration, "type": incident.Type}).Info("Reported incident")

	stored, err := vehicles.FindVehicleByID(ctx, vehicle.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Owner: *owner, Vehicle: *stored}, nil
}
