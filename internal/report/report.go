// Package report implements the three read-only fleet reports: battery
// average per brand, maintenance alerts for an incident type, and the owners
// with the most vehicles.
//
// MongoReporter runs the reports as aggregation pipelines on the server.
// MemoryReporter computes the same rows from in-process records with the
// stages of package pipeline. Cached wraps either with a result cache.
package report

import (
	"context"

	"github.com/ukydev/fleet-analytics/internal/models"
)

// Defaults of the maintenance and owner reports.
const (
	EngineIncidentType = "Moteur"
	TopOwnerCount      = 3
)

// Reporter produces the fleet reports. Implementations never write.
type Reporter interface {
	BatteryAverageByBrand(ctx context.Context) ([]models.BrandBattery, error)
	MaintenanceAlerts(ctx context.Context, incidentType string) ([]models.MaintenanceAlert, error)
	TopOwners(ctx context.Context, limit int) ([]models.OwnerRanking, error)
}
