package report

import (
	"bytes"
	"cmp"
	"context"
	"iter"
	"slices"
	"strings"

	"github.com/ukydev/fleet-analytics/internal/models"
	"github.com/ukydev/fleet-analytics/internal/pipeline"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FleetSource exposes a snapshot of vehicles and owners. *db.MemoryFleet
// implements it.
type FleetSource interface {
	Vehicles() []models.Vehicle
	Users() []models.User
}

// MemoryReporter computes the reports from a FleetSource with the same
// semantics as the server pipelines.
type MemoryReporter struct {
	Source FleetSource
}

// BatteryAverageByBrand implements Reporter.
func (r *MemoryReporter) BatteryAverageByBrand(ctx context.Context) ([]models.BrandBattery, error) {
	withBattery := pipeline.Filter(slices.Values(r.Source.Vehicles()), func(v models.Vehicle) bool {
		return v.HasBattery()
	})
	groups := pipeline.GroupBy(withBattery,
		func(v models.Vehicle) string { return v.Make },
		func(acc pipeline.Avg, v models.Vehicle) pipeline.Avg {
			return acc.Add(float64(*v.Telemetry.BatteryPercent))
		})
	rows := pipeline.Map(groups, func(g pipeline.Group[string, pipeline.Avg]) models.BrandBattery {
		return models.BrandBattery{Brand: g.Key, AvgBattery: g.Acc.Value()}
	})
	sorted := pipeline.SortBy(rows, func(a, b models.BrandBattery) int {
		return strings.Compare(a.Brand, b.Brand)
	})
	return collect(ctx, sorted)
}

type incidentRow struct {
	vehicle  models.Vehicle
	incident models.Incident
}

// MaintenanceAlerts implements Reporter. Rows follow vehicle insertion
// order, then incident order.
func (r *MemoryReporter) MaintenanceAlerts(ctx context.Context, incidentType string) ([]models.MaintenanceAlert, error) {
	rows := pipeline.Unwind(slices.Values(r.Source.Vehicles()),
		func(v models.Vehicle) []models.Incident { return v.Incidents },
		func(v models.Vehicle, inc models.Incident) incidentRow { return incidentRow{vehicle: v, incident: inc} })
	matching := pipeline.Filter(rows, func(row incidentRow) bool {
		return row.incident.Type == incidentType
	})
	alerts := pipeline.LeftJoin(matching,
		func(row incidentRow) primitive.ObjectID { return row.vehicle.OwnerID },
		r.Source.Users(),
		func(u models.User) primitive.ObjectID { return u.ID },
		func(row incidentRow, owner *models.User) models.MaintenanceAlert {
			alert := models.MaintenanceAlert{
				VehicleID:    row.vehicle.ID,
				Registration: row.vehicle.Registration,
				Brand:        row.vehicle.Make,
				Model:        row.vehicle.Model,
				Incident:     row.incident,
			}
			if owner != nil {
				alert.OwnerName = owner.Name
			}
			return alert
		})
	return collect(ctx, alerts)
}

// TopOwners implements Reporter.
func (r *MemoryReporter) TopOwners(ctx context.Context, limit int) ([]models.OwnerRanking, error) {
	counts := pipeline.GroupBy(slices.Values(r.Source.Vehicles()),
		func(v models.Vehicle) primitive.ObjectID { return v.OwnerID },
		func(n int, _ models.Vehicle) int { return n + 1 })
	ranked := pipeline.SortBy(counts, func(a, b pipeline.Group[primitive.ObjectID, int]) int {
		if c := cmp.Compare(b.Acc, a.Acc); c != 0 {
			return c
		}
		return bytes.Compare(a.Key[:], b.Key[:])
	})
	owners := pipeline.LeftJoin(pipeline.Limit(ranked, limit),
		func(g pipeline.Group[primitive.ObjectID, int]) primitive.ObjectID { return g.Key },
		r.Source.Users(),
		func(u models.User) primitive.ObjectID { return u.ID },
		func(g pipeline.Group[primitive.ObjectID, int], owner *models.User) models.OwnerRanking {
			row := models.OwnerRanking{OwnerID: g.Key, VehicleCount: g.Acc}
			if owner != nil {
				row.OwnerName = owner.Name
			}
			return row
		})
	return collect(ctx, owners)
}

func collect[T any](ctx context.Context, seq iter.Seq[T]) ([]T, error) {
	rows := []T{}
	for v := range seq {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows = append(rows, v)
	}
	return rows, nil
}
