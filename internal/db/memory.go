package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ukydev/fleet-analytics/internal/models"
	"github.com/ukydev/fleet-analytics/internal/schema"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryFleet keeps vehicles and users in process. Every write goes through
// the vehicle schema and the unique registration check, with the same
// moderate semantics as the server: an update is validated only when the
// stored document was valid before it.
type MemoryFleet struct {
	mu       sync.RWMutex
	vehicles []memVehicle
	users    []models.User
}

type memVehicle struct {
	vehicle models.Vehicle
	valid   bool
}

// NewMemoryFleet returns an empty fleet.
func NewMemoryFleet() *MemoryFleet {
	return &MemoryFleet{}
}

// InsertVehicleDocument inserts any BSON-marshallable document, the way
// InsertOne would. Use it to store documents the Vehicle type cannot express.
func (m *MemoryFleet) InsertVehicleDocument(ctx context.Context, doc interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal vehicle: %w", err)
	}
	if err := schema.Vehicle.Validate(raw); err != nil {
		return wrap(ErrValidationFailure, err)
	}

	var vehicle models.Vehicle
	if err := bson.Unmarshal(raw, &vehicle); err != nil {
		return fmt.Errorf("decode vehicle: %w", err)
	}
	if vehicle.ID.IsZero() {
		vehicle.ID = primitive.NewObjectID()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUnique(vehicle.Registration, -1); err != nil {
		return err
	}
	m.vehicles = append(m.vehicles, memVehicle{vehicle: vehicle, valid: true})
	return nil
}

// Seed stores vehicles without validation, like documents written before
// the validator existed.
func (m *MemoryFleet) Seed(vehicles ...models.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range vehicles {
		if v.ID.IsZero() {
			v.ID = primitive.NewObjectID()
		}
		m.vehicles = append(m.vehicles, memVehicle{vehicle: v, valid: schema.Vehicle.ValidateValue(v) == nil})
	}
}

// RegisterVehicle stamps and inserts a vehicle.
func (m *MemoryFleet) RegisterVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	stamp(vehicle, time.Now())
	if err := m.InsertVehicleDocument(ctx, vehicle); err != nil {
		return fmt.Errorf("register vehicle %s: %w", vehicle.Registration, err)
	}
	return nil
}

// UpdateTelemetry replaces the telemetry position and battery of a vehicle.
func (m *MemoryFleet) UpdateTelemetry(ctx context.Context, id primitive.ObjectID, telemetry models.Telemetry) error {
	return m.update(func(v *models.Vehicle) bool { return v.ID == id }, func(v *models.Vehicle) {
		applyTelemetry(v, telemetry)
	})
}

// UpdateTelemetryByRegistration is UpdateTelemetry keyed by registration.
func (m *MemoryFleet) UpdateTelemetryByRegistration(ctx context.Context, registration string, telemetry models.Telemetry) error {
	return m.update(func(v *models.Vehicle) bool { return v.Registration == registration }, func(v *models.Vehicle) {
		applyTelemetry(v, telemetry)
	})
}

// ReportIncident appends an incident to the vehicle's log.
func (m *MemoryFleet) ReportIncident(ctx context.Context, id primitive.ObjectID, incident models.Incident) error {
	return m.update(func(v *models.Vehicle) bool { return v.ID == id }, func(v *models.Vehicle) {
		v.Incidents = append(v.Incidents, incident)
	})
}

// AttachEvidence records fileID on the index-th incident of a vehicle.
func (m *MemoryFleet) AttachEvidence(ctx context.Context, id primitive.ObjectID, index int, fileID primitive.ObjectID) error {
	var outOfRange bool
	err := m.update(func(v *models.Vehicle) bool { return v.ID == id }, func(v *models.Vehicle) {
		if index < 0 || index >= len(v.Incidents) {
			outOfRange = true
			return
		}
		v.Incidents[index].EvidenceID = &fileID
	})
	if err == nil && outOfRange {
		return fmt.Errorf("%w: %d", ErrIncidentIndex, index)
	}
	return err
}

// FindVehicleByID returns a copy of the stored vehicle.
func (m *MemoryFleet) FindVehicleByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mv := range m.vehicles {
		if mv.vehicle.ID == id {
			v := cloneVehicle(mv.vehicle)
			return &v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrVehicleNotFound, id.Hex())
}

// FindLowBatteryAndManyIncidents mirrors LowBatteryFilter.
func (m *MemoryFleet) FindLowBatteryAndManyIncidents(ctx context.Context, maxBattery int32, minIncidents int) ([]models.Vehicle, error) {
	var out []models.Vehicle
	for _, v := range m.Vehicles() {
		if v.HasBattery() && *v.Telemetry.BatteryPercent < maxBattery && len(v.Incidents) > minIncidents {
			out = append(out, v)
		}
	}
	return out, nil
}

// InsertUser stores an owner.
func (m *MemoryFleet) InsertUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == user.ID {
			return fmt.Errorf("%w: users._id %s", ErrDuplicateKey, user.ID.Hex())
		}
	}
	m.users = append(m.users, *user)
	return nil
}

// FindUserByID returns the owner with the given ID.
func (m *MemoryFleet) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.ID == id {
			user := u
			return &user, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id.Hex())
}

// Vehicles returns a copy of the stored vehicles in insertion order.
func (m *MemoryFleet) Vehicles() []models.Vehicle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Vehicle, len(m.vehicles))
	for i, mv := range m.vehicles {
		out[i] = cloneVehicle(mv.vehicle)
	}
	return out
}

// Users returns a copy of the stored owners in insertion order.
func (m *MemoryFleet) Users() []models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.User(nil), m.users...)
}

func (m *MemoryFleet) update(match func(*models.Vehicle) bool, apply func(*models.Vehicle)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.vehicles {
		mv := &m.vehicles[i]
		if !match(&mv.vehicle) {
			continue
		}
		updated := cloneVehicle(mv.vehicle)
		apply(&updated)
		updated.UpdatedAt = time.Now()

		verr := schema.Vehicle.ValidateValue(updated)
		if mv.valid && verr != nil {
			return wrap(ErrValidationFailure, verr)
		}
		if err := m.checkUnique(updated.Registration, i); err != nil {
			return err
		}
		// A legacy document that now conforms is gated from here on.
		mv.vehicle = updated
		mv.valid = verr == nil
		return nil
	}
	return ErrVehicleNotFound
}

// checkUnique must be called with mu held. skip is the index being replaced.
func (m *MemoryFleet) checkUnique(registration string, skip int) error {
	for i, mv := range m.vehicles {
		if i != skip && mv.vehicle.Registration == registration {
			return fmt.Errorf("%w: registration %q", ErrDuplicateKey, registration)
		}
	}
	return nil
}

func applyTelemetry(v *models.Vehicle, telemetry models.Telemetry) {
	if v.Telemetry == nil {
		v.Telemetry = &models.Telemetry{}
	}
	v.Telemetry.LastPosition = telemetry.LastPosition
	if telemetry.BatteryPercent != nil {
		v.Telemetry.BatteryPercent = models.Battery(*telemetry.BatteryPercent)
	}
}

func cloneVehicle(v models.Vehicle) models.Vehicle {
	if v.Telemetry != nil {
		t := *v.Telemetry
		if t.BatteryPercent != nil {
			t.BatteryPercent = models.Battery(*t.BatteryPercent)
		}
		v.Telemetry = &t
	}
	if v.Incidents != nil {
		v.Incidents = append([]models.Incident(nil), v.Incidents...)
	}
	if v.Specs != nil {
		specs := make(bson.M, len(v.Specs))
		for k, val := range v.Specs {
			specs[k] = val
		}
		v.Specs = specs
	}
	return v
}
