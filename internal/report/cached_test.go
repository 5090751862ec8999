package report

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-analytics/internal/cache"
	"github.com/ukydev/fleet-analytics/internal/models"
)

type memoryStore struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (s *memoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	s.ttls[key] = ttl
	return nil
}

type countingReporter struct {
	calls int
	err   error
}

func (r *countingReporter) BatteryAverageByBrand(ctx context.Context) ([]models.BrandBattery, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []models.BrandBattery{{Brand: "Acme", AvgBattery: 70}}, nil
}

func (r *countingReporter) MaintenanceAlerts(ctx context.Context, incidentType string) ([]models.MaintenanceAlert, error) {
	r.calls++
	return []models.MaintenanceAlert{{Registration: "AB-123-CD", Incident: models.Incident{Type: incidentType}}}, nil
}

func (r *countingReporter) TopOwners(ctx context.Context, limit int) ([]models.OwnerRanking, error) {
	r.calls++
	return []models.OwnerRanking{{VehicleCount: limit}}, nil
}

func quietLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestCached_MissThenHit(t *testing.T) {
	inner := &countingReporter{}
	store := newMemoryStore()
	c := NewCached(inner, store, time.Minute, quietLogger())
	ctx := context.Background()

	first, err := c.BatteryAverageByBrand(ctx)
	require.NoError(t, err)
	second, err := c.BatteryAverageByBrand(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, time.Minute, store.ttls["fleet:report:battery"])
}

func TestCached_KeysIncludeArguments(t *testing.T) {
	inner := &countingReporter{}
	store := newMemoryStore()
	c := NewCached(inner, store, time.Minute, quietLogger())
	ctx := context.Background()

	_, err := c.MaintenanceAlerts(ctx, "Moteur")
	require.NoError(t, err)
	rows, err := c.MaintenanceAlerts(ctx, "Freins")
	require.NoError(t, err)
	_, err = c.TopOwners(ctx, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, "Freins", rows[0].Incident.Type)
	assert.Contains(t, store.data, "fleet:report:maintenance:Moteur")
	assert.Contains(t, store.data, "fleet:report:maintenance:Freins")
	assert.Contains(t, store.data, "fleet:report:owners:3")
}

func TestCached_StoreFailuresFallThrough(t *testing.T) {
	inner := &countingReporter{}
	store := newMemoryStore()
	store.getErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")
	c := NewCached(inner, store, time.Minute, quietLogger())

	rows, err := c.TopOwners(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, inner.calls)
}

func TestCached_UnreadableEntryReloads(t *testing.T) {
	inner := &countingReporter{}
	store := newMemoryStore()
	store.data["fleet:report:battery"] = []byte("not json")
	c := NewCached(inner, store, time.Minute, quietLogger())

	rows, err := c.BatteryAverageByBrand(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Acme", rows[0].Brand)
	assert.Equal(t, 1, inner.calls)
}

func TestCached_InnerErrorNotCached(t *testing.T) {
	inner := &countingReporter{err: errors.New("boom")}
	store := newMemoryStore()
	c := NewCached(inner, store, time.Minute, quietLogger())

	_, err := c.BatteryAverageByBrand(context.Background())
	assert.Error(t, err)
	assert.Empty(t, store.data)
}
