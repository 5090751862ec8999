package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-analytics/internal/cache"
	"github.com/ukydev/fleet-analytics/internal/models"
)

// KeyPrefix namespaces cached report results.
const KeyPrefix = "fleet:report:"

// Cached serves reports from Store when possible and fills it from Inner
// otherwise. A failing store never fails a report.
type Cached struct {
	Inner Reporter
	Store cache.Store
	TTL   time.Duration
	Log   log.FieldLogger
}

// NewCached wraps inner with store.
func NewCached(inner Reporter, store cache.Store, ttl time.Duration, logger log.FieldLogger) *Cached {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cached{Inner: inner, Store: store, TTL: ttl, Log: logger}
}

// BatteryAverageByBrand implements Reporter.
func (c *Cached) BatteryAverageByBrand(ctx context.Context) ([]models.BrandBattery, error) {
	return cached(ctx, c, KeyPrefix+"battery", c.Inner.BatteryAverageByBrand)
}

// MaintenanceAlerts implements Reporter.
func (c *Cached) MaintenanceAlerts(ctx context.Context, incidentType string) ([]models.MaintenanceAlert, error) {
	return cached(ctx, c, KeyPrefix+"maintenance:"+incidentType, func(ctx context.Context) ([]models.MaintenanceAlert, error) {
		return c.Inner.MaintenanceAlerts(ctx, incidentType)
	})
}

// TopOwners implements Reporter.
func (c *Cached) TopOwners(ctx context.Context, limit int) ([]models.OwnerRanking, error) {
	return cached(ctx, c, fmt.Sprintf("%sowners:%d", KeyPrefix, limit), func(ctx context.Context) ([]models.OwnerRanking, error) {
		return c.Inner.TopOwners(ctx, limit)
	})
}

func cached[T any](ctx context.Context, c *Cached, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	entry := c.Log.WithField("key", key)

	data, err := c.Store.Get(ctx, key)
	switch {
	case err == nil:
		var rows []T
		if err := json.Unmarshal(data, &rows); err == nil {
			entry.Debug("report cache hit")
			return rows, nil
		}
		entry.Warn("discarding unreadable cached report")
	case !errors.Is(err, cache.ErrMiss):
		entry.WithError(err).Warn("report cache unavailable")
	}

	rows, err := load(ctx)
	if err != nil {
		return nil, err
	}
	data, err = json.Marshal(rows)
	if err != nil {
		entry.WithError(err).Warn("encode report for cache")
		return rows, nil
	}
	if err := c.Store.Set(ctx, key, data, c.TTL); err != nil {
		entry.WithError(err).Warn("write report cache")
	}
	return rows, nil
}
