package history

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-analytics/internal/db"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

// ProgressEvery is the number of inserted batches between progress logs.
const ProgressEvery = 5

// Inserter is the part of *mongo.Collection the loader uses.
type Inserter interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

// Loader bulk-inserts generated samples.
type Loader struct {
	Collection  Inserter
	Generator   *Generator
	Concurrency int
	Log         log.FieldLogger
}

// Load inserts total samples in batches of batchSize, running at most
// Concurrency InsertMany calls at once. It returns the number of documents
// acknowledged before the first failure.
func (l *Loader) Load(ctx context.Context, total, batchSize int) (int, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	logger := l.Log
	if logger == nil {
		logger = log.StandardLogger()
	}
	limit := l.Concurrency
	if limit <= 0 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var (
		mu       sync.Mutex
		inserted int
		batches  int
	)
	for queued := 0; queued < total; queued += batchSize {
		if gctx.Err() != nil {
			break
		}
		// The generator is not concurrency-safe, so batches are built here.
		samples := l.Generator.Batch(min(batchSize, total-queued))
		docs := make([]interface{}, len(samples))
		for i := range samples {
			docs[i] = samples[i]
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := l.Collection.InsertMany(gctx, docs)
			if err != nil {
				return fmt.Errorf("insert batch: %w", db.Classify(err))
			}
			mu.Lock()
			defer mu.Unlock()
			inserted += len(res.InsertedIDs)
			batches++
			if batches%ProgressEvery == 0 {
				logger.WithField("inserted", inserted).Info("Telemetry history load progress")
			}
			return nil
		})
	}

	err := g.Wait()
	mu.Lock()
	defer mu.Unlock()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return inserted, err
	}
	logger.WithField("inserted", inserted).Info("Telemetry history load complete")
	return inserted, nil
}
