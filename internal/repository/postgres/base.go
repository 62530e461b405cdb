package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/meridianlabs/site-api/pkg/metrics"
)

// BaseRepository carries the shared database handle and instrumentation
// for the concrete repositories.
type BaseRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

func NewBaseRepository(db *sqlx.DB, m *metrics.Metrics) BaseRepository {
	return BaseRepository{db: db, metrics: m}
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// track records one database operation on the prometheus vectors.
func (r *BaseRepository) track(op string, start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.metrics.DatabaseOperations.WithLabelValues(op, status).Inc()
	r.metrics.DatabaseLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
