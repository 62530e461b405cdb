package worker

import (
	"context"
	"time"

	"github.com/meridianlabs/site-api/internal/repository"
	"github.com/meridianlabs/site-api/pkg/logger"
	"github.com/meridianlabs/site-api/pkg/metrics"
)

const staleNote = "reconciled"

type ReconcilerConfig struct {
	PollInterval time.Duration
	// Threshold is how long a record may stay pending before the
	// reconciler declares the delivery dead.
	Threshold time.Duration
}

// Reconciler sweeps submissions whose delivery crashed between persist
// and terminal status. Marking them failed keeps the store truthful: a
// pending record older than the threshold will never settle on its own.
type Reconciler struct {
	repo    repository.SubmissionRepository
	config  ReconcilerConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewReconciler(
	repo repository.SubmissionRepository,
	config ReconcilerConfig,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Reconciler {
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.Threshold <= 0 {
		panic("Threshold must be greater than 0")
	}

	return &Reconciler{
		repo:    repo,
		config:  config,
		logger:  logger.WithComponent("reconciler"),
		metrics: m,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	r.logger.Info("Starting submission reconciler")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Shutting down submission reconciler")
			return
		case <-ticker.C:
			if err := r.sweep(ctx); err != nil {
				r.logger.Error(err, "Failed to reconcile submissions")
			}
		}
	}
}

func (r *Reconciler) sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-r.config.Threshold)
	n, err := r.repo.MarkStalePending(ctx, cutoff, staleNote)
	if err != nil {
		return err
	}
	if n > 0 {
		r.metrics.ReconciledSubmissions.Add(float64(n))
		r.logger.Warn("marked stale submissions failed", "count", n)
	}
	return nil
}
