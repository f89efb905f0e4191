package storage

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// PruneInterval is how often expired vision cache entries are deleted.
const PruneInterval = 24 * time.Hour

// VisionCachePruner deletes cache entries created before a cutoff.
type VisionCachePruner interface {
	PruneVisionCache(cutoff time.Time) (int64, error)
}

// Pruner periodically removes expired vision cache entries.
type Pruner struct {
	store    VisionCachePruner
	maxAge   time.Duration
	interval time.Duration
}

// NewPruner creates a pruner that drops entries older than maxAge.
func NewPruner(store VisionCachePruner, maxAge time.Duration) *Pruner {
	return &Pruner{store: store, maxAge: maxAge, interval: PruneInterval}
}

// WithInterval overrides the prune interval.
func (p *Pruner) WithInterval(d time.Duration) *Pruner {
	if d > 0 {
		p.interval = d
	}
	return p
}

// Run prunes once immediately and then on every interval. It blocks until
// the context is cancelled. A zero maxAge disables pruning.
func (p *Pruner) Run(ctx context.Context) {
	if p.maxAge <= 0 {
		return
	}
	log.Info().Dur("interval", p.interval).Dur("maxAge", p.maxAge).Msg("starting vision cache pruner")

	p.prune()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("vision cache pruner stopped")
			return
		case <-ticker.C:
			p.prune()
		}
	}
}

func (p *Pruner) prune() {
	count, err := p.store.PruneVisionCache(time.Now().UTC().Add(-p.maxAge))
	if err != nil {
		log.Error().Err(err).Msg("failed to prune vision cache")
		return
	}
	if count > 0 {
		log.Info().Int64("pruned", count).Msg("pruned old vision cache entries")
	}
}
