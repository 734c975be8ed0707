package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/marmotdata/icemeta/internal/catalog"
	"github.com/marmotdata/icemeta/internal/snapshot"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// TableLister enumerates the tables a Sweeper should consider on each tick.
type TableLister func(ctx context.Context) ([]catalog.TableIdentifier, error)

// Sweeper runs ExpireSnapshots across a catalog's tables on a cron
// schedule, the way a periodic maintenance job would in production.
type Sweeper struct {
	cat    *catalog.Catalog
	cron   *cron.Cron
	policy snapshot.Policy
	purge  bool
	tables TableLister
}

// NewSweeper constructs a Sweeper. policy/purge apply uniformly to every
// table TableLister returns; a deployment wanting per-table policies
// should instead call ExpireSnapshots directly per table.
func NewSweeper(cat *catalog.Catalog, policy snapshot.Policy, purge bool, tables TableLister) *Sweeper {
	return &Sweeper{cat: cat, cron: cron.New(), policy: policy, purge: purge, tables: tables}
}

// Start schedules the sweep on spec (a standard 5-field cron expression)
// and begins running it in the background.
func (s *Sweeper) Start(ctx context.Context, spec string) error {
	_, err := s.cron.AddFunc(spec, func() { s.sweepOnce(ctx) })
	if err != nil {
		return fmt.Errorf("retention: scheduling sweep %q: %w", spec, err)
	}
	s.cron.Start()
	return nil
}

// Stop waits for any in-flight sweep to finish and halts scheduling.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	tables, err := s.tables(ctx)
	if err != nil {
		log.Error().Err(err).Msg("retention: listing tables for sweep")
		return
	}
	asOf := time.Now().UnixMilli()
	for _, id := range tables {
		result, err := ExpireSnapshots(ctx, s.cat, id, s.policy, asOf, s.purge)
		if err != nil {
			log.Error().Err(err).Str("table", id.String()).Msg("retention: expire snapshots failed")
			continue
		}
		if len(result.ExpiredIDs) > 0 {
			log.Info().Str("table", id.String()).Int("expired", len(result.ExpiredIDs)).Msg("retention: expired snapshots")
		}
	}
}
