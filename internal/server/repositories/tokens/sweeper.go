package tokens

import (
	"context"

	"github.com/helioview/portal/internal/logging"
	"github.com/robfig/cron/v3"
)

// Sweeper periodically purges expired tokens from one or more stores to
// bound memory. Lazy eviction keeps the stores correct without it.
type Sweeper struct {
	cron   *cron.Cron
	logger logging.Logger
	stores []Repository
}

// NewSweeper schedules sweep runs using a cron spec such as
// "@every 15m". The schedule is validated here; Start must be called to
// begin sweeping.
func NewSweeper(schedule string, logger logging.Logger, stores ...Repository) (*Sweeper, error) {
	s := &Sweeper{
		cron:   cron.New(),
		logger: logger.With("module", "token_sweeper"),
		stores: stores,
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins running the schedule in its own goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule. A sweep already in flight finishes.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	ctx := context.Background()
	for _, store := range s.stores {
		n, err := store.PurgeExpired(ctx)
		if err != nil {
			s.logger.Error(ctx, "purge failed", "error", err)
			continue
		}
		if n > 0 {
			s.logger.Info(ctx, "purged expired tokens", "count", n)
		}
	}
}
