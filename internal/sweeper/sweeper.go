// Package sweeper wires up the cron job that periodically deletes expired
// approval tokens. Validity is always enforced at redemption time; the sweep
// is housekeeping that keeps the token table from growing unbounded.
package sweeper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"talentflow/approval-service/internal/hiringflow"
)

// Sweeper wraps robfig/cron and manages the token cleanup loop.
type Sweeper struct {
	cron   *cron.Cron
	tokens hiringflow.TokenStore
	spec   string // cron spec, e.g. "@every 24h"
}

// New creates a Sweeper that fires every intervalHours hours.
func New(tokens hiringflow.TokenStore, intervalHours int) *Sweeper {
	return &Sweeper{
		cron:   cron.New(cron.WithLogger(cron.DefaultLogger)),
		tokens: tokens,
		spec:   fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. Also runs one sweep
// immediately so a restart clears any backlog without waiting for the first
// tick.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[sweeper] Cron started — spec: %s", s.spec)

	go s.runSweep(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Sweeper) Stop() {
	s.cron.Stop()
	log.Println("[sweeper] Cron stopped")
}

// runSweep deletes every token already past its expiry.
func (s *Sweeper) runSweep(ctx context.Context) {
	n, err := s.tokens.DeleteExpiredBefore(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("[sweeper] DeleteExpiredBefore error: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[sweeper] Removed %d expired token(s)", n)
	}
}
