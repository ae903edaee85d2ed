package cardprogram

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// HoldExpirySweep runs ExpireStaleHolds on a schedule. Holds PENDING longer
// than TTL with no linked clearing transition to EXPIRED so the card's
// available balance recovers without depending on any inbound event.
type HoldExpirySweep struct {
	Program *Program
	TTL     time.Duration
	cron    *cron.Cron
}

const defaultHoldTTL = 7 * 24 * time.Hour

// Start schedules the sweep to run every minute and returns immediately.
func (s *HoldExpirySweep) Start(ctx context.Context) error {
	ttl := s.TTL
	if ttl == 0 {
		ttl = defaultHoldTTL
	}

	s.cron = cron.New()

	_, err := s.cron.AddFunc("@every 1m", func() {
		cutoff := time.Now().Add(-ttl).Unix()

		n, err := s.Program.ExpireStaleHolds(ctx, cutoff)
		if err != nil {
			s.Program.Logger.Errorf("hold expiry sweep failed: %v", err)
			return
		}

		if n > 0 {
			s.Program.Logger.Infof("hold expiry sweep expired %d holds", n)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

// Stop halts the scheduler, waiting for any in-flight run to finish.
func (s *HoldExpirySweep) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}
