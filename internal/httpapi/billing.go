package httpapi

import (
	"context"
	"time"

	"github.com/ojeda-dev/fintrack/internal/finance"
)

// RunBilling advances due subscriptions on a fixed interval until ctx is
// cancelled. One pass runs immediately on start. A failing subscription is
// logged and skipped; advance rolls the billing date before recording the
// charge, so retrying on the next pass can never double-charge a cycle.
func (s *Server) RunBilling(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.billingPass(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.billingPass(ctx)
		}
	}
}

func (s *Server) billingPass(ctx context.Context) {
	today := finance.DateOf(s.now().UTC())
	due, err := s.subs.ListDue(ctx, today)
	if err != nil {
		s.log.Error("billing pass failed", "error", err.Error())
		return
	}
	if len(due) == 0 {
		return
	}
	s.log.Info("billing pass starting", "due", len(due))

	var advanced int
	for _, sub := range due {
		if _, err := s.advance(ctx, sub.ID); err != nil {
			s.log.Error("billing advance failed", "subscription_id", sub.ID, "name", sub.Name, "error", err.Error())
			continue
		}
		advanced++
	}
	s.log.Info("billing pass complete", "due", len(due), "advanced", advanced)
}
