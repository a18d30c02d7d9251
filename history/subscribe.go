package history

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/ghframe/bus"
	"github.com/hazyhaar/ghframe/page"
)

// Subscribe records every confirmed page published on bus.IssueChanged.
// Pages with an empty URL (network errors) are skipped.
func (s *Store) Subscribe(sub bus.Subscriber, logger *slog.Logger) (off func()) {
	if logger == nil {
		logger = slog.Default()
	}
	return sub.On(bus.IssueChanged, func(ctx context.Context, payload any) error {
		var d page.Descriptor
		switch p := payload.(type) {
		case *page.Descriptor:
			if p == nil {
				return nil
			}
			d = *p
		case page.Descriptor:
			d = p
		default:
			return nil
		}
		if d.URL == "" {
			return nil
		}
		r, err := s.Add(ctx, FromDescriptor(d, s.Now()))
		if err != nil {
			return err
		}
		logger.Debug("history: recorded", "id", r.ID, "url", r.URL)
		return nil
	})
}
