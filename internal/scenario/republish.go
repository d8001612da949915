package scenario

import (
	"log/slog"

	"github.com/roach88/brokersim/internal/engine"
)

// NewRepublisher returns an engine.Republisher that re-issues the canned
// publications of the catalog scenario named by the active demo marker.
//
// Each publication is scheduled on the runner at its at_ms offset and
// resolves its exchange by name when it fires, so a renamed or deleted
// exchange silently skips the message.
func NewRepublisher(c *Catalog, logger *slog.Logger) engine.Republisher {
	if logger == nil {
		logger = slog.Default()
	}
	return func(r *engine.Runner, demo string) {
		s, ok := c.Get(demo)
		if !ok {
			logger.Warn("no canned publications for demo", "demo", demo)
			return
		}

		for _, p := range s.Publications {
			r.Schedule(p.Delay(), func(e *engine.Engine) {
				ex, ok := e.ExchangeByName(p.Exchange)
				if !ok {
					logger.Debug("demo publication skipped: exchange missing",
						"demo", demo,
						"exchange", p.Exchange,
					)
					return
				}
				if _, err := e.Publish(ex.ID, p.Content, p.RoutingKey); err != nil {
					logger.Warn("demo publication failed", "demo", demo, "error", err)
				}
			})
		}
		logger.Info("demo publications scheduled", "demo", demo, "count", len(s.Publications))
	}
}
