// Package jobs holds interval background jobs that are not driven by
// order events.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/printera/printera/internal/service"
)

// TrackingPoller refreshes carrier tracking status for undelivered
// shipments on an interval.
type TrackingPoller struct {
	fulfillment *service.FulfillmentService
	interval    time.Duration
	batchSize   int32
	logger      zerolog.Logger
}

// NewTrackingPoller creates the poller.
func NewTrackingPoller(fulfillment *service.FulfillmentService, interval time.Duration, batchSize int32, logger zerolog.Logger) *TrackingPoller {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &TrackingPoller{
		fulfillment: fulfillment,
		interval:    interval,
		batchSize:   batchSize,
		logger:      logger.With().Str("component", "tracking_poller").Logger(),
	}
}

// Run polls until the context is cancelled.
func (p *TrackingPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().Dur("interval", p.interval).Msg("tracking poller started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("tracking poller stopped")
			return
		case <-ticker.C:
			refreshed, err := p.fulfillment.RefreshUndelivered(ctx, p.batchSize)
			if err != nil {
				p.logger.Error().Err(err).Msg("tracking refresh sweep failed")
				continue
			}
			if refreshed > 0 {
				p.logger.Info().Int("refreshed", refreshed).Msg("tracking statuses refreshed")
			}
		}
	}
}
