package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/truvi/booking-etl/processor"
)

// BookingSourceAdapter pages through the bookings endpoint and pushes each
// page into the subscribed processor chain until the pagination arithmetic
// says the result set is exhausted.
type BookingSourceAdapter struct {
	client     *Client
	filters    map[string]interface{}
	logger     *zap.Logger
	processors []processor.Processor
}

func NewBookingSourceAdapter(client *Client, filters map[string]interface{}, logger *zap.Logger) *BookingSourceAdapter {
	return &BookingSourceAdapter{
		client:  client,
		filters: filters,
		logger:  logger,
	}
}

func (s *BookingSourceAdapter) Subscribe(p processor.Processor) {
	s.processors = append(s.processors, p)
}

// Run drives the page loop: fetch, forward, then either stop on the
// termination predicate or increment the page parameter and continue.
func (s *BookingSourceAdapter) Run(ctx context.Context) error {
	params := make(map[string]interface{}, len(s.filters)+1)
	for k, v := range s.filters {
		params[k] = v
	}
	if _, ok := params["page"]; !ok {
		params["page"] = 1
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, info, err := s.client.FetchPage(ctx, params)
		if err != nil {
			return err
		}
		s.logger.Info("fetched page",
			zap.Int("page", info.Page),
			zap.Int("results", batch.NumRows()))

		if err := processor.ForwardToProcessors(ctx, batch, s.processors); err != nil {
			return err
		}

		if info.LastPage() {
			s.logger.Info("all pages fetched")
			return nil
		}
		params["page"] = info.Page + 1
	}
}
