package runner

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/truvi/booking-etl/internal/db"
)

const truncateRawData = "TRUNCATE TABLE data.raw_data;"

// Source is the upstream side of the pipeline: Run pushes page batches
// into the subscribed chain until the result set is exhausted.
type Source interface {
	Run(context.Context) error
}

// Executor is the slice of the database gateway the runner needs.
type Executor interface {
	Execute(ctx context.Context, query string) (db.Result, error)
}

// Exporter materializes the final table after ingestion completes.
type Exporter interface {
	Export(context.Context) error
}

// Runner drives one ingestion run: reset the staging table, drain the
// paginated source through the processor chain, then export the final
// table. The run is strictly sequential and every step blocks.
type Runner struct {
	gateway  Executor
	source   Source
	exporter Exporter
	logger   *zap.Logger
}

func New(gateway Executor, source Source, exporter Exporter, logger *zap.Logger) *Runner {
	return &Runner{
		gateway:  gateway,
		source:   source,
		exporter: exporter,
		logger:   logger,
	}
}

// Run executes the truncate -> page loop -> export sequence. The first
// failure aborts the remaining steps and is returned to the caller; the
// stopped line is logged no matter how the run ends.
func (r *Runner) Run(ctx context.Context) error {
	defer r.logger.Info("ingestion run stopped")

	if _, err := r.gateway.Execute(ctx, truncateRawData); err != nil {
		return errors.Wrap(err, "resetting raw_data")
	}

	if err := r.source.Run(ctx); err != nil {
		return errors.Wrap(err, "ingesting bookings")
	}

	return r.exporter.Export(ctx)
}
