package processor

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/truvi/booking-etl/utils"
)

// ExpectedColumns is the column-count contract between the bookings API
// and the raw_data staging table. A batch of any other width signals a
// shape change upstream and fails the run.
const ExpectedColumns = 5

// ErrColumnCount reports a batch that violates the raw_data column contract.
var ErrColumnCount = errors.New("unexpected column count")

// ValidateBookings gates every fetched page before it reaches the staging
// table: empty pages are dropped, the column contract is enforced, and the
// configured date columns are parsed to timestamps in place.
type ValidateBookings struct {
	dateColumns []string
	logger      *zap.Logger
	processors  []Processor
}

func NewValidateBookings(dateColumns []string, logger *zap.Logger) *ValidateBookings {
	return &ValidateBookings{
		dateColumns: dateColumns,
		logger:      logger,
	}
}

func (v *ValidateBookings) Subscribe(p Processor) {
	v.processors = append(v.processors, p)
}

func (v *ValidateBookings) Process(ctx context.Context, msg Message) error {
	batch, err := ExtractBatch(msg)
	if err != nil {
		return err
	}

	if batch.Empty() {
		v.logger.Info("empty batch, nothing to validate")
		return nil
	}

	if got := batch.NumColumns(); got != ExpectedColumns {
		return errors.Wrapf(ErrColumnCount, "batch has %d columns, expected %d", got, ExpectedColumns)
	}

	for _, name := range v.dateColumns {
		col := batch.ColumnIndex(name)
		if col < 0 {
			continue
		}
		for i, row := range batch.Rows {
			if row[col] == nil {
				continue
			}
			raw, ok := row[col].(string)
			if !ok {
				return errors.Errorf("column %q row %d: expected string timestamp, got %T", name, i, row[col])
			}
			ts, err := utils.ParseTimestamp(raw)
			if err != nil {
				return errors.Wrapf(err, "column %q row %d", name, i)
			}
			row[col] = ts
		}
		v.logger.Debug("converted column to timestamp", zap.String("column", name))
	}

	return ForwardToProcessors(ctx, batch, v.processors)
}
