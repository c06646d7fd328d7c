package consumer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/truvi/booking-etl/processor"
)

// SaveToPostgreSQL appends validated booking batches to the raw_data
// staging table. It shares the run's database handle and never reads the
// table back; rows only leave through the final-table export.
type SaveToPostgreSQL struct {
	db         *sql.DB
	schema     string
	table      string
	logger     *zap.Logger
	processors []processor.Processor
	stats      struct {
		batchesWritten int64
		rowsWritten    int64
		lastWrittenAt  time.Time
	}
}

func NewSaveToPostgreSQL(db *sql.DB, schema, table string, logger *zap.Logger) *SaveToPostgreSQL {
	return &SaveToPostgreSQL{
		db:     db,
		schema: schema,
		table:  table,
		logger: logger,
	}
}

func (c *SaveToPostgreSQL) Subscribe(p processor.Processor) {
	c.processors = append(c.processors, p)
}

func (c *SaveToPostgreSQL) Process(ctx context.Context, msg processor.Message) error {
	batch, err := processor.ExtractBatch(msg)
	if err != nil {
		return err
	}

	if batch.Empty() {
		c.logger.Debug("empty batch, nothing to write")
		return nil
	}

	if err := c.writeBatch(ctx, batch); err != nil {
		return fmt.Errorf("error writing batch: %w", err)
	}

	c.stats.batchesWritten++
	c.stats.rowsWritten += int64(batch.NumRows())
	c.stats.lastWrittenAt = time.Now()
	c.logger.Debug("batch written to database",
		zap.Int("rows", batch.NumRows()),
		zap.Int64("total_rows", c.stats.rowsWritten))

	return processor.ForwardToProcessors(ctx, batch, c.processors)
}

func (c *SaveToPostgreSQL) writeBatch(ctx context.Context, batch *processor.Batch) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, c.insertStatement(batch.Columns))
	if err != nil {
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, row := range batch.Rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("error inserting row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (c *SaveToPostgreSQL) insertStatement(columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = pq.QuoteIdentifier(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES (%s)",
		pq.QuoteIdentifier(c.schema),
		pq.QuoteIdentifier(c.table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))
}
