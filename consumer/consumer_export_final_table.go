package consumer

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/truvi/booking-etl/internal/db"
	"github.com/truvi/booking-etl/utils"
)

// ErrEmptyFinalTable reports a final table with no rows. An empty export
// is a data-integrity problem requiring operator attention, not a soft
// warning, so no output file is produced.
var ErrEmptyFinalTable = errors.New("no data in final table")

const finalTableQuery = "SELECT * FROM data.final_table;"

// FinalTableExporter materializes data.final_table into the output
// directory once ingestion has finished: always final_table.csv, plus
// final_table.xlsx when Excel output is enabled.
type FinalTableExporter struct {
	gateway   *db.Gateway
	outputDir string
	excel     bool
	logger    *zap.Logger
}

func NewFinalTableExporter(gateway *db.Gateway, outputDir string, excel bool, logger *zap.Logger) *FinalTableExporter {
	return &FinalTableExporter{
		gateway:   gateway,
		outputDir: outputDir,
		excel:     excel,
		logger:    logger,
	}
}

func (e *FinalTableExporter) Export(ctx context.Context) error {
	result, err := e.gateway.Execute(ctx, finalTableQuery)
	if err != nil {
		return err
	}
	if !result.RowSet() || len(result.Rows) == 0 {
		return errors.Wrap(ErrEmptyFinalTable, "data.final_table")
	}

	csvPath := filepath.Join(e.outputDir, "final_table.csv")
	if err := writeCSV(csvPath, result); err != nil {
		return err
	}
	e.logger.Info("final table written to csv", zap.String("path", csvPath))

	if e.excel {
		xlsxPath := filepath.Join(e.outputDir, "final_table.xlsx")
		if err := writeExcel(xlsxPath, result); err != nil {
			return err
		}
		e.logger.Info("final table written to excel", zap.String("path", xlsxPath))
	}
	return nil
}

func writeCSV(path string, result db.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(result.Columns); err != nil {
		return errors.Wrap(err, "writing csv header")
	}

	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i, v := range row {
			record[i] = formatValue(v)
		}
		if err := w.Write(record); err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}

	w.Flush()
	return errors.Wrap(w.Error(), "flushing csv")
}

func writeExcel(path string, result db.Result) error {
	writer, err := utils.NewExcelWriter(path, "final_table", result.Columns)
	if err != nil {
		return err
	}
	defer writer.Close()

	for _, row := range result.Rows {
		values := make([]interface{}, len(row))
		for i, v := range row {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			} else {
				values[i] = v
			}
		}
		if err := writer.AppendRow(values); err != nil {
			return err
		}
	}
	return writer.Save()
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(t)
	}
}
