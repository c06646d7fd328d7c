package utils

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExcelWriter materializes one tabular result as a single-sheet workbook.
type ExcelWriter struct {
	filePath  string
	sheetName string
	file      *excelize.File
	nextRow   int
}

// NewExcelWriter creates a fresh workbook with a header row. Any existing
// file at filePath is replaced on Save.
func NewExcelWriter(filePath, sheetName string, headers []string) (*ExcelWriter, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheetName)

	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("error naming header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("error writing header %q: %w", h, err)
		}
	}

	return &ExcelWriter{
		filePath:  filePath,
		sheetName: sheetName,
		file:      f,
		nextRow:   2,
	}, nil
}

func (w *ExcelWriter) AppendRow(values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, w.nextRow)
		if err != nil {
			return fmt.Errorf("error naming cell: %w", err)
		}
		if err := w.file.SetCellValue(w.sheetName, cell, v); err != nil {
			return fmt.Errorf("error writing cell %s: %w", cell, err)
		}
	}
	w.nextRow++
	return nil
}

func (w *ExcelWriter) Save() error {
	if err := w.file.SaveAs(w.filePath); err != nil {
		return fmt.Errorf("error saving Excel file: %w", err)
	}
	return nil
}

func (w *ExcelWriter) Close() error {
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}
