package consumer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/truvi/booking-etl/internal/db"
)

func newExporter(t *testing.T, excel bool) (*FinalTableExporter, sqlmock.Sqlmock, string) {
	t.Helper()
	database, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	logger := zaptest.NewLogger(t)
	dir := t.TempDir()
	gateway := db.New(database, logger)
	return NewFinalTableExporter(gateway, dir, excel, logger), mock, dir
}

func TestExportWritesCSV(t *testing.T) {
	e, mock, dir := newExporter(t, false)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT * FROM data.final_table;").
		WillReturnRows(sqlmock.NewRows([]string{"day", "bookings", "revenue"}).
			AddRow("2024-03-15", 12, "1450.00").
			AddRow("2024-03-16", 7, "802.50"))
	mock.ExpectCommit()

	require.NoError(t, e.Export(context.Background()))

	contents, err := os.ReadFile(filepath.Join(dir, "final_table.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"day,bookings,revenue\n2024-03-15,12,1450.00\n2024-03-16,7,802.50\n",
		string(contents))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportEmptyFinalTable(t *testing.T) {
	e, mock, dir := newExporter(t, false)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT * FROM data.final_table;").
		WillReturnRows(sqlmock.NewRows([]string{"day", "bookings"}))
	mock.ExpectCommit()

	err := e.Export(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyFinalTable))

	_, statErr := os.Stat(filepath.Join(dir, "final_table.csv"))
	assert.True(t, os.IsNotExist(statErr), "no output file may exist after a failed export")
}

func TestExportQueryFailure(t *testing.T) {
	e, mock, dir := newExporter(t, false)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT * FROM data.final_table;").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	assert.Error(t, e.Export(context.Background()))
	_, statErr := os.Stat(filepath.Join(dir, "final_table.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExportWritesExcelWhenEnabled(t *testing.T) {
	e, mock, dir := newExporter(t, true)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT * FROM data.final_table;").
		WillReturnRows(sqlmock.NewRows([]string{"day", "bookings"}).
			AddRow("2024-03-15", 12))
	mock.ExpectCommit()

	require.NoError(t, e.Export(context.Background()))

	_, err := os.Stat(filepath.Join(dir, "final_table.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "final_table.xlsx"))
	assert.NoError(t, err)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", formatValue(nil))
	assert.Equal(t, "hello", formatValue([]byte("hello")))
	assert.Equal(t, "42", formatValue(int64(42)))
}
