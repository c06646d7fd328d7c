package processor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type captureProcessor struct {
	messages []Message
	err      error
}

func (c *captureProcessor) Process(_ context.Context, msg Message) error {
	c.messages = append(c.messages, msg)
	return c.err
}

func (c *captureProcessor) Subscribe(Processor) {}

func fiveColumnBatch() *Batch {
	return &Batch{
		Columns: []string{"booking_id", "guest", "nights", "price", "created_at"},
		Rows: [][]interface{}{
			{json.Number("1"), "alice", json.Number("3"), "120.50", "2024-03-15T10:30:00Z"},
			{json.Number("2"), "bob", json.Number("1"), "80.00", "2024-03-16 09:00:00"},
		},
	}
}

func TestValidateBookingsEmptyBatch(t *testing.T) {
	downstream := &captureProcessor{}
	v := NewValidateBookings([]string{"created_at"}, zaptest.NewLogger(t))
	v.Subscribe(downstream)

	err := v.Process(context.Background(), Message{Payload: &Batch{}})
	require.NoError(t, err)
	assert.Empty(t, downstream.messages, "empty batch must not be forwarded")
}

func TestValidateBookingsColumnCount(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
	}{
		{name: "too few", columns: []string{"a", "b", "c"}},
		{name: "too many", columns: []string{"a", "b", "c", "d", "e", "f"}},
		{name: "single", columns: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := &Batch{Columns: tt.columns, Rows: [][]interface{}{make([]interface{}, len(tt.columns))}}
			v := NewValidateBookings(nil, zaptest.NewLogger(t))

			err := v.Process(context.Background(), Message{Payload: batch})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrColumnCount))
		})
	}
}

func TestValidateBookingsParsesDateColumns(t *testing.T) {
	batch := fiveColumnBatch()
	downstream := &captureProcessor{}
	v := NewValidateBookings([]string{"created_at", "not_present"}, zaptest.NewLogger(t))
	v.Subscribe(downstream)

	require.NoError(t, v.Process(context.Background(), Message{Payload: batch}))

	require.Len(t, downstream.messages, 1)
	forwarded, err := ExtractBatch(downstream.messages[0])
	require.NoError(t, err)

	ts, ok := forwarded.Rows[0][4].(time.Time)
	require.True(t, ok, "created_at should be parsed in place, got %T", forwarded.Rows[0][4])
	assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), ts.UTC())

	_, ok = forwarded.Rows[1][4].(time.Time)
	assert.True(t, ok)
}

func TestValidateBookingsUnparsableDate(t *testing.T) {
	batch := fiveColumnBatch()
	batch.Rows[1][4] = "never o'clock"
	v := NewValidateBookings([]string{"created_at"}, zaptest.NewLogger(t))

	err := v.Process(context.Background(), Message{Payload: batch})
	assert.Error(t, err)
}

func TestValidateBookingsNilDateValueKept(t *testing.T) {
	batch := fiveColumnBatch()
	batch.Rows[0][4] = nil
	downstream := &captureProcessor{}
	v := NewValidateBookings([]string{"created_at"}, zaptest.NewLogger(t))
	v.Subscribe(downstream)

	require.NoError(t, v.Process(context.Background(), Message{Payload: batch}))
	require.Len(t, downstream.messages, 1)
	forwarded, _ := ExtractBatch(downstream.messages[0])
	assert.Nil(t, forwarded.Rows[0][4])
}

func TestValidateBookingsDownstreamError(t *testing.T) {
	downstream := &captureProcessor{err: errors.New("disk full")}
	v := NewValidateBookings(nil, zaptest.NewLogger(t))
	v.Subscribe(downstream)

	err := v.Process(context.Background(), Message{Payload: fiveColumnBatch()})
	assert.Error(t, err)
}
