package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/market-indicators/internal/models"
)

var candleColumns = []string{"time", "open", "high", "low", "close", "volume"}

func TestPostgresClient_GetLatestCandles(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	client := NewPostgresClientFromDB(db)

	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	rows := sqlmock.NewRows(candleColumns).
		AddRow(day(3), 12.0, 13.0, 11.0, 12.5, 300.0).
		AddRow(day(2), 11.0, 12.0, 10.0, 11.5, 200.0)

	mock.ExpectQuery("SELECT time, open, high, low, close, volume FROM candles").
		WithArgs("AAPL", 2).
		WillReturnRows(rows)

	candles, err := client.GetLatestCandles(context.Background(), "AAPL", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	// newest-first rows come back chronological
	assert.Equal(t, "2024-03-02", candles[0].Time)
	assert.Equal(t, "2024-03-03", candles[1].Time)
	assert.Equal(t, 12.5, candles[1].Close)
	assert.Equal(t, 300.0, candles[1].Volume)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClient_GetLatestCandles_NoLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	client := NewPostgresClientFromDB(db)

	intraday := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	mock.ExpectQuery("FROM candles").
		WithArgs("AAPL").
		WillReturnRows(sqlmock.NewRows(candleColumns).AddRow(intraday, 1.0, 2.0, 0.5, 1.5, 10.0))

	candles, err := client.GetLatestCandles(context.Background(), "AAPL", 0)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, "2024-03-01T14:30:00Z", candles[0].Time)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClient_GetLatestCandles_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	client := NewPostgresClientFromDB(db)

	mock.ExpectQuery("FROM candles").WillReturnError(errors.New("connection reset"))

	_, err = client.GetLatestCandles(context.Background(), "AAPL", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresClient_GetLatestCandles_ScanError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	client := NewPostgresClientFromDB(db)

	mock.ExpectQuery("FROM candles").
		WillReturnRows(sqlmock.NewRows(candleColumns).AddRow("not a time", 1.0, 2.0, 0.5, 1.5, 10.0))

	_, err = client.GetLatestCandles(context.Background(), "AAPL", 5)
	assert.Error(t, err)
}

func TestPostgresClient_EmptySymbol(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	client := NewPostgresClientFromDB(db)

	_, err = client.GetLatestCandles(context.Background(), "", 5)
	assert.ErrorIs(t, err, models.ErrInvalidSymbol)
}

func TestPostgresClient_Close(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	require.NoError(t, NewPostgresClientFromDB(db).Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeKey(t *testing.T) {
	assert.Equal(t, "2024-01-05", TimeKey(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-01-05T09:30:00Z", TimeKey(time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC)))

	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "2024-01-05", TimeKey(time.Date(2024, 1, 4, 19, 0, 0, 0, est)))
}

func TestMockRedisClient_Sets(t *testing.T) {
	ctx := context.Background()
	m := NewMockRedisClient()

	require.NoError(t, m.SetAdd(ctx, "names", "b", "a", "b"))
	members, err := m.SetMembers(ctx, "names")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, members)

	require.NoError(t, m.SetRemove(ctx, "names", "a", "b"))
	exists, err := m.Exists(ctx, "names")
	require.NoError(t, err)
	assert.False(t, exists)
}
