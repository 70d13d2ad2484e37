package report_test

import (
	"context"
	"encoding/json"
	"errors"
	"settlement/entity"
	"settlement/report"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedEngine_Summarize(t *testing.T) {
	ctx := context.Background()
	engine := report.NewEngine(report.DefaultFeeRate)
	w := entity.Window{From: march, To: april}
	bookings := snapshot()

	want, err := engine.Summarize(ctx, "c-1", bookings, w)
	require.NoError(t, err)
	payload, err := json.Marshal(want)
	require.NoError(t, err)

	key := report.SummaryKey("c-1", "0.02", bookings, w)
	ttl := time.Minute

	t.Run("miss_then_store", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectGet(key).RedisNil()
		mock.ExpectSet(key, string(payload), ttl).SetVal("OK")

		got, err := report.NewCachedEngine(engine, db, ttl, nil).Summarize(ctx, "c-1", bookings, w)
		require.NoError(t, err)

		assert.Equal(t, want.GMV.String(), got.GMV.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hit", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectGet(key).SetVal(string(payload))

		got, err := report.NewCachedEngine(engine, db, ttl, nil).Summarize(ctx, "c-1", bookings, w)
		require.NoError(t, err)

		assert.Equal(t, "485.000", got.GMV.String())
		assert.Equal(t, "9.700", got.PlatformFee.String())
		assert.Equal(t, "250.000", got.PendingBalance.String())
		assert.Equal(t, 5, got.Bookings)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis_down", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.ExpectGet(key).SetErr(errors.New("connection refused"))
		mock.ExpectSet(key, string(payload), ttl).SetErr(errors.New("connection refused"))

		got, err := report.NewCachedEngine(engine, db, ttl, nil).Summarize(ctx, "c-1", bookings, w)
		require.NoError(t, err)

		assert.Equal(t, "485.000", got.GMV.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSummaryKey(t *testing.T) {
	w := entity.Window{From: march, To: april}
	bookings := snapshot()

	key := report.SummaryKey("c-1", "0.02", bookings, w)

	reversed := make([]entity.Booking, len(bookings))
	for i, b := range bookings {
		reversed[len(bookings)-1-i] = b
	}
	assert.Equal(t, key, report.SummaryKey("c-1", "0.02", reversed, w), "order does not matter")

	bookings[0].Version++
	assert.NotEqual(t, key, report.SummaryKey("c-1", "0.02", bookings, w), "a new booking version changes the key")

	assert.NotEqual(t, key, report.SummaryKey("c-1", "0.03", reversed, w))
}
