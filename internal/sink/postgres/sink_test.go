package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	md5hash "github.com/drunksu/crawler/internal/hash/md5"
	"github.com/drunksu/crawler/internal/pipeline"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func newMockSink(t *testing.T) (*Sink, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	sink, err := NewWithPool(mock, "suning_products", md5hash.New(), fixedClock{now: time.Unix(1700000000, 0).UTC()})
	require.NoError(t, err)
	return sink, mock
}

func TestNewWithPoolValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewWithPool(nil, "t", md5hash.New(), fixedClock{}); err == nil {
		t.Fatal("expected error for nil pool")
	}

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	if _, err := NewWithPool(mock, "bad;table", md5hash.New(), fixedClock{}); err == nil {
		t.Fatal("expected error for invalid table name")
	}
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	sink, mock := newMockSink(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS suning_products").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, sink.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpsertsByFingerprint(t *testing.T) {
	t.Parallel()

	sink, mock := newMockSink(t)
	storedAt := time.Unix(1700000000, 0).UTC()
	mock.ExpectExec(`(?s)INSERT INTO suning_products.*ON CONFLICT \(row_key\) DO UPDATE`).
		WithArgs("595243abf341b6b0943774e13e4e76b6", "Phone X", "¥999", storedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	key, err := sink.Store(context.Background(), pipeline.ProductRecord{Title: "Phone X", Price: "¥999"})
	require.NoError(t, err)
	require.Equal(t, "595243abf341b6b0943774e13e4e76b6", key)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreFailurePropagates(t *testing.T) {
	t.Parallel()

	sink, mock := newMockSink(t)
	mock.ExpectExec("INSERT INTO suning_products").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	_, err := sink.Store(context.Background(), pipeline.ProductRecord{Title: "Case Y", Price: "¥19"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "upsert record")
	require.NoError(t, mock.ExpectationsWereMet())
}
