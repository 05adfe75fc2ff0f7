package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockPostgresEventStore(t *testing.T) (*PostgresEventStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresEventStore(db, nil, zap.NewNop()), mock
}

func expectVersionRead(mock sqlmock.Sqlmock, aggregateID string, version int) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(version), 0) FROM events`)).
		WithArgs(aggregateID).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(version))
}

func TestPostgresEventStore_AppendNextVersion(t *testing.T) {
	es, mock := newMockPostgresEventStore(t)
	var handled []Event
	es.Subscribe(func(_ context.Context, e Event) error {
		handled = append(handled, e)
		return nil
	})

	expectVersionRead(mock, "cart-u1", 2)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO events`)).
		WithArgs(sqlmock.AnyArg(), "cart-u1", "Cart", "ItemAddedToCart", sqlmock.AnyArg(), 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event, err := es.Append(context.Background(), "cart-u1", "Cart", "ItemAddedToCart", map[string]int{"quantity": 1})
	require.NoError(t, err)
	assert.Equal(t, 3, event.Version)
	assert.Len(t, handled, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEventStore_AppendRaceIsVersionConflict(t *testing.T) {
	es, mock := newMockPostgresEventStore(t)
	es.Subscribe(func(context.Context, Event) error {
		t.Fatal("handler must not run for a rejected append")
		return nil
	})

	expectVersionRead(mock, "cart-u1", 2)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO events`)).
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Message: "duplicate key value violates unique constraint"})

	_, err := es.Append(context.Background(), "cart-u1", "Cart", "ItemAddedToCart", map[string]int{"quantity": 1})
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEventStore_AppendOtherInsertError(t *testing.T) {
	es, mock := newMockPostgresEventStore(t)

	expectVersionRead(mock, "cart-u1", 0)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO events`)).
		WillReturnError(&pq.Error{Code: "23502"})

	_, err := es.Append(context.Background(), "cart-u1", "Cart", "ItemAddedToCart", map[string]int{"quantity": 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrVersionConflict)
}
