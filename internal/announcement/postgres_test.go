package announcement

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/walkbot/internal/walk"
)

var rowColumns = []string{
	"id", "author_id", "topic", "place_kind", "place_text", "place_lat", "place_lon", "datetime", "contact",
	"description", "photo", "status", "created_at", "published_at", "rejected_at", "channel_chat_id", "channel_message_id",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	store := NewPostgresStore(sqlx.NewDb(raw, "postgres"))
	store.now = func() time.Time { return time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC) }
	return store, mock
}

func rowValues(id, author int64, status walk.Status, place walk.Place) []driver.Value {
	return []driver.Value{
		id, author, "Walk in the park", string(place.Kind), place.Text, place.Lat, place.Lon, "Friday 6pm", "@alice",
		"Bring snacks", "", string(status), time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), nil, nil, int64(0), int64(0),
	}
}

func TestPostgresNextID(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT nextval\(pg_get_serial_sequence\('announcements', 'id'\)\)`).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(int64(42)))

	id, err := store.NextID(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddMapsUniqueViolations(t *testing.T) {
	store, mock := newMockStore(t)
	a := walk.NewAnnouncement(1, 7, walk.Draft{Topic: "walk", Place: walk.GeoPlace(52.1, 21)}, time.Now())

	mock.ExpectExec(`INSERT INTO announcements`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "announcements_one_pending_per_author"})
	require.ErrorIs(t, store.Add(context.Background(), a), ErrAlreadyPending)

	mock.ExpectExec(`INSERT INTO announcements`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "announcements_pkey"})
	require.ErrorIs(t, store.Add(context.Background(), a), ErrDuplicateID)

	mock.ExpectExec(`INSERT INTO announcements`).
		WithArgs(int64(1), int64(7), "walk", "geo", "", 52.1, 21.0, "", "", "", "", "pending",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(0), int64(0)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, store.Add(context.Background(), a))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListByAuthor(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .+ FROM announcements WHERE author_id = \$1 ORDER BY created_at, id`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(rowColumns).
			AddRow(rowValues(1, 7, walk.StatusRejected, walk.TextPlace("gate"))...).
			AddRow(rowValues(2, 7, walk.StatusPending, walk.GeoPlace(52.1, 21))...))

	list, err := store.ListByAuthor(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, walk.TextPlace("gate"), list[0].Place)
	require.Equal(t, walk.StatusRejected, list[0].Status)
	require.Equal(t, walk.GeoPlace(52.1, 21), list[1].Place)
	require.True(t, list[1].PublishedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemoveByOtherAuthorIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`DELETE FROM announcements WHERE id = \$1 AND author_id = \$2 RETURNING`).
		WithArgs(int64(3), int64(1)).
		WillReturnRows(sqlmock.NewRows(rowColumns))

	_, err := store.RemoveByIDAndAuthor(context.Background(), 3, 1)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkPublished(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM announcements WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(rowValues(9, 7, walk.StatusPending, walk.TextPlace("gate"))...))
	mock.ExpectExec(`UPDATE announcements`).
		WithArgs(int64(9), "published", sqlmock.AnyArg(), sqlmock.AnyArg(), int64(-100), int64(55)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a, err := store.MarkPublished(context.Background(), 9, walk.ChannelRef{ChatID: -100, MessageID: 55})
	require.NoError(t, err)
	require.Equal(t, walk.StatusPublished, a.Status)
	require.Equal(t, 55, a.Channel.MessageID)
	require.Equal(t, store.now(), a.PublishedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkPublishedRejectsTerminal(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(rowValues(9, 7, walk.StatusRejected, walk.TextPlace("gate"))...))
	mock.ExpectRollback()

	_, err := store.MarkPublished(context.Background(), 9, walk.ChannelRef{ChatID: -100, MessageID: 55})
	require.ErrorIs(t, err, walk.ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStats(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT status, COUNT\(\*\) AS n FROM announcements GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "n"}).AddRow("pending", 2).AddRow("published", 5))

	st, err := store.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, Stats{Pending: 2, Published: 5}, st)
	require.Equal(t, 7, st.Total())
	require.NoError(t, mock.ExpectationsWereMet())
}
