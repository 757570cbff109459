package announcement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/walkbot/internal/walk"
)

const (
	pqUniqueViolation = "23505"
	pkeyConstraint    = "announcements_pkey"

	columns = `id, author_id, topic, place_kind, place_text, place_lat, place_lon, datetime, contact,
	description, photo, status, created_at, published_at, rejected_at, channel_chat_id, channel_message_id`
)

type row struct {
	ID               int64        `db:"id"`
	AuthorID         int64        `db:"author_id"`
	Topic            string       `db:"topic"`
	PlaceKind        string       `db:"place_kind"`
	PlaceText        string       `db:"place_text"`
	PlaceLat         float64      `db:"place_lat"`
	PlaceLon         float64      `db:"place_lon"`
	Datetime         string       `db:"datetime"`
	Contact          string       `db:"contact"`
	Description      string       `db:"description"`
	Photo            string       `db:"photo"`
	Status           string       `db:"status"`
	CreatedAt        time.Time    `db:"created_at"`
	PublishedAt      sql.NullTime `db:"published_at"`
	RejectedAt       sql.NullTime `db:"rejected_at"`
	ChannelChatID    int64        `db:"channel_chat_id"`
	ChannelMessageID int64        `db:"channel_message_id"`
}

func (r row) announcement() walk.Announcement {
	a := walk.Announcement{
		ID:       r.ID,
		AuthorID: r.AuthorID,
		Draft: walk.Draft{
			Topic:       r.Topic,
			Place:       walk.Place{Kind: walk.PlaceKind(r.PlaceKind), Text: r.PlaceText, Lat: r.PlaceLat, Lon: r.PlaceLon},
			Datetime:    r.Datetime,
			Contact:     r.Contact,
			Description: r.Description,
			Photo:       r.Photo,
		},
		Status:    walk.Status(r.Status),
		CreatedAt: r.CreatedAt,
		Channel:   walk.ChannelRef{ChatID: r.ChannelChatID, MessageID: int(r.ChannelMessageID)},
	}
	if r.PublishedAt.Valid {
		a.PublishedAt = r.PublishedAt.Time
	}
	if r.RejectedAt.Valid {
		a.RejectedAt = r.RejectedAt.Time
	}
	return a
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// PostgresStore persists announcements in the announcements table.
type PostgresStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgresStore wraps an open connection. The schema comes from migrations/.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// NextID implements Store.
func (s *PostgresStore) NextID(ctx context.Context) (int64, error) {
	var id int64
	if err := s.db.GetContext(ctx, &id, `SELECT nextval(pg_get_serial_sequence('announcements', 'id'))`); err != nil {
		return 0, fmt.Errorf("announcement: next id: %w", err)
	}
	return id, nil
}

// Add implements Store.
func (s *PostgresStore) Add(ctx context.Context, a walk.Announcement) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO announcements (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		a.ID, a.AuthorID, a.Topic, string(a.Place.Kind), a.Place.Text, a.Place.Lat, a.Place.Lon,
		a.Datetime, a.Contact, a.Description, a.Photo, string(a.Status), a.CreatedAt,
		nullTime(a.PublishedAt), nullTime(a.RejectedAt), a.Channel.ChatID, int64(a.Channel.MessageID),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			if pqErr.Constraint == pkeyConstraint {
				return ErrDuplicateID
			}
			return ErrAlreadyPending
		}
		return fmt.Errorf("announcement: insert: %w", err)
	}
	return nil
}

// ListByAuthor implements Store.
func (s *PostgresStore) ListByAuthor(ctx context.Context, author int64) ([]walk.Announcement, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+columns+` FROM announcements WHERE author_id = $1 ORDER BY created_at, id`, author); err != nil {
		return nil, fmt.Errorf("announcement: list: %w", err)
	}
	out := make([]walk.Announcement, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.announcement())
	}
	return out, nil
}

// FindPendingByAuthor implements Store.
func (s *PostgresStore) FindPendingByAuthor(ctx context.Context, author int64) (walk.Announcement, error) {
	var r row
	err := s.db.GetContext(ctx, &r,
		`SELECT `+columns+` FROM announcements WHERE author_id = $1 AND status = 'pending' LIMIT 1`, author)
	if err != nil {
		return walk.Announcement{}, notFound(err, "find pending")
	}
	return r.announcement(), nil
}

// RemoveByIDAndAuthor implements Store.
func (s *PostgresStore) RemoveByIDAndAuthor(ctx context.Context, id, author int64) (walk.Announcement, error) {
	var r row
	err := s.db.GetContext(ctx, &r,
		`DELETE FROM announcements WHERE id = $1 AND author_id = $2 RETURNING `+columns, id, author)
	if err != nil {
		return walk.Announcement{}, notFound(err, "remove")
	}
	return r.announcement(), nil
}

// MarkPublished implements Store.
func (s *PostgresStore) MarkPublished(ctx context.Context, id int64, ref walk.ChannelRef) (walk.Announcement, error) {
	return s.transition(ctx, id, func(a *walk.Announcement) error {
		return a.Publish(ctx, ref, s.now())
	})
}

// MarkRejected implements Store.
func (s *PostgresStore) MarkRejected(ctx context.Context, id int64) (walk.Announcement, error) {
	return s.transition(ctx, id, func(a *walk.Announcement) error {
		return a.Reject(ctx, s.now())
	})
}

// Stats implements Store.
func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS n FROM announcements GROUP BY status`); err != nil {
		return Stats{}, fmt.Errorf("announcement: stats: %w", err)
	}
	var st Stats
	for _, r := range rows {
		st.add(walk.Status(r.Status), r.N)
	}
	return st, nil
}

// transition locks the row, applies the lifecycle change in Go and writes the new status back.
func (s *PostgresStore) transition(ctx context.Context, id int64, apply func(*walk.Announcement) error) (walk.Announcement, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return walk.Announcement{}, fmt.Errorf("announcement: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var r row
	if err := tx.GetContext(ctx, &r, `SELECT `+columns+` FROM announcements WHERE id = $1 FOR UPDATE`, id); err != nil {
		return walk.Announcement{}, notFound(err, "lock")
	}
	a := r.announcement()
	if err := apply(&a); err != nil {
		return r.announcement(), err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE announcements
		SET status = $2, published_at = $3, rejected_at = $4, channel_chat_id = $5, channel_message_id = $6
		WHERE id = $1`,
		a.ID, string(a.Status), nullTime(a.PublishedAt), nullTime(a.RejectedAt), a.Channel.ChatID, int64(a.Channel.MessageID),
	); err != nil {
		return walk.Announcement{}, fmt.Errorf("announcement: update status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return walk.Announcement{}, fmt.Errorf("announcement: commit: %w", err)
	}
	return a, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("announcement: %s: %w", op, err)
}
