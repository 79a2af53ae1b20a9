// repository/booking/repo.go
package bookingrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/nathandem/library/model"
)

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, b *model.Booking) error
	CountOpenTx(ctx context.Context, tx *sql.Tx, subscriberID int64) (int, error)
	OlderOpenForTitle(ctx context.Context, tx *sql.Tx, titleID, excludeID int64) (bool, error)

	SubscribersWithPending(ctx context.Context) ([]int64, error)
	PendingBySubscriber(ctx context.Context, tx *sql.Tx, subscriberID int64) ([]model.Booking, error)

	MarkResolved(ctx context.Context, tx *sql.Tx, id, copyID int64, on time.Time) error
	CancelAndRelease(ctx context.Context, tx *sql.Tx, id int64) error
	MarkWithdrawn(ctx context.Context, tx *sql.Tx, id int64, on time.Time) error
	ResolvedByCopy(ctx context.Context, tx *sql.Tx, copyID int64) (*model.Booking, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `
		INSERT INTO bookings (subscriber_id, title_id, request_made_on)
		VALUES ($1, $2, $3)
		RETURNING id`
	return tx.QueryRowContext(ctx, q, b.SubscriberID, b.TitleID, b.RequestMadeOn).Scan(&b.ID)
}

// CountOpenTx counts bookings still waiting for a copy; these are the ones
// capped by MAX_BOOKING_BOOKS.
func (r *repo) CountOpenTx(ctx context.Context, tx *sql.Tx, subscriberID int64) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM bookings
		WHERE subscriber_id = $1
		AND cancelled = FALSE
		AND copy_id IS NULL`
	var n int
	err := tx.QueryRowContext(ctx, q, subscriberID).Scan(&n)
	return n, err
}

// OlderOpenForTitle reports whether any subscriber is already queued for the
// title. Used to keep a fresh reservation from jumping the queue when a copy
// happens to be on the shelf.
func (r *repo) OlderOpenForTitle(ctx context.Context, tx *sql.Tx, titleID, excludeID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1
			FROM bookings
			WHERE title_id = $1
			AND id <> $2
			AND cancelled = FALSE
			AND copy_id IS NULL
		)`
	var ok bool
	err := tx.QueryRowContext(ctx, q, titleID, excludeID).Scan(&ok)
	return ok, err
}

// SubscribersWithPending lists subscribers holding at least one booking that
// the resolution job still has to look at: not cancelled, not withdrawn.
// Ordered by each subscriber's oldest pending request, so the resolution pass
// serves the earliest request first across subscribers, not just within one.
func (r *repo) SubscribersWithPending(ctx context.Context) ([]int64, error) {
	const q = `
		SELECT subscriber_id
		FROM bookings
		WHERE cancelled = FALSE
		AND withdrawn_on IS NULL
		GROUP BY subscriber_id
		ORDER BY MIN(request_made_on), subscriber_id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// PendingBySubscriber returns the subscriber's live bookings oldest request
// first, which is what makes resolution first-come-first-served.
func (r *repo) PendingBySubscriber(ctx context.Context, tx *sql.Tx, subscriberID int64) ([]model.Booking, error) {
	const q = `
		SELECT id, subscriber_id, title_id, request_made_on, cancelled, copy_id, booked_on, withdrawn_on
		FROM bookings
		WHERE subscriber_id = $1
		AND cancelled = FALSE
		AND withdrawn_on IS NULL
		ORDER BY request_made_on, id
		FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, subscriberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.SubscriberID, &b.TitleID, &b.RequestMadeOn,
			&b.Cancelled, &b.CopyID, &b.BookedOn, &b.WithdrawnOn); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) MarkResolved(ctx context.Context, tx *sql.Tx, id, copyID int64, on time.Time) error {
	const q = `
		UPDATE bookings
		SET copy_id = $2,
			booked_on = $3
		WHERE id = $1
		AND cancelled = FALSE`
	_, err := tx.ExecContext(ctx, q, id, copyID, on)
	return err
}

// CancelAndRelease cancels the booking and drops the copy assignment, so the
// cancelled record satisfies resolved-iff-copy-set.
func (r *repo) CancelAndRelease(ctx context.Context, tx *sql.Tx, id int64) error {
	const q = `
		UPDATE bookings
		SET cancelled = TRUE,
			copy_id = NULL
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}

func (r *repo) MarkWithdrawn(ctx context.Context, tx *sql.Tx, id int64, on time.Time) error {
	const q = `
		UPDATE bookings
		SET withdrawn_on = $2
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, on)
	return err
}

// ResolvedByCopy finds the live booking holding the given copy.
func (r *repo) ResolvedByCopy(ctx context.Context, tx *sql.Tx, copyID int64) (*model.Booking, error) {
	const q = `
		SELECT id, subscriber_id, title_id, request_made_on, cancelled, copy_id, booked_on, withdrawn_on
		FROM bookings
		WHERE copy_id = $1
		AND cancelled = FALSE
		AND withdrawn_on IS NULL
		FOR UPDATE`
	var b model.Booking
	err := tx.QueryRowContext(ctx, q, copyID).Scan(
		&b.ID, &b.SubscriberID, &b.TitleID, &b.RequestMadeOn,
		&b.Cancelled, &b.CopyID, &b.BookedOn, &b.WithdrawnOn)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
