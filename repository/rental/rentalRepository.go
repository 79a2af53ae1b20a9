// repository/rental/repo.go
package rentalrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/nathandem/library/model"
)

type HistoryRow struct {
	RentalID   int64      `json:"rental_id"`
	CopyID     int64      `json:"copy_id"`
	TitleName  string     `json:"title_name"`
	RentOn     time.Time  `json:"rent_on"`
	DueFor     time.Time  `json:"due_for"`
	ReturnedOn *time.Time `json:"returned_on,omitempty"`
	Late       bool       `json:"late"`
}

// OpenRow is an open rental with just enough context for eligibility
// summaries and reminder emails.
type OpenRow struct {
	RentalID     int64     `json:"rental_id"`
	SubscriberID int64     `json:"subscriber_id"`
	Email        string    `json:"email"`
	TitleName    string    `json:"title_name"`
	DueFor       time.Time `json:"due_for"`
	Late         bool      `json:"late"`
}

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, r *model.Rental) error
	CountOpen(ctx context.Context, subscriberID int64) (int, error)
	CountOpenTx(ctx context.Context, tx *sql.Tx, subscriberID int64) (int, error)
	OpenByCopyForUpdate(ctx context.Context, tx *sql.Tx, copyID int64) (*model.Rental, error)
	MarkReturned(ctx context.Context, tx *sql.Tx, rentalID int64, on time.Time, late bool) error
	MarkLate(ctx context.Context, tx *sql.Tx, rentalID int64) error

	OpenBySubscriber(ctx context.Context, subscriberID int64) ([]OpenRow, error)
	History(ctx context.Context, subscriberID int64) ([]HistoryRow, error)

	OpenDueOnOrBefore(ctx context.Context, day time.Time) ([]OpenRow, error)
	OpenDueOn(ctx context.Context, day time.Time) ([]OpenRow, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, m *model.Rental) error {
	const q = `
		INSERT INTO rentals (subscriber_id, copy_id, rent_on, due_for)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	return tx.QueryRowContext(ctx, q, m.SubscriberID, m.CopyID, m.RentOn, m.DueFor).Scan(&m.ID)
}

func (r *repo) CountOpen(ctx context.Context, subscriberID int64) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM rentals
		WHERE subscriber_id = $1
		AND returned_on IS NULL`
	var n int
	err := r.db.QueryRowContext(ctx, q, subscriberID).Scan(&n)
	return n, err
}

func (r *repo) CountOpenTx(ctx context.Context, tx *sql.Tx, subscriberID int64) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM rentals
		WHERE subscriber_id = $1
		AND returned_on IS NULL`
	var n int
	err := tx.QueryRowContext(ctx, q, subscriberID).Scan(&n)
	return n, err
}

// OpenByCopyForUpdate returns the single open rental on the copy, if any.
// The schema allows at most one (partial unique index on returned_on IS NULL).
func (r *repo) OpenByCopyForUpdate(ctx context.Context, tx *sql.Tx, copyID int64) (*model.Rental, error) {
	const q = `
		SELECT id, subscriber_id, copy_id, rent_on, due_for, returned_on, late
		FROM rentals
		WHERE copy_id = $1
		AND returned_on IS NULL
		FOR UPDATE`
	var m model.Rental
	err := tx.QueryRowContext(ctx, q, copyID).Scan(
		&m.ID, &m.SubscriberID, &m.CopyID, &m.RentOn, &m.DueFor, &m.ReturnedOn, &m.Late)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repo) MarkReturned(ctx context.Context, tx *sql.Tx, rentalID int64, on time.Time, late bool) error {
	const q = `
		UPDATE rentals
		SET returned_on = $2,
			late = $3
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, rentalID, on, late)
	return err
}

func (r *repo) MarkLate(ctx context.Context, tx *sql.Tx, rentalID int64) error {
	const q = `
		UPDATE rentals
		SET late = TRUE
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, rentalID)
	return err
}

const openRowSelect = `
	SELECT r.id, s.id, u.email, t.name, r.due_for, r.late
	FROM rentals r
	JOIN subscribers s ON s.id = r.subscriber_id
	JOIN users u ON u.id = s.user_id
	JOIN copies c ON c.id = r.copy_id
	JOIN titles t ON t.id = c.title_id
	WHERE r.returned_on IS NULL`

func (r *repo) OpenBySubscriber(ctx context.Context, subscriberID int64) ([]OpenRow, error) {
	q := openRowSelect + `
	AND r.subscriber_id = $1
	ORDER BY r.due_for, r.id`
	return r.queryOpenRows(ctx, q, subscriberID)
}

func (r *repo) OpenDueOnOrBefore(ctx context.Context, day time.Time) ([]OpenRow, error) {
	q := openRowSelect + `
	AND r.due_for <= $1
	ORDER BY s.id, r.due_for, r.id`
	return r.queryOpenRows(ctx, q, day)
}

func (r *repo) OpenDueOn(ctx context.Context, day time.Time) ([]OpenRow, error) {
	q := openRowSelect + `
	AND r.due_for = $1
	ORDER BY s.id, r.id`
	return r.queryOpenRows(ctx, q, day)
}

func (r *repo) queryOpenRows(ctx context.Context, q string, args ...any) ([]OpenRow, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OpenRow
	for rows.Next() {
		var o OpenRow
		if err := rows.Scan(&o.RentalID, &o.SubscriberID, &o.Email, &o.TitleName, &o.DueFor, &o.Late); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repo) History(ctx context.Context, subscriberID int64) ([]HistoryRow, error) {
	const q = `
		SELECT r.id, r.copy_id, t.name, r.rent_on, r.due_for, r.returned_on, r.late
		FROM rentals r
		JOIN copies c ON c.id = r.copy_id
		JOIN titles t ON t.id = c.title_id
		WHERE r.subscriber_id = $1
		ORDER BY r.rent_on DESC, r.id DESC`
	rows, err := r.db.QueryContext(ctx, q, subscriberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		if err := rows.Scan(&h.RentalID, &h.CopyID, &h.TitleName, &h.RentOn, &h.DueFor, &h.ReturnedOn, &h.Late); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
