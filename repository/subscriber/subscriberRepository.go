// repository/subscriber/repo.go
package subscriberrepo

import (
	"context"
	"database/sql"

	"github.com/nathandem/library/model"
)

type Repo interface {
	Create(ctx context.Context, tx *sql.Tx, s *model.Subscriber) error
	Get(ctx context.Context, id int64) (*model.Subscriber, error)
	ByUserID(ctx context.Context, userID int64) (*model.Subscriber, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Subscriber, error)
	UpdateFlags(ctx context.Context, tx *sql.Tx, s *model.Subscriber) error
	SetDeactivated(ctx context.Context, id int64, deactivated bool) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

const subscriberCols = `
	s.id, s.user_id, u.email, s.address_street, s.address_zipcode, s.iban,
	s.subscribed_on, s.has_issue, s.has_received_warning, s.deactivated`

func (r *repo) Create(ctx context.Context, tx *sql.Tx, s *model.Subscriber) error {
	const q = `
		INSERT INTO subscribers
			(user_id, address_street, address_zipcode, iban, subscribed_on)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	return tx.QueryRowContext(ctx, q,
		s.UserID, s.AddressStreet, s.AddressZipcode, s.IBAN, s.SubscribedOn,
	).Scan(&s.ID)
}

func (r *repo) Get(ctx context.Context, id int64) (*model.Subscriber, error) {
	const q = `
		SELECT` + subscriberCols + `
		FROM subscribers s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1`
	return scanSubscriber(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) ByUserID(ctx context.Context, userID int64) (*model.Subscriber, error) {
	const q = `
		SELECT` + subscriberCols + `
		FROM subscribers s
		JOIN users u ON u.id = s.user_id
		WHERE s.user_id = $1`
	return scanSubscriber(r.db.QueryRowContext(ctx, q, userID))
}

// GetForUpdate locks the subscriber row so flag updates from concurrent
// rentals, returns and sweeps serialize.
func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Subscriber, error) {
	const q = `
		SELECT` + subscriberCols + `
		FROM subscribers s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1
		FOR UPDATE OF s`
	return scanSubscriber(tx.QueryRowContext(ctx, q, id))
}

func (r *repo) UpdateFlags(ctx context.Context, tx *sql.Tx, s *model.Subscriber) error {
	const q = `
		UPDATE subscribers
		SET has_issue = $2,
			has_received_warning = $3
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, s.ID, s.HasIssue, s.HasReceivedWarning)
	return err
}

// SetDeactivated soft-disables the subscriber. Records are never deleted,
// rental history must persist.
func (r *repo) SetDeactivated(ctx context.Context, id int64, deactivated bool) error {
	const q = `
		UPDATE subscribers
		SET deactivated = $2
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, deactivated)
	return err
}

func scanSubscriber(row *sql.Row) (*model.Subscriber, error) {
	var s model.Subscriber
	err := row.Scan(
		&s.ID, &s.UserID, &s.Email, &s.AddressStreet, &s.AddressZipcode, &s.IBAN,
		&s.SubscribedOn, &s.HasIssue, &s.HasReceivedWarning, &s.Deactivated,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
