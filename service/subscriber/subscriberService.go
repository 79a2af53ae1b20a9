package subscriber

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nathandem/library/model"
)

var ErrNotFound = errors.New("subscriber not found")

type Database interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type Repo interface {
	Get(ctx context.Context, id int64) (*model.Subscriber, error)
	ByUserID(ctx context.Context, userID int64) (*model.Subscriber, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Subscriber, error)
	UpdateFlags(ctx context.Context, tx *sql.Tx, s *model.Subscriber) error
	SetDeactivated(ctx context.Context, id int64, deactivated bool) error
}

type Service interface {
	Profile(ctx context.Context, subscriberID int64) (*model.Subscriber, error)
	ByUserID(ctx context.Context, userID int64) (*model.Subscriber, error)

	// ClearIssue is the librarian override lifting the hard block. The
	// warning flag stays, the next infraction blocks again right away.
	ClearIssue(ctx context.Context, subscriberID int64) error

	// Deactivate soft-disables the subscriber; records are never deleted.
	Deactivate(ctx context.Context, subscriberID int64) error
}

type service struct {
	db Database
	r  Repo
}

func New(db Database, r Repo) Service { return &service{db: db, r: r} }

func (s *service) Profile(ctx context.Context, subscriberID int64) (*model.Subscriber, error) {
	sub, err := s.r.Get(ctx, subscriberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (s *service) ByUserID(ctx context.Context, userID int64) (*model.Subscriber, error) {
	sub, err := s.r.ByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (s *service) ClearIssue(ctx context.Context, subscriberID int64) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		sub, err := s.r.GetForUpdate(ctx, tx, subscriberID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if !sub.HasIssue {
			return nil
		}
		sub.HasIssue = false
		return s.r.UpdateFlags(ctx, tx, sub)
	})
}

func (s *service) Deactivate(ctx context.Context, subscriberID int64) error {
	return s.r.SetDeactivated(ctx, subscriberID, true)
}
