package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/nathandem/library/model"
)

type ErrCode string

const (
	ErrNotFound     ErrCode = "NOT_FOUND"
	ErrBadPayload   ErrCode = "BAD_PAYLOAD"
	ErrIllegalState ErrCode = "ILLEGAL_COPY_STATE"
)

type codedError struct {
	code   ErrCode
	status model.CopyStatus
}

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }

func makeErr(c ErrCode) error { return codedError{code: c} }

func illegalStateErr(status model.CopyStatus) error {
	return codedError{code: ErrIllegalState, status: status}
}

func Code(err error) ErrCode {
	var ce codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	return ""
}

// CopyStatus is the current status carried by an ILLEGAL_COPY_STATE error.
func CopyStatus(err error) model.CopyStatus {
	var ce codedError
	if errors.As(err, &ce) {
		return ce.status
	}
	return ""
}

type Database interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type Repo interface {
	CreateTitle(ctx context.Context, t *model.Title) (int64, error)
	TitleByID(ctx context.Context, id int64) (*model.Title, error)
	ListTitles(ctx context.Context) ([]model.Title, error)
	AddCopies(ctx context.Context, titleID int64, n int, joinedOn time.Time) (int64, error)
	ListCopies(ctx context.Context, titleID int64) ([]model.Copy, error)
	CopyForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Copy, error)
	UpdateCopy(ctx context.Context, tx *sql.Tx, c *model.Copy) error
}

type Service interface {
	CreateTitle(ctx context.Context, name, author, genre string, year int) (int64, error)
	TitleDetail(ctx context.Context, id int64) (*model.Title, error)
	ListTitles(ctx context.Context) ([]model.Title, error)

	// AddCopies registers n fresh copies of the title; they arrive in
	// MAINTENANCE and circulate once activated.
	AddCopies(ctx context.Context, titleID int64, n int, now time.Time) (int64, error)
	ListCopies(ctx context.Context, titleID int64) ([]model.Copy, error)
	ActivateCopy(ctx context.Context, copyID int64) error
	RetireCopy(ctx context.Context, copyID int64, cause model.RetirementCause, now time.Time) error
}

type service struct {
	db Database
	r  Repo
}

func New(db Database, r Repo) Service { return &service{db: db, r: r} }

func (s *service) CreateTitle(ctx context.Context, name, author, genre string, year int) (int64, error) {
	if name == "" || author == "" || genre == "" || year <= 0 {
		return 0, makeErr(ErrBadPayload)
	}
	return s.r.CreateTitle(ctx, &model.Title{Name: name, Author: author, Genre: genre, PublicationYear: year})
}

func (s *service) TitleDetail(ctx context.Context, id int64) (*model.Title, error) {
	t, err := s.r.TitleByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

func (s *service) ListTitles(ctx context.Context) ([]model.Title, error) {
	return s.r.ListTitles(ctx)
}

func (s *service) AddCopies(ctx context.Context, titleID int64, n int, now time.Time) (int64, error) {
	if n <= 0 {
		return 0, makeErr(ErrBadPayload)
	}
	if _, err := s.r.TitleByID(ctx, titleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, makeErr(ErrNotFound)
		}
		return 0, err
	}
	return s.r.AddCopies(ctx, titleID, n, model.Date(now))
}

func (s *service) ListCopies(ctx context.Context, titleID int64) ([]model.Copy, error) {
	return s.r.ListCopies(ctx, titleID)
}

func (s *service) ActivateCopy(ctx context.Context, copyID int64) error {
	return s.mutateCopy(ctx, copyID, func(c *model.Copy) error {
		return c.TransitionTo(model.CopyAvailable)
	})
}

func (s *service) RetireCopy(ctx context.Context, copyID int64, cause model.RetirementCause, now time.Time) error {
	switch cause {
	case model.CauseWorn, model.CauseStolen, model.CauseNeverReturned:
	default:
		return makeErr(ErrBadPayload)
	}
	return s.mutateCopy(ctx, copyID, func(c *model.Copy) error {
		return c.Retire(now, cause)
	})
}

func (s *service) mutateCopy(ctx context.Context, copyID int64, mutate func(*model.Copy) error) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		c, err := s.r.CopyForUpdate(ctx, tx, copyID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		status := c.Status
		if err := mutate(c); err != nil {
			return illegalStateErr(status)
		}
		return s.r.UpdateCopy(ctx, tx, c)
	})
}
