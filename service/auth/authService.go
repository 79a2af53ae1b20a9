package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nathandem/library/model"
	"github.com/nathandem/library/util/hash"
	jwtutil "github.com/nathandem/library/util/jwt"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidCreds = errors.New("invalid credentials")
)

type Database interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type UserRepo interface {
	Create(ctx context.Context, tx *sql.Tx, u *model.User) error
	ByEmail(ctx context.Context, email string) (*model.User, error)
}

type SubscriberRepo interface {
	Create(ctx context.Context, tx *sql.Tx, s *model.Subscriber) error
}

type Service interface {
	// Register creates the account and its lending profile in one go; the
	// subscription starts the day of signup.
	Register(ctx context.Context, req model.RegisterReq, now time.Time) (*model.User, string, error)
	Login(ctx context.Context, req model.LoginReq) (*model.User, string, error)
}

type service struct {
	db     Database
	ur     UserRepo
	sr     SubscriberRepo
	secret string
}

func New(db Database, ur UserRepo, sr SubscriberRepo, secret string) Service {
	return &service{db: db, ur: ur, sr: sr, secret: secret}
}

func (s *service) Register(ctx context.Context, req model.RegisterReq, now time.Time) (*model.User, string, error) {
	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}

	u := &model.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hashed,
		Role:         model.RoleSubscriber,
	}

	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := s.ur.Create(ctx, tx, u); err != nil {
			return err
		}
		sub := &model.Subscriber{
			UserID:         u.ID,
			AddressStreet:  req.AddressStreet,
			AddressZipcode: req.AddressZip,
			IBAN:           req.IBAN,
			SubscribedOn:   model.Date(now),
		}
		return s.sr.Create(ctx, tx, sub)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}

	token, err := jwtutil.Issue(s.secret, u.ID, string(u.Role), 24)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *service) Login(ctx context.Context, req model.LoginReq) (*model.User, string, error) {
	u, err := s.ur.ByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, "", ErrInvalidCreds
	}
	if !hash.Check(u.PasswordHash, req.Password) {
		return nil, "", ErrInvalidCreds
	}
	token, err := jwtutil.Issue(s.secret, u.ID, string(u.Role), 24)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
