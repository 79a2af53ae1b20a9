package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/nathandem/library/model"
	"github.com/nathandem/library/util/hash"
)

type txRunner struct{}

func (txRunner) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

type userRepoMock struct {
	createFn  func(u *model.User) error
	byEmailFn func(email string) (*model.User, error)
}

func (m *userRepoMock) Create(ctx context.Context, tx *sql.Tx, u *model.User) error {
	if m.createFn == nil {
		u.ID = 1
		return nil
	}
	return m.createFn(u)
}
func (m *userRepoMock) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.byEmailFn(email)
}

type subRepoMock struct {
	created *model.Subscriber
}

func (m *subRepoMock) Create(ctx context.Context, tx *sql.Tx, s *model.Subscriber) error {
	m.created = s
	return nil
}

func TestRegister_Success(t *testing.T) {
	now := time.Date(2026, 2, 3, 14, 0, 0, 0, time.UTC)
	ur := &userRepoMock{createFn: func(u *model.User) error {
		u.ID = 42
		return nil
	}}
	sr := &subRepoMock{}
	svc := New(txRunner{}, ur, sr, "test-secret")

	u, tok, err := svc.Register(context.Background(), model.RegisterReq{
		FirstName:     "Ada",
		LastName:      "Lovelace",
		Email:         "Ada@Example.COM ",
		Password:      "supersecret",
		AddressStreet: "12 Analytical St",
		AddressZip:    "75002",
		IBAN:          "FR7630006000011234567890189",
	}, now)

	require.NoError(t, err)
	require.NotEmpty(t, tok)
	require.Equal(t, int64(42), u.ID)
	require.Equal(t, "ada@example.com", u.Email)
	require.Equal(t, model.RoleSubscriber, u.Role)
	require.NotEmpty(t, u.PasswordHash)

	require.NotNil(t, sr.created)
	require.Equal(t, int64(42), sr.created.UserID)
	require.Equal(t, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), sr.created.SubscribedOn,
		"subscription starts the day of signup")
}

func TestRegister_EmailTaken(t *testing.T) {
	ur := &userRepoMock{createFn: func(u *model.User) error {
		return &pgconn.PgError{Code: "23505"}
	}}
	svc := New(txRunner{}, ur, &subRepoMock{}, "test-secret")

	_, _, err := svc.Register(context.Background(), model.RegisterReq{
		Email: "taken@example.com", Password: "123456",
	}, time.Now())
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin_Success(t *testing.T) {
	hashed, err := hash.HashPassword("supersecret")
	require.NoError(t, err)

	ur := &userRepoMock{byEmailFn: func(email string) (*model.User, error) {
		require.Equal(t, "ada@example.com", email)
		return &model.User{ID: 7, Email: email, PasswordHash: hashed, Role: model.RoleSubscriber}, nil
	}}
	svc := New(txRunner{}, ur, &subRepoMock{}, "test-secret")

	u, tok, err := svc.Login(context.Background(), model.LoginReq{
		Email: " Ada@Example.com", Password: "supersecret",
	})
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	require.Equal(t, int64(7), u.ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	hashed, err := hash.HashPassword("correct")
	require.NoError(t, err)

	ur := &userRepoMock{byEmailFn: func(email string) (*model.User, error) {
		return &model.User{ID: 7, Email: email, PasswordHash: hashed}, nil
	}}
	svc := New(txRunner{}, ur, &subRepoMock{}, "test-secret")

	_, _, err = svc.Login(context.Background(), model.LoginReq{
		Email: "ada@example.com", Password: "wrong",
	})
	require.ErrorIs(t, err, ErrInvalidCreds)
}

func TestLogin_UnknownEmail(t *testing.T) {
	ur := &userRepoMock{byEmailFn: func(email string) (*model.User, error) {
		return nil, errors.New("sql: no rows in result set")
	}}
	svc := New(txRunner{}, ur, &subRepoMock{}, "test-secret")

	_, _, err := svc.Login(context.Background(), model.LoginReq{
		Email: "missing@example.com", Password: "whatever",
	})
	require.ErrorIs(t, err, ErrInvalidCreds)
}
