package catalog_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/nathandem/library/model"
	catalogsvc "github.com/nathandem/library/service/catalog"
)

type txRunner struct{}

func (txRunner) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

type repoMock struct {
	createTitleFn func(t *model.Title) (int64, error)
	titleByIDFn   func(id int64) (*model.Title, error)
	addCopiesFn   func(titleID int64, n int, joinedOn time.Time) (int64, error)
	copy          *model.Copy
	copyErr       error
	updated       *model.Copy
}

func (m *repoMock) CreateTitle(ctx context.Context, t *model.Title) (int64, error) {
	return m.createTitleFn(t)
}
func (m *repoMock) TitleByID(ctx context.Context, id int64) (*model.Title, error) {
	if m.titleByIDFn == nil {
		return &model.Title{ID: id}, nil
	}
	return m.titleByIDFn(id)
}
func (m *repoMock) ListTitles(ctx context.Context) ([]model.Title, error) { return nil, nil }
func (m *repoMock) AddCopies(ctx context.Context, titleID int64, n int, joinedOn time.Time) (int64, error) {
	if m.addCopiesFn == nil {
		return int64(n), nil
	}
	return m.addCopiesFn(titleID, n, joinedOn)
}
func (m *repoMock) ListCopies(ctx context.Context, titleID int64) ([]model.Copy, error) {
	return nil, nil
}
func (m *repoMock) CopyForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Copy, error) {
	if m.copyErr != nil {
		return nil, m.copyErr
	}
	return m.copy, nil
}
func (m *repoMock) UpdateCopy(ctx context.Context, tx *sql.Tx, c *model.Copy) error {
	cp := *c
	m.updated = &cp
	return nil
}

func TestCreateTitle_Validation(t *testing.T) {
	s := catalogsvc.New(txRunner{}, &repoMock{})
	ctx := context.Background()

	cases := []struct{ name, author, genre string }{
		{"", "Herbert", "SF"},
		{"Dune", "", "SF"},
		{"Dune", "Herbert", ""},
	}
	for _, tc := range cases {
		if _, err := s.CreateTitle(ctx, tc.name, tc.author, tc.genre, 1965); catalogsvc.Code(err) != catalogsvc.ErrBadPayload {
			t.Fatalf("want BAD_PAYLOAD for %+v, got %v", tc, err)
		}
	}
	if _, err := s.CreateTitle(ctx, "Dune", "Herbert", "SF", 0); catalogsvc.Code(err) != catalogsvc.ErrBadPayload {
		t.Fatal("want BAD_PAYLOAD for missing year")
	}
}

func TestAddCopies(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 11, 0, 0, 0, time.UTC)

	m := &repoMock{addCopiesFn: func(titleID int64, n int, joinedOn time.Time) (int64, error) {
		if titleID != 7 || n != 3 {
			t.Fatalf("bad args %d %d", titleID, n)
		}
		want := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		if !joinedOn.Equal(want) {
			t.Fatalf("joinedOn = %v, want %v", joinedOn, want)
		}
		return 3, nil
	}}
	s := catalogsvc.New(txRunner{}, m)

	if n, err := s.AddCopies(ctx, 7, 3, now); err != nil || n != 3 {
		t.Fatalf("got %v %v", n, err)
	}
	if _, err := s.AddCopies(ctx, 7, 0, now); catalogsvc.Code(err) != catalogsvc.ErrBadPayload {
		t.Fatal("want BAD_PAYLOAD for zero copies")
	}
}

func TestAddCopies_UnknownTitle(t *testing.T) {
	m := &repoMock{titleByIDFn: func(id int64) (*model.Title, error) { return nil, sql.ErrNoRows }}
	s := catalogsvc.New(txRunner{}, m)

	if _, err := s.AddCopies(context.Background(), 99, 1, time.Now()); catalogsvc.Code(err) != catalogsvc.ErrNotFound {
		t.Fatalf("want NOT_FOUND, got %v", err)
	}
}

func TestActivateCopy(t *testing.T) {
	m := &repoMock{copy: &model.Copy{ID: 3, Status: model.CopyMaintenance}}
	s := catalogsvc.New(txRunner{}, m)

	if err := s.ActivateCopy(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	if m.updated.Status != model.CopyAvailable {
		t.Fatalf("status = %s", m.updated.Status)
	}
}

func TestActivateCopy_IllegalFromRent(t *testing.T) {
	m := &repoMock{copy: &model.Copy{ID: 3, Status: model.CopyRent}}
	s := catalogsvc.New(txRunner{}, m)

	err := s.ActivateCopy(context.Background(), 3)
	if catalogsvc.Code(err) != catalogsvc.ErrIllegalState {
		t.Fatalf("want ILLEGAL_COPY_STATE, got %v", err)
	}
	if catalogsvc.CopyStatus(err) != model.CopyRent {
		t.Fatalf("conflicting status = %s", catalogsvc.CopyStatus(err))
	}
	if m.updated != nil {
		t.Fatal("no write on an illegal transition")
	}
}

func TestRetireCopy(t *testing.T) {
	now := time.Date(2026, 6, 1, 11, 0, 0, 0, time.UTC)
	m := &repoMock{copy: &model.Copy{ID: 3, Status: model.CopyAvailable}}
	s := catalogsvc.New(txRunner{}, m)

	if err := s.RetireCopy(context.Background(), 3, model.CauseStolen, now); err != nil {
		t.Fatal(err)
	}
	if m.updated.Status != model.CopyRetired {
		t.Fatalf("status = %s", m.updated.Status)
	}
	if m.updated.LeftOn == nil || m.updated.LeftCause == nil || *m.updated.LeftCause != model.CauseStolen {
		t.Fatalf("retirement fields incomplete: %+v", m.updated)
	}
}

func TestRetireCopy_BadCause(t *testing.T) {
	s := catalogsvc.New(txRunner{}, &repoMock{})
	err := s.RetireCopy(context.Background(), 3, "LOST_INTEREST", time.Now())
	if catalogsvc.Code(err) != catalogsvc.ErrBadPayload {
		t.Fatalf("want BAD_PAYLOAD, got %v", err)
	}
}

func TestRetireCopy_AlreadyRetired(t *testing.T) {
	on := time.Now()
	cause := model.CauseWorn
	m := &repoMock{copy: &model.Copy{ID: 3, Status: model.CopyRetired, LeftOn: &on, LeftCause: &cause}}
	s := catalogsvc.New(txRunner{}, m)

	err := s.RetireCopy(context.Background(), 3, model.CauseStolen, time.Now())
	if catalogsvc.Code(err) != catalogsvc.ErrIllegalState {
		t.Fatalf("want ILLEGAL_COPY_STATE, got %v", err)
	}
}
