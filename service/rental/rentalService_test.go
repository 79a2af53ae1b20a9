package rental_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nathandem/library/config"
	"github.com/nathandem/library/model"
	"github.com/nathandem/library/service/eligibility"
	rentalsvc "github.com/nathandem/library/service/rental"
)

var testRules = config.Rules{
	MaxRentBooks:     3,
	MaxRentDays:      21,
	MaxBookingBooks:  3,
	MaxBookingDays:   7,
	SubscriptionDays: 365,
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// txRunner stands in for the real transaction scope; repo mocks take a nil tx.
type txRunner struct{}

func (txRunner) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

// recordingRunner remembers whether the transaction body succeeded, i.e.
// whether the real runner would have committed.
type recordingRunner struct{ committed bool }

func (r *recordingRunner) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	err := fn(nil)
	r.committed = err == nil
	return err
}

type repoMock struct {
	insertFn       func(r *model.Rental) error
	countOpenFn    func(subscriberID int64) (int, error)
	openByCopyFn   func(copyID int64) (*model.Rental, error)
	markReturnedFn func(rentalID int64, on time.Time, late bool) error
	openBySubFn    func(subscriberID int64) ([]rentalsvc.OpenRow, error)
	historyFn      func(subscriberID int64) ([]rentalsvc.HistoryRow, error)
}

func (m *repoMock) Insert(ctx context.Context, tx *sql.Tx, r *model.Rental) error {
	if m.insertFn == nil {
		r.ID = 1
		return nil
	}
	return m.insertFn(r)
}
func (m *repoMock) CountOpenTx(ctx context.Context, tx *sql.Tx, subscriberID int64) (int, error) {
	if m.countOpenFn == nil {
		return 0, nil
	}
	return m.countOpenFn(subscriberID)
}
func (m *repoMock) OpenByCopyForUpdate(ctx context.Context, tx *sql.Tx, copyID int64) (*model.Rental, error) {
	return m.openByCopyFn(copyID)
}
func (m *repoMock) MarkReturned(ctx context.Context, tx *sql.Tx, rentalID int64, on time.Time, late bool) error {
	if m.markReturnedFn == nil {
		return nil
	}
	return m.markReturnedFn(rentalID, on, late)
}
func (m *repoMock) OpenBySubscriber(ctx context.Context, subscriberID int64) ([]rentalsvc.OpenRow, error) {
	if m.openBySubFn == nil {
		return nil, nil
	}
	return m.openBySubFn(subscriberID)
}
func (m *repoMock) History(ctx context.Context, subscriberID int64) ([]rentalsvc.HistoryRow, error) {
	if m.historyFn == nil {
		return nil, nil
	}
	return m.historyFn(subscriberID)
}

type subsMock struct {
	sub           *model.Subscriber
	updatedFlags  *model.Subscriber
	getErr        error
	updateFlagsFn func(s *model.Subscriber) error
}

func (m *subsMock) Get(ctx context.Context, id int64) (*model.Subscriber, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.sub, nil
}
func (m *subsMock) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Subscriber, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.sub, nil
}
func (m *subsMock) UpdateFlags(ctx context.Context, tx *sql.Tx, s *model.Subscriber) error {
	cp := *s
	m.updatedFlags = &cp
	if m.updateFlagsFn == nil {
		return nil
	}
	return m.updateFlagsFn(s)
}

type catMock struct {
	copy      *model.Copy
	copyErr   error
	updated   []model.Copy
	titleName string
	titleErr  error
}

func (m *catMock) CopyForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Copy, error) {
	if m.copyErr != nil {
		return nil, m.copyErr
	}
	return m.copy, nil
}
func (m *catMock) UpdateCopy(ctx context.Context, tx *sql.Tx, c *model.Copy) error {
	m.updated = append(m.updated, *c)
	return nil
}
func (m *catMock) TitleNameByCopy(ctx context.Context, copyID int64) (string, error) {
	if m.titleErr != nil {
		return "", m.titleErr
	}
	if m.titleName == "" {
		return "Some Title", nil
	}
	return m.titleName, nil
}

type bkMock struct {
	booking     *model.Booking
	bookingErr  error
	cancelled   []int64
	withdrawnOn *time.Time
}

func (m *bkMock) ResolvedByCopy(ctx context.Context, tx *sql.Tx, copyID int64) (*model.Booking, error) {
	if m.bookingErr != nil {
		return nil, m.bookingErr
	}
	return m.booking, nil
}
func (m *bkMock) CancelAndRelease(ctx context.Context, tx *sql.Tx, id int64) error {
	m.cancelled = append(m.cancelled, id)
	return nil
}
func (m *bkMock) MarkWithdrawn(ctx context.Context, tx *sql.Tx, id int64, on time.Time) error {
	m.withdrawnOn = &on
	return nil
}

func newService(r *repoMock, subs *subsMock, cat *catMock, bks *bkMock) rentalsvc.Service {
	ev := eligibility.New(testRules)
	return rentalsvc.New(txRunner{}, ev, testRules, r, subs, cat, bks)
}

func activeSub(now time.Time) *model.Subscriber {
	return &model.Subscriber{ID: 10, Email: "sub@example.com", SubscribedOn: now}
}

// --- Rent ---

func TestRent_AvailableCopy(t *testing.T) {
	now := day(2026, 3, 1)
	var inserted *model.Rental
	r := &repoMock{insertFn: func(rent *model.Rental) error {
		rent.ID = 55
		inserted = rent
		return nil
	}}
	cat := &catMock{copy: &model.Copy{ID: 3, TitleID: 1, Status: model.CopyAvailable}, titleName: "Dune"}

	svc := newService(r, &subsMock{sub: activeSub(now)}, cat, &bkMock{})
	out, err := svc.Rent(context.Background(), 10, 3, now)

	require.NoError(t, err)
	require.Equal(t, int64(55), out.RentalID)
	require.Equal(t, "Dune", out.Title)
	require.Equal(t, day(2026, 3, 22), out.DueFor)

	require.Equal(t, day(2026, 3, 1), inserted.RentOn)
	require.Equal(t, day(2026, 3, 22), inserted.DueFor, "due date fixed at rent time")
	require.Len(t, cat.updated, 1)
	require.Equal(t, model.CopyRent, cat.updated[0].Status)
}

func TestRent_QuotaReached(t *testing.T) {
	now := day(2026, 3, 1)
	r := &repoMock{countOpenFn: func(int64) (int, error) { return 3, nil }}

	svc := newService(r, &subsMock{sub: activeSub(now)}, &catMock{}, &bkMock{})
	_, err := svc.Rent(context.Background(), 10, 3, now)

	require.Error(t, err)
	require.Equal(t, rentalsvc.ErrNotEligible, rentalsvc.Code(err))
	require.Contains(t, rentalsvc.Blockers(err), eligibility.BlockerMaxBooksReached)
}

func TestRent_DeactivatedSubscriber(t *testing.T) {
	now := day(2026, 3, 1)
	sub := activeSub(now)
	sub.Deactivated = true

	svc := newService(&repoMock{}, &subsMock{sub: sub}, &catMock{}, &bkMock{})
	_, err := svc.Rent(context.Background(), 10, 3, now)

	require.Equal(t, rentalsvc.ErrNotEligible, rentalsvc.Code(err))
	require.Equal(t, []eligibility.Blocker{eligibility.BlockerDeactivated}, rentalsvc.Blockers(err))
}

func TestRent_CopyAlreadyOut(t *testing.T) {
	now := day(2026, 3, 1)
	cat := &catMock{copy: &model.Copy{ID: 3, Status: model.CopyRent}}

	svc := newService(&repoMock{}, &subsMock{sub: activeSub(now)}, cat, &bkMock{})
	_, err := svc.Rent(context.Background(), 10, 3, now)

	require.Equal(t, rentalsvc.ErrCopyUnavailable, rentalsvc.Code(err))
	require.Equal(t, model.CopyRent, rentalsvc.CopyStatus(err))
}

func TestRent_WithdrawBookedCopy(t *testing.T) {
	now := day(2026, 3, 10)
	booked := day(2026, 3, 8)
	copyID := int64(3)
	bks := &bkMock{booking: &model.Booking{
		ID: 70, SubscriberID: 10, TitleID: 1, CopyID: &copyID, BookedOn: &booked,
	}}
	cat := &catMock{copy: &model.Copy{ID: 3, TitleID: 1, Status: model.CopyBooked}}

	svc := newService(&repoMock{}, &subsMock{sub: activeSub(now)}, cat, bks)
	out, err := svc.Rent(context.Background(), 10, 3, now)

	require.NoError(t, err)
	require.NotNil(t, bks.withdrawnOn, "booking marked withdrawn")
	require.Equal(t, day(2026, 3, 10), *bks.withdrawnOn)
	require.Equal(t, model.CopyRent, cat.updated[len(cat.updated)-1].Status)
	require.Equal(t, day(2026, 3, 31), out.DueFor)
}

func TestRent_BookedForSomeoneElse(t *testing.T) {
	now := day(2026, 3, 10)
	booked := day(2026, 3, 8)
	copyID := int64(3)
	bks := &bkMock{booking: &model.Booking{
		ID: 70, SubscriberID: 99, CopyID: &copyID, BookedOn: &booked,
	}}
	cat := &catMock{copy: &model.Copy{ID: 3, Status: model.CopyBooked}}

	svc := newService(&repoMock{}, &subsMock{sub: activeSub(now)}, cat, bks)
	_, err := svc.Rent(context.Background(), 10, 3, now)

	require.Equal(t, rentalsvc.ErrCopyUnavailable, rentalsvc.Code(err))
	require.Empty(t, bks.cancelled)
}

func TestRent_ExpiredBookingCancelsAndStrikes(t *testing.T) {
	now := day(2026, 3, 20)
	booked := day(2026, 3, 8) // deadline was the 15th
	copyID := int64(3)
	subs := &subsMock{sub: activeSub(now)}
	bks := &bkMock{booking: &model.Booking{
		ID: 70, SubscriberID: 10, CopyID: &copyID, BookedOn: &booked,
	}}
	cat := &catMock{copy: &model.Copy{ID: 3, Status: model.CopyBooked}}

	svc := newService(&repoMock{}, subs, cat, bks)
	_, err := svc.Rent(context.Background(), 10, 3, now)

	require.Equal(t, rentalsvc.ErrExpiredBooking, rentalsvc.Code(err))
	require.Equal(t, []int64{70}, bks.cancelled)
	require.Equal(t, model.CopyAvailable, cat.updated[0].Status, "copy back on the shelf")
	require.NotNil(t, subs.updatedFlags)
	require.True(t, subs.updatedFlags.HasReceivedWarning, "expiry counts as a strike")
}

func TestRent_TitleLookupFailureRollsBack(t *testing.T) {
	now := day(2026, 3, 1)
	cat := &catMock{
		copy:     &model.Copy{ID: 3, TitleID: 1, Status: model.CopyAvailable},
		titleErr: errors.New("read timeout"),
	}
	runner := &recordingRunner{}
	ev := eligibility.New(testRules)
	svc := rentalsvc.New(runner, ev, testRules, &repoMock{}, &subsMock{sub: activeSub(now)}, cat, &bkMock{})

	_, err := svc.Rent(context.Background(), 10, 3, now)

	require.Error(t, err)
	require.False(t, runner.committed,
		"an error response must not hide a committed rental")
}

// --- Return ---

func TestReturn_OnDueDateNotLate(t *testing.T) {
	due := day(2026, 3, 22)
	subs := &subsMock{sub: activeSub(due)}
	r := &repoMock{openByCopyFn: func(int64) (*model.Rental, error) {
		return &model.Rental{ID: 55, SubscriberID: 10, CopyID: 3, DueFor: due}, nil
	}}
	cat := &catMock{copy: &model.Copy{ID: 3, Status: model.CopyRent}}

	svc := newService(r, subs, cat, &bkMock{})
	out, err := svc.Return(context.Background(), 10, 3, due)

	require.NoError(t, err)
	require.False(t, out.Late)
	require.Nil(t, subs.updatedFlags, "no strike on a clean return")
	require.Equal(t, model.CopyAvailable, cat.updated[0].Status)
}

func TestReturn_LateTakesAStrike(t *testing.T) {
	due := day(2026, 3, 22)
	subs := &subsMock{sub: activeSub(due)}
	var marked struct {
		on   time.Time
		late bool
	}
	r := &repoMock{
		openByCopyFn: func(int64) (*model.Rental, error) {
			return &model.Rental{ID: 55, SubscriberID: 10, CopyID: 3, DueFor: due}, nil
		},
		markReturnedFn: func(id int64, on time.Time, late bool) error {
			marked.on, marked.late = on, late
			return nil
		},
	}
	cat := &catMock{copy: &model.Copy{ID: 3, Status: model.CopyRent}}

	svc := newService(r, subs, cat, &bkMock{})
	out, err := svc.Return(context.Background(), 10, 3, day(2026, 3, 23))

	require.NoError(t, err)
	require.True(t, out.Late)
	require.True(t, marked.late)
	require.NotNil(t, subs.updatedFlags)
	require.True(t, subs.updatedFlags.HasReceivedWarning)
	require.False(t, subs.updatedFlags.HasIssue, "first strike only warns")
}

func TestReturn_SecondStrikeBlocks(t *testing.T) {
	due := day(2026, 3, 22)
	sub := activeSub(due)
	sub.HasReceivedWarning = true
	subs := &subsMock{sub: sub}
	r := &repoMock{openByCopyFn: func(int64) (*model.Rental, error) {
		return &model.Rental{ID: 55, SubscriberID: 10, CopyID: 3, DueFor: due}, nil
	}}
	cat := &catMock{copy: &model.Copy{ID: 3, Status: model.CopyRent}}

	svc := newService(r, subs, cat, &bkMock{})
	_, err := svc.Return(context.Background(), 10, 3, day(2026, 4, 1))

	require.NoError(t, err)
	require.True(t, subs.updatedFlags.HasIssue)
}

func TestReturn_NoOpenRental(t *testing.T) {
	r := &repoMock{openByCopyFn: func(int64) (*model.Rental, error) { return nil, sql.ErrNoRows }}

	svc := newService(r, &subsMock{}, &catMock{}, &bkMock{})
	_, err := svc.Return(context.Background(), 10, 3, day(2026, 3, 1))

	require.Equal(t, rentalsvc.ErrNoOpenRental, rentalsvc.Code(err))
}

func TestReturn_OwnerMismatch(t *testing.T) {
	r := &repoMock{openByCopyFn: func(int64) (*model.Rental, error) {
		return &model.Rental{ID: 55, SubscriberID: 99, CopyID: 3}, nil
	}}

	svc := newService(r, &subsMock{}, &catMock{}, &bkMock{})
	_, err := svc.Return(context.Background(), 10, 3, day(2026, 3, 1))

	require.Equal(t, rentalsvc.ErrOwnerMismatch, rentalsvc.Code(err))
}

// --- Eligibility ---

func TestEligibilitySummary(t *testing.T) {
	now := day(2026, 3, 1)
	subs := &subsMock{sub: activeSub(now)}
	r := &repoMock{openBySubFn: func(int64) ([]rentalsvc.OpenRow, error) {
		return []rentalsvc.OpenRow{{RentalID: 1}, {RentalID: 2}}, nil
	}}

	svc := newService(r, subs, &catMock{}, &bkMock{})
	out, err := svc.Eligibility(context.Background(), 10, now)

	require.NoError(t, err)
	require.True(t, out.CanRent)
	require.Equal(t, 1, out.AllowedCount)
	require.Len(t, out.OpenRentals, 2)
	require.Empty(t, out.Blockers)
}
