package rental

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/nathandem/library/config"
	"github.com/nathandem/library/model"
	rentalrepo "github.com/nathandem/library/repository/rental"
	"github.com/nathandem/library/service/eligibility"
)

// errors used by controllers

type ErrCode string

const (
	ErrNotEligible     ErrCode = "NOT_ELIGIBLE"
	ErrCopyUnavailable ErrCode = "COPY_UNAVAILABLE"
	ErrOwnerMismatch   ErrCode = "RENTAL_OWNER_MISMATCH"
	ErrNoOpenRental    ErrCode = "NO_OPEN_RENTAL"
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrExpiredBooking  ErrCode = "ALREADY_EXPIRED_BOOKING"
)

type codedError struct {
	code     ErrCode
	blockers []eligibility.Blocker
	status   model.CopyStatus
}

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }

func makeErr(c ErrCode) error { return codedError{code: c} }

func notEligibleErr(blockers []eligibility.Blocker) error {
	return codedError{code: ErrNotEligible, blockers: blockers}
}

func unavailableErr(status model.CopyStatus) error {
	return codedError{code: ErrCopyUnavailable, status: status}
}

// Code extracts the error code, "" for unexpected errors.
func Code(err error) ErrCode {
	var ce codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	return ""
}

// Blockers lists the eligibility reasons carried by a NOT_ELIGIBLE error.
func Blockers(err error) []eligibility.Blocker {
	var ce codedError
	if errors.As(err, &ce) {
		return ce.blockers
	}
	return nil
}

// CopyStatus is the conflicting status carried by a COPY_UNAVAILABLE error,
// so the caller can decide whether a retry makes sense.
func CopyStatus(err error) model.CopyStatus {
	var ce codedError
	if errors.As(err, &ce) {
		return ce.status
	}
	return ""
}

// dto

type HistoryRow = rentalrepo.HistoryRow
type OpenRow = rentalrepo.OpenRow

type RentResult struct {
	RentalID int64
	Title    string
	DueFor   time.Time
}

type ReturnResult struct {
	Title string
	Late  bool
}

type EligibilitySummary struct {
	CanRent      bool                  `json:"can_rent"`
	AllowedCount int                   `json:"allowed_count"`
	OpenRentals  []OpenRow             `json:"open_rentals"`
	Blockers     []eligibility.Blocker `json:"blockers"`
}

// repo interfaces (implemented by the repository packages, mocked in tests)

type Database interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, r *model.Rental) error
	CountOpenTx(ctx context.Context, tx *sql.Tx, subscriberID int64) (int, error)
	OpenByCopyForUpdate(ctx context.Context, tx *sql.Tx, copyID int64) (*model.Rental, error)
	MarkReturned(ctx context.Context, tx *sql.Tx, rentalID int64, on time.Time, late bool) error
	OpenBySubscriber(ctx context.Context, subscriberID int64) ([]OpenRow, error)
	History(ctx context.Context, subscriberID int64) ([]HistoryRow, error)
}

type SubscriberRepo interface {
	Get(ctx context.Context, id int64) (*model.Subscriber, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Subscriber, error)
	UpdateFlags(ctx context.Context, tx *sql.Tx, s *model.Subscriber) error
}

type CatalogRepo interface {
	CopyForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Copy, error)
	UpdateCopy(ctx context.Context, tx *sql.Tx, c *model.Copy) error
	TitleNameByCopy(ctx context.Context, copyID int64) (string, error)
}

type BookingRepo interface {
	ResolvedByCopy(ctx context.Context, tx *sql.Tx, copyID int64) (*model.Booking, error)
	CancelAndRelease(ctx context.Context, tx *sql.Tx, id int64) error
	MarkWithdrawn(ctx context.Context, tx *sql.Tx, id int64, on time.Time) error
}

type Service interface {
	// Rent hands the copy to the subscriber: AVAILABLE -> RENT, or
	// BOOKED -> RENT when withdrawing a copy booked for them.
	Rent(ctx context.Context, subscriberID, copyID int64, now time.Time) (*RentResult, error)

	// Return closes the open rental on the copy and frees it.
	Return(ctx context.Context, subscriberID, copyID int64, now time.Time) (*ReturnResult, error)

	// Eligibility is the read side: can the subscriber rent, how many more
	// copies, what blocks them.
	Eligibility(ctx context.Context, subscriberID int64, now time.Time) (*EligibilitySummary, error)

	History(ctx context.Context, subscriberID int64) ([]HistoryRow, error)
}

// ----- Service implementation -----

type service struct {
	db    Database
	ev    *eligibility.Evaluator
	rules config.Rules
	r     Repo
	subs  SubscriberRepo
	cat   CatalogRepo
	bks   BookingRepo
}

func New(db Database, ev *eligibility.Evaluator, rules config.Rules, r Repo, subs SubscriberRepo, cat CatalogRepo, bks BookingRepo) Service {
	return &service{db: db, ev: ev, rules: rules, r: r, subs: subs, cat: cat, bks: bks}
}

func (s *service) Rent(ctx context.Context, subscriberID, copyID int64, now time.Time) (*RentResult, error) {
	var (
		res            RentResult
		expiredBooking bool
	)

	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		sub, err := s.subs.GetForUpdate(ctx, tx, subscriberID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}

		open, err := s.r.CountOpenTx(ctx, tx, sub.ID)
		if err != nil {
			return err
		}
		if blockers := s.ev.RentBlockers(sub, open, now); len(blockers) > 0 {
			return notEligibleErr(blockers)
		}

		c, err := s.cat.CopyForUpdate(ctx, tx, copyID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}

		switch c.Status {
		case model.CopyAvailable:
			// plain rental

		case model.CopyBooked:
			// only the subscriber the copy was booked for may withdraw it
			bk, err := s.bks.ResolvedByCopy(ctx, tx, copyID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return unavailableErr(c.Status)
				}
				return err
			}
			if bk.SubscriberID != sub.ID {
				return unavailableErr(c.Status)
			}
			if bk.ExpiredOn(now, s.rules.MaxBookingDays) {
				// withdrawal window over: the booking dies, the copy goes
				// back on the shelf and the subscriber takes a strike.
				// These effects must commit even though the rent fails.
				if err := s.bks.CancelAndRelease(ctx, tx, bk.ID); err != nil {
					return err
				}
				if err := c.TransitionTo(model.CopyAvailable); err != nil {
					return err
				}
				if err := s.cat.UpdateCopy(ctx, tx, c); err != nil {
					return err
				}
				sub.DidntFollowRules()
				if err := s.subs.UpdateFlags(ctx, tx, sub); err != nil {
					return err
				}
				expiredBooking = true
				return nil
			}
			if err := s.bks.MarkWithdrawn(ctx, tx, bk.ID, model.Date(now)); err != nil {
				return err
			}

		default:
			return unavailableErr(c.Status)
		}

		if err := c.TransitionTo(model.CopyRent); err != nil {
			return err
		}
		if err := s.cat.UpdateCopy(ctx, tx, c); err != nil {
			return err
		}

		rent := &model.Rental{
			SubscriberID: sub.ID,
			CopyID:       c.ID,
			RentOn:       model.Date(now),
			DueFor:       model.Date(now).AddDate(0, 0, s.rules.MaxRentDays),
		}
		if err := s.r.Insert(ctx, tx, rent); err != nil {
			return err
		}
		res.RentalID = rent.ID
		res.DueFor = rent.DueFor

		// read the title before the commit; once the rental is committed
		// nothing may turn the response into an error anymore
		title, err := s.cat.TitleNameByCopy(ctx, copyID)
		if err != nil {
			return err
		}
		res.Title = title
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expiredBooking {
		return nil, makeErr(ErrExpiredBooking)
	}
	return &res, nil
}

func (s *service) Return(ctx context.Context, subscriberID, copyID int64, now time.Time) (*ReturnResult, error) {
	var res ReturnResult

	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		rent, err := s.r.OpenByCopyForUpdate(ctx, tx, copyID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNoOpenRental)
			}
			return err
		}
		if rent.SubscriberID != subscriberID {
			return makeErr(ErrOwnerMismatch)
		}

		// returning on the due date itself is fine, only after is late
		res.Late = rent.LateIfReturnedOn(now)
		if err := s.r.MarkReturned(ctx, tx, rent.ID, model.Date(now), res.Late); err != nil {
			return err
		}

		c, err := s.cat.CopyForUpdate(ctx, tx, copyID)
		if err != nil {
			return err
		}
		if err := c.TransitionTo(model.CopyAvailable); err != nil {
			return err
		}
		if err := s.cat.UpdateCopy(ctx, tx, c); err != nil {
			return err
		}

		if res.Late {
			sub, err := s.subs.GetForUpdate(ctx, tx, subscriberID)
			if err != nil {
				return err
			}
			sub.DidntFollowRules()
			if err := s.subs.UpdateFlags(ctx, tx, sub); err != nil {
				return err
			}
		}

		title, err := s.cat.TitleNameByCopy(ctx, copyID)
		if err != nil {
			return err
		}
		res.Title = title
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *service) Eligibility(ctx context.Context, subscriberID int64, now time.Time) (*EligibilitySummary, error) {
	sub, err := s.subs.Get(ctx, subscriberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	open, err := s.r.OpenBySubscriber(ctx, subscriberID)
	if err != nil {
		return nil, err
	}

	blockers := s.ev.RentBlockers(sub, len(open), now)
	return &EligibilitySummary{
		CanRent:      len(blockers) == 0,
		AllowedCount: s.ev.AllowedRentCount(len(open)),
		OpenRentals:  open,
		Blockers:     blockers,
	}, nil
}

func (s *service) History(ctx context.Context, subscriberID int64) ([]HistoryRow, error) {
	return s.r.History(ctx, subscriberID)
}
