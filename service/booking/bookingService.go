package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nathandem/library/config"
	"github.com/nathandem/library/model"
	"github.com/nathandem/library/service/eligibility"
)

// errors used by controllers

type ErrCode string

const (
	ErrNotEligible ErrCode = "NOT_ELIGIBLE"
	ErrNotFound    ErrCode = "NOT_FOUND"
)

type codedError struct {
	code     ErrCode
	blockers []eligibility.Blocker
}

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }

func makeErr(c ErrCode) error { return codedError{code: c} }

func notEligibleErr(blockers []eligibility.Blocker) error {
	return codedError{code: ErrNotEligible, blockers: blockers}
}

func Code(err error) ErrCode {
	var ce codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	return ""
}

func Blockers(err error) []eligibility.Blocker {
	var ce codedError
	if errors.As(err, &ce) {
		return ce.blockers
	}
	return nil
}

// dto

type ReserveResult struct {
	BookingID          int64      `json:"booking_id"`
	Resolved           bool       `json:"resolved"`
	CopyID             *int64     `json:"copy_id,omitempty"`
	WithdrawalDeadline *time.Time `json:"withdrawal_deadline,omitempty"`
}

// ResolveStats summarizes one resolution pass; sweeps report how much
// succeeded and how much was skipped on error.
type ResolveStats struct {
	Subscribers int `json:"subscribers"`
	Resolved    int `json:"resolved"`
	Cancelled   int `json:"cancelled"`
	Failed      int `json:"failed"`
}

// repo interfaces

type Database interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, b *model.Booking) error
	CountOpenTx(ctx context.Context, tx *sql.Tx, subscriberID int64) (int, error)
	OlderOpenForTitle(ctx context.Context, tx *sql.Tx, titleID, excludeID int64) (bool, error)

	// SubscribersWithPending returns subscribers ordered by their oldest
	// pending request; the pass walks them in that order so the earliest
	// request wins scarce copies.
	SubscribersWithPending(ctx context.Context) ([]int64, error)
	PendingBySubscriber(ctx context.Context, tx *sql.Tx, subscriberID int64) ([]model.Booking, error)
	MarkResolved(ctx context.Context, tx *sql.Tx, id, copyID int64, on time.Time) error
	CancelAndRelease(ctx context.Context, tx *sql.Tx, id int64) error
}

type SubscriberRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Subscriber, error)
	UpdateFlags(ctx context.Context, tx *sql.Tx, s *model.Subscriber) error
}

type CatalogRepo interface {
	TitleExists(ctx context.Context, tx *sql.Tx, id int64) (bool, error)
	TitleName(ctx context.Context, id int64) (string, error)
	LockAvailableCopy(ctx context.Context, tx *sql.Tx, titleID int64) (int64, error)
	CopyForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Copy, error)
	UpdateCopy(ctx context.Context, tx *sql.Tx, c *model.Copy) error
}

type RentalRepo interface {
	CountOpenTx(ctx context.Context, tx *sql.Tx, subscriberID int64) (int, error)
}

type Service interface {
	// Reserve records a booking for a title. When a copy is on the shelf and
	// nobody is queued ahead, the booking resolves on the spot.
	Reserve(ctx context.Context, subscriberID, titleID int64, now time.Time) (*ReserveResult, error)

	// Resolve is the periodic pass matching open bookings to available
	// copies and expiring unclaimed ones. It returns one notification per
	// subscriber who got bookings resolved.
	Resolve(ctx context.Context, now time.Time) ([]model.Notification, ResolveStats, error)
}

// ----- Service implementation -----

type service struct {
	db      Database
	ev      *eligibility.Evaluator
	rules   config.Rules
	r       Repo
	subs    SubscriberRepo
	cat     CatalogRepo
	rentals RentalRepo
	log     *slog.Logger
}

func New(db Database, ev *eligibility.Evaluator, rules config.Rules, r Repo, subs SubscriberRepo, cat CatalogRepo, rentals RentalRepo, log *slog.Logger) Service {
	return &service{db: db, ev: ev, rules: rules, r: r, subs: subs, cat: cat, rentals: rentals, log: log}
}

func (s *service) Reserve(ctx context.Context, subscriberID, titleID int64, now time.Time) (*ReserveResult, error) {
	var res ReserveResult

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
		if blockers := s.ev.BookBlockers(sub, open, now); len(blockers) > 0 {
			return notEligibleErr(blockers)
		}

		ok, err := s.cat.TitleExists(ctx, tx, titleID)
		if err != nil {
			return err
		}
		if !ok {
			return makeErr(ErrNotFound)
		}

		b := &model.Booking{
			SubscriberID:  sub.ID,
			TitleID:       titleID,
			RequestMadeOn: model.Date(now),
		}
		if err := s.r.Insert(ctx, tx, b); err != nil {
			return err
		}
		res.BookingID = b.ID

		// Resolve immediately only when nobody older is waiting for the
		// title, so a walk-in reservation cannot jump the queue.
		queued, err := s.r.OlderOpenForTitle(ctx, tx, titleID, b.ID)
		if err != nil {
			return err
		}
		if queued {
			return nil
		}

		copyID, err := s.cat.LockAvailableCopy(ctx, tx, titleID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil // out of stock, the resolution job will match later
			}
			return err
		}
		if err := s.bookCopy(ctx, tx, b.ID, copyID, now); err != nil {
			return err
		}

		deadline := model.Date(now).AddDate(0, 0, s.rules.MaxBookingDays)
		res.Resolved = true
		res.CopyID = &copyID
		res.WithdrawalDeadline = &deadline
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// bookCopy flips the copy to BOOKED and attaches it to the booking.
func (s *service) bookCopy(ctx context.Context, tx *sql.Tx, bookingID, copyID int64, now time.Time) error {
	c, err := s.cat.CopyForUpdate(ctx, tx, copyID)
	if err != nil {
		return err
	}
	if err := c.TransitionTo(model.CopyBooked); err != nil {
		return err
	}
	if err := s.cat.UpdateCopy(ctx, tx, c); err != nil {
		return err
	}
	return s.r.MarkResolved(ctx, tx, bookingID, copyID, model.Date(now))
}

func (s *service) Resolve(ctx context.Context, now time.Time) ([]model.Notification, ResolveStats, error) {
	var stats ResolveStats

	subIDs, err := s.r.SubscribersWithPending(ctx)
	if err != nil {
		return nil, stats, err
	}

	var notes []model.Notification
	for _, id := range subIDs {
		note, resolved, cancelled, err := s.resolveSubscriber(ctx, id, now)
		if err != nil {
			// one bad subscriber must not abort the whole pass
			s.log.Error("booking resolution: subscriber skipped", "subscriber_id", id, "err", err)
			stats.Failed++
			continue
		}
		stats.Subscribers++
		stats.Resolved += resolved
		stats.Cancelled += cancelled
		if note != nil {
			notes = append(notes, *note)
		}
	}
	return notes, stats, nil
}

type resolvedLine struct {
	title    string
	deadline time.Time
}

// resolveSubscriber processes one subscriber's bookings in its own
// transaction, oldest request first.
func (s *service) resolveSubscriber(ctx context.Context, subscriberID int64, now time.Time) (*model.Notification, int, int, error) {
	var (
		lines               []resolvedLine
		resolved, cancelled int
		email               string
	)

	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		sub, err := s.subs.GetForUpdate(ctx, tx, subscriberID)
		if err != nil {
			return err
		}
		email = sub.Email

		openRentals, err := s.rentals.CountOpenTx(ctx, tx, subscriberID)
		if err != nil {
			return err
		}
		bookings, err := s.r.PendingBySubscriber(ctx, tx, subscriberID)
		if err != nil {
			return err
		}

		flagsDirty := false
		for i := range bookings {
			b := &bookings[i]

			// Eligibility is re-checked before every booking: an expiry
			// strike earlier in this very pass can block the rest.
			if !s.ev.CanRent(sub, openRentals, now) {
				break
			}

			if b.ExpiredOn(now, s.rules.MaxBookingDays) {
				copyID := *b.CopyID
				if err := s.r.CancelAndRelease(ctx, tx, b.ID); err != nil {
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
				sub.DidntFollowRules()
				flagsDirty = true
				cancelled++
				continue
			}

			if !b.Open() {
				continue // resolved, still within the withdrawal window
			}

			copyID, err := s.cat.LockAvailableCopy(ctx, tx, b.TitleID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					continue // still out of stock
				}
				return err
			}
			if err := s.bookCopy(ctx, tx, b.ID, copyID, now); err != nil {
				return err
			}

			name, err := s.cat.TitleName(ctx, b.TitleID)
			if err != nil {
				return err
			}
			lines = append(lines, resolvedLine{
				title:    name,
				deadline: model.Date(now).AddDate(0, 0, s.rules.MaxBookingDays),
			})
			resolved++
		}

		if flagsDirty {
			return s.subs.UpdateFlags(ctx, tx, sub)
		}
		return nil
	})
	if err != nil {
		return nil, 0, 0, err
	}

	if len(lines) == 0 {
		return nil, resolved, cancelled, nil
	}

	// one notification per subscriber per pass, not one per booking
	var body strings.Builder
	body.WriteString("The following titles you booked are waiting for you:\n")
	for _, l := range lines {
		fmt.Fprintf(&body, "- %s (withdraw by %s)\n", l.title, l.deadline.Format("2006-01-02"))
	}
	return &model.Notification{
		SubscriberID: subscriberID,
		Email:        email,
		Subject:      "Your booked titles are ready",
		Body:         body.String(),
	}, resolved, cancelled, nil
}
