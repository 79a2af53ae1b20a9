// Package eligibility decides whether a subscriber may rent or book. All
// functions are pure reads of the snapshot they are given; persistence and
// counting belong to the callers.
package eligibility

import (
	"time"

	"github.com/nathandem/library/config"
	"github.com/nathandem/library/model"
)

// Blocker is a machine-readable reason a subscriber cannot rent or book.
type Blocker string

const (
	BlockerDeactivated         Blocker = "deactivated"
	BlockerHasIssue            Blocker = "has_issue"
	BlockerSubscriptionExpired Blocker = "subscription_expired"
	BlockerMaxBooksReached     Blocker = "max_books_reached"
	BlockerMaxBookingsReached  Blocker = "max_bookings_reached"
)

type Evaluator struct {
	rules config.Rules
}

func New(rules config.Rules) *Evaluator { return &Evaluator{rules: rules} }

// SubscriptionValid: a subscription is valid strictly before
// subscribed_on + SUBSCRIPTION_DAYS_LENGTH.
func (e *Evaluator) SubscriptionValid(sub *model.Subscriber, now time.Time) bool {
	return model.Date(now).Before(sub.SubscriptionEnd(e.rules.SubscriptionDays))
}

func (e *Evaluator) CanRent(sub *model.Subscriber, openRentals int, now time.Time) bool {
	return len(e.RentBlockers(sub, openRentals, now)) == 0
}

func (e *Evaluator) CanBook(sub *model.Subscriber, openBookings int, now time.Time) bool {
	return len(e.BookBlockers(sub, openBookings, now)) == 0
}

// RentBlockers enumerates every failing condition in a fixed order, without
// short-circuiting, so callers can report all reasons at once.
func (e *Evaluator) RentBlockers(sub *model.Subscriber, openRentals int, now time.Time) []Blocker {
	var out []Blocker
	if sub.Deactivated {
		out = append(out, BlockerDeactivated)
	}
	if sub.HasIssue {
		out = append(out, BlockerHasIssue)
	}
	if !e.SubscriptionValid(sub, now) {
		out = append(out, BlockerSubscriptionExpired)
	}
	if openRentals >= e.rules.MaxRentBooks {
		out = append(out, BlockerMaxBooksReached)
	}
	return out
}

func (e *Evaluator) BookBlockers(sub *model.Subscriber, openBookings int, now time.Time) []Blocker {
	var out []Blocker
	if sub.Deactivated {
		out = append(out, BlockerDeactivated)
	}
	if sub.HasIssue {
		out = append(out, BlockerHasIssue)
	}
	if !e.SubscriptionValid(sub, now) {
		out = append(out, BlockerSubscriptionExpired)
	}
	if openBookings >= e.rules.MaxBookingBooks {
		out = append(out, BlockerMaxBookingsReached)
	}
	return out
}

// AllowedRentCount is how many more copies the subscriber may take now.
func (e *Evaluator) AllowedRentCount(openRentals int) int {
	n := e.rules.MaxRentBooks - openRentals
	if n < 0 {
		return 0
	}
	return n
}
