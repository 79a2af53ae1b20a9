package model

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBookingLifecyclePredicates(t *testing.T) {
	b := &Booking{RequestMadeOn: day(2026, 1, 5)}
	if !b.Open() || b.Resolved() || b.AwaitingWithdrawal() {
		t.Fatalf("fresh booking should be open only, got %+v", b)
	}

	copyID := int64(7)
	booked := day(2026, 1, 8)
	b.CopyID = &copyID
	b.BookedOn = &booked
	if b.Open() || !b.Resolved() || !b.AwaitingWithdrawal() {
		t.Fatalf("resolved booking predicates wrong: %+v", b)
	}

	withdrawn := day(2026, 1, 10)
	b.WithdrawnOn = &withdrawn
	if b.AwaitingWithdrawal() {
		t.Fatal("withdrawn booking no longer awaits withdrawal")
	}
}

func TestBookingExpiry(t *testing.T) {
	copyID := int64(7)
	booked := day(2026, 1, 8)
	b := &Booking{CopyID: &copyID, BookedOn: &booked}

	deadline := b.WithdrawalDeadline(7)
	if !deadline.Equal(day(2026, 1, 15)) {
		t.Fatalf("deadline = %v", deadline)
	}

	// the deadline day itself is still fine
	if b.ExpiredOn(day(2026, 1, 15), 7) {
		t.Fatal("not expired on the deadline day")
	}
	if !b.ExpiredOn(day(2026, 1, 16), 7) {
		t.Fatal("expired the day after the deadline")
	}

	// cancelled and open bookings never expire
	b.Cancelled = true
	if b.ExpiredOn(day(2026, 2, 1), 7) {
		t.Fatal("cancelled booking cannot expire")
	}
	open := &Booking{RequestMadeOn: day(2026, 1, 5)}
	if open.ExpiredOn(day(2026, 3, 1), 7) {
		t.Fatal("open booking cannot expire")
	}
}

func TestRentalLateness(t *testing.T) {
	r := &Rental{RentOn: day(2026, 2, 1), DueFor: day(2026, 2, 22)}

	if r.LateIfReturnedOn(day(2026, 2, 21)) {
		t.Fatal("early return is not late")
	}
	if r.LateIfReturnedOn(day(2026, 2, 22)) {
		t.Fatal("returning on the due date is not late")
	}
	if !r.LateIfReturnedOn(day(2026, 2, 23)) {
		t.Fatal("returning after the due date is late")
	}
}
