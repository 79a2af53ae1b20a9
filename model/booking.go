// model/booking.go
package model

import "time"

// Booking records a subscriber's request for a title. It starts open, then
// either resolves to a physical copy (CopyID and BookedOn set) or gets
// cancelled. Both outcomes are terminal: a cancelled booking never resolves
// and a resolved one only ends by withdrawal or expiry.
type Booking struct {
	ID            int64      `json:"id"`
	SubscriberID  int64      `json:"subscriber_id"`
	TitleID       int64      `json:"title_id"`
	RequestMadeOn time.Time  `json:"request_made_on"`
	Cancelled     bool       `json:"cancelled"`
	CopyID        *int64     `json:"copy_id,omitempty"`
	BookedOn      *time.Time `json:"booked_on,omitempty"`
	WithdrawnOn   *time.Time `json:"withdrawn_on,omitempty"`
}

func (b *Booking) Resolved() bool { return b.CopyID != nil }

// Open means still waiting for a copy.
func (b *Booking) Open() bool { return !b.Cancelled && !b.Resolved() }

// AwaitingWithdrawal means a copy is reserved and the subscriber has not yet
// come to rent it.
func (b *Booking) AwaitingWithdrawal() bool {
	return !b.Cancelled && b.Resolved() && b.WithdrawnOn == nil
}

// WithdrawalDeadline is the last day the subscriber may withdraw the reserved
// copy. Only meaningful on resolved bookings.
func (b *Booking) WithdrawalDeadline(maxBookingDays int) time.Time {
	return Date(*b.BookedOn).AddDate(0, 0, maxBookingDays)
}

// ExpiredOn reports whether the withdrawal window is over on the given day.
// The deadline day itself is still fine.
func (b *Booking) ExpiredOn(day time.Time, maxBookingDays int) bool {
	if !b.AwaitingWithdrawal() {
		return false
	}
	return Date(day).After(b.WithdrawalDeadline(maxBookingDays))
}
