// model/rental.go
package model

import "time"

// Rental links a subscriber to a copy. It keeps track of current rentals
// (lateness detection) and of past ones (history, popularity analytics).
//
// DueFor is fixed when the rental is created and never recomputed.
type Rental struct {
	ID           int64      `json:"id"`
	SubscriberID int64      `json:"subscriber_id"`
	CopyID       int64      `json:"copy_id"`
	RentOn       time.Time  `json:"rent_on"`
	DueFor       time.Time  `json:"due_for"`
	ReturnedOn   *time.Time `json:"returned_on,omitempty"`
	Late         bool       `json:"late"`
}

func (r *Rental) Open() bool { return r.ReturnedOn == nil }

// LateIfReturnedOn reports whether returning on the given day makes the
// rental late. Returning exactly on the due date is fine.
func (r *Rental) LateIfReturnedOn(day time.Time) bool {
	return Date(day).After(Date(r.DueFor))
}
