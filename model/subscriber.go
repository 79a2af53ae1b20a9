// model/subscriber.go
package model

import "time"

// Subscriber is the lending profile attached to a user account.
//
// HasReceivedWarning and HasIssue track subscribers who broke the rules.
// The first infraction only warns; from the second on, HasIssue blocks all
// renting and booking until a librarian clears it. An overdue rental sets
// HasIssue directly, without the warning step.
//
// Deactivated subscribers keep their history but cannot rent or book; records
// are never deleted.
type Subscriber struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	Email              string    `json:"email"`
	AddressStreet      string    `json:"address_street"`
	AddressZipcode     string    `json:"address_zipcode"`
	IBAN               string    `json:"-"`
	SubscribedOn       time.Time `json:"subscribed_on"`
	HasIssue           bool      `json:"has_issue"`
	HasReceivedWarning bool      `json:"has_received_warning"`
	Deactivated        bool      `json:"deactivated"`
}

// DidntFollowRules escalates the subscriber's standing: warn on the first
// strike, block on the second and any later one.
func (s *Subscriber) DidntFollowRules() {
	if !s.HasReceivedWarning {
		s.HasReceivedWarning = true
		return
	}
	s.HasIssue = true
}

// SubscriptionEnd is the first day the subscription is no longer valid.
func (s *Subscriber) SubscriptionEnd(subscriptionDays int) time.Time {
	return Date(s.SubscribedOn).AddDate(0, 0, subscriptionDays)
}
