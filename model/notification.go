// model/notification.go
package model

// Notification is a message the engine wants delivered to a subscriber. The
// engine only computes recipient and content; dispatch belongs to the notify
// adapter and must never roll back the state change that produced it.
type Notification struct {
	SubscriberID int64  `json:"subscriber_id"`
	Email        string `json:"email"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
}
