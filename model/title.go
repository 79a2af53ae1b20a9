// model/title.go
package model

// Title is a catalog entry for a work. Subscribers book titles, not physical
// copies; it is up to the booking resolution job to translate a title into an
// actual copy.
type Title struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Author          string `json:"author"`
	Genre           string `json:"genre"`
	PublicationYear int    `json:"publication_year"`

	// AvailableCopies is filled by list/detail queries, not stored.
	AvailableCopies int64 `json:"available_copies"`
}
