// model/dates.go
package model

import "time"

// Date truncates t to its UTC calendar day. All lending rules (due dates,
// withdrawal windows, subscription validity) compare whole days.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
