// Package sweep holds the periodic rental jobs: flagging overdue rentals and
// reminding subscribers of deadlines coming up. Thin orchestration, the rules
// live in the model and the eligibility evaluator.
package sweep

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nathandem/library/model"
	rentalrepo "github.com/nathandem/library/repository/rental"
)

// ReminderLeadDays is how many days before the due date the reminder goes out.
const ReminderLeadDays = 4

type OpenRow = rentalrepo.OpenRow

// Stats reports how a sweep went; a failing subscriber is logged and skipped,
// never fatal for the pass.
type Stats struct {
	Subscribers int `json:"subscribers"`
	Rentals     int `json:"rentals"`
	Failed      int `json:"failed"`
}

type Database interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type RentalRepo interface {
	OpenDueOnOrBefore(ctx context.Context, day time.Time) ([]OpenRow, error)
	OpenDueOn(ctx context.Context, day time.Time) ([]OpenRow, error)
	MarkLate(ctx context.Context, tx *sql.Tx, rentalID int64) error
}

type SubscriberRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Subscriber, error)
	UpdateFlags(ctx context.Context, tx *sql.Tx, s *model.Subscriber) error
}

type Service interface {
	// Overdue flags open rentals past their due date and hard-blocks their
	// subscribers. Returns one notification per affected subscriber.
	Overdue(ctx context.Context, now time.Time) ([]model.Notification, Stats, error)

	// DeadlineApproaching reminds subscribers of rentals due in exactly
	// ReminderLeadDays. Read-only.
	DeadlineApproaching(ctx context.Context, now time.Time) ([]model.Notification, Stats, error)
}

type service struct {
	db   Database
	r    RentalRepo
	subs SubscriberRepo
	log  *slog.Logger
}

func New(db Database, r RentalRepo, subs SubscriberRepo, log *slog.Logger) Service {
	return &service{db: db, r: r, subs: subs, log: log}
}

func (s *service) Overdue(ctx context.Context, now time.Time) ([]model.Notification, Stats, error) {
	var stats Stats

	rows, err := s.r.OpenDueOnOrBefore(ctx, model.Date(now))
	if err != nil {
		return nil, stats, err
	}
	groups := groupBySubscriber(rows)

	var notes []model.Notification
	for _, g := range groups {
		err := s.db.InTx(ctx, func(tx *sql.Tx) error {
			sub, err := s.subs.GetForUpdate(ctx, tx, g.subscriberID)
			if err != nil {
				return err
			}
			for _, row := range g.rows {
				if row.Late {
					continue // flagged by an earlier sweep
				}
				if err := s.r.MarkLate(ctx, tx, row.RentalID); err != nil {
					return err
				}
			}
			// overdue is an immediate hard block, not a two-strike warning
			if !sub.HasIssue {
				sub.HasIssue = true
				return s.subs.UpdateFlags(ctx, tx, sub)
			}
			return nil
		})
		if err != nil {
			s.log.Error("overdue sweep: subscriber skipped", "subscriber_id", g.subscriberID, "err", err)
			stats.Failed++
			continue
		}
		stats.Subscribers++
		stats.Rentals += len(g.rows)

		var body strings.Builder
		body.WriteString("You passed the return deadline for:\n")
		for _, row := range g.rows {
			fmt.Fprintf(&body, "- %s (was due %s)\n", row.TitleName, row.DueFor.Format("2006-01-02"))
		}
		body.WriteString("You can't rent or book again until you settle your situation with the librarians.\n")
		notes = append(notes, model.Notification{
			SubscriberID: g.subscriberID,
			Email:        g.email,
			Subject:      "Overdue rentals",
			Body:         body.String(),
		})
	}
	return notes, stats, nil
}

func (s *service) DeadlineApproaching(ctx context.Context, now time.Time) ([]model.Notification, Stats, error) {
	var stats Stats

	due := model.Date(now).AddDate(0, 0, ReminderLeadDays)
	rows, err := s.r.OpenDueOn(ctx, due)
	if err != nil {
		return nil, stats, err
	}

	var notes []model.Notification
	for _, g := range groupBySubscriber(rows) {
		stats.Subscribers++
		stats.Rentals += len(g.rows)

		var body strings.Builder
		fmt.Fprintf(&body, "These rentals are due on %s:\n", due.Format("2006-01-02"))
		for _, row := range g.rows {
			fmt.Fprintf(&body, "- %s\n", row.TitleName)
		}
		notes = append(notes, model.Notification{
			SubscriberID: g.subscriberID,
			Email:        g.email,
			Subject:      "Rentals due soon",
			Body:         body.String(),
		})
	}
	return notes, stats, nil
}

type subscriberGroup struct {
	subscriberID int64
	email        string
	rows         []OpenRow
}

// groupBySubscriber keeps first-seen order so output is deterministic.
func groupBySubscriber(rows []OpenRow) []subscriberGroup {
	idx := make(map[int64]int)
	var out []subscriberGroup
	for _, row := range rows {
		i, ok := idx[row.SubscriberID]
		if !ok {
			i = len(out)
			idx[row.SubscriberID] = i
			out = append(out, subscriberGroup{subscriberID: row.SubscriberID, email: row.Email})
		}
		out[i].rows = append(out[i].rows, row)
	}
	return out
}
