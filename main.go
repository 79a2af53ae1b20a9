// Package main library lending API.
//
// @title           Library Lending API
// @version         1.0
// @description     Subscriptions, rentals, bookings and the periodic lending jobs.
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/nathandem/library/app/echoServer"
	authctrl "github.com/nathandem/library/app/echoServer/controller/auth"
	bookingctrl "github.com/nathandem/library/app/echoServer/controller/booking"
	catalogctrl "github.com/nathandem/library/app/echoServer/controller/catalog"
	jobsctrl "github.com/nathandem/library/app/echoServer/controller/jobs"
	rentalctrl "github.com/nathandem/library/app/echoServer/controller/rental"
	subscriberctrl "github.com/nathandem/library/app/echoServer/controller/subscriber"
	"github.com/nathandem/library/app/echoServer/validation"
	"github.com/nathandem/library/config"
	"github.com/nathandem/library/notify"
	bookingrepo "github.com/nathandem/library/repository/booking"
	catalogrepo "github.com/nathandem/library/repository/catalog"
	rentalrepo "github.com/nathandem/library/repository/rental"
	subscriberrepo "github.com/nathandem/library/repository/subscriber"
	userrepo "github.com/nathandem/library/repository/user"
	authsvc "github.com/nathandem/library/service/auth"
	bookingsvc "github.com/nathandem/library/service/booking"
	catalogsvc "github.com/nathandem/library/service/catalog"
	"github.com/nathandem/library/service/eligibility"
	rentalsvc "github.com/nathandem/library/service/rental"
	subscribersvc "github.com/nathandem/library/service/subscriber"
	sweepsvc "github.com/nathandem/library/service/sweep"
	"github.com/nathandem/library/util/database"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB: *sql.DB through pgx stdlib
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	ur := userrepo.New(db.SQL)
	sr := subscriberrepo.New(db.SQL)
	cr := catalogrepo.New(db.SQL)
	rr := rentalrepo.New(db.SQL)
	br := bookingrepo.New(db.SQL)

	// services
	ev := eligibility.New(cfg.Rules)
	as := authsvc.New(db, ur, sr, cfg.JWTSecret)
	ss := subscribersvc.New(db, sr)
	cs := catalogsvc.New(db, cr)
	rs := rentalsvc.New(db, ev, cfg.Rules, rr, sr, cr, br)
	bs := bookingsvc.New(db, ev, cfg.Rules, br, sr, cr, rr, log)
	sw := sweepsvc.New(db, rr, sr, log)

	notifier := notify.New(log, cfg.SenderEmail, cfg.MailjetPublicKey, cfg.MailjetPrivateKey)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	subscriberC := &subscriberctrl.Controller{Svc: ss, Log: log}
	catalogC := &catalogctrl.Controller{Svc: cs, V: v, Log: log}
	rentalC := &rentalctrl.Controller{Svc: rs, Subs: ss, V: v, Log: log}
	bookingC := &bookingctrl.Controller{Svc: bs, Subs: ss, V: v, Log: log}
	jobsC := &jobsctrl.Controller{Bookings: bs, Sweeps: sw, Notifier: notifier, Log: log}

	// periodic jobs: the engine stays correct if a run is missed, the next
	// pass picks up the same rows
	sched := cron.New()
	mustSchedule(log, sched, "@every 15m", "booking-resolution", func(ctx context.Context, now time.Time) error {
		notes, stats, err := bs.Resolve(ctx, now)
		if err != nil {
			return err
		}
		log.Info("booking resolution pass done",
			"subscribers", stats.Subscribers, "resolved", stats.Resolved,
			"cancelled", stats.Cancelled, "failed", stats.Failed)
		notifier.Dispatch(ctx, notes)
		return nil
	})
	mustSchedule(log, sched, "30 2 * * *", "overdue", func(ctx context.Context, now time.Time) error {
		notes, stats, err := sw.Overdue(ctx, now)
		if err != nil {
			return err
		}
		log.Info("overdue sweep done",
			"subscribers", stats.Subscribers, "rentals", stats.Rentals, "failed", stats.Failed)
		notifier.Dispatch(ctx, notes)
		return nil
	})
	mustSchedule(log, sched, "0 8 * * *", "deadline-approaching", func(ctx context.Context, now time.Time) error {
		notes, stats, err := sw.DeadlineApproaching(ctx, now)
		if err != nil {
			return err
		}
		log.Info("deadline reminder pass done",
			"subscribers", stats.Subscribers, "rentals", stats.Rentals)
		notifier.Dispatch(ctx, notes)
		return nil
	})
	sched.Start()
	defer sched.Stop()

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{"status": "ok"})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:       authC,
		Subscriber: subscriberC,
		Catalog:    catalogC,
		Rental:     rentalC,
		Booking:    bookingC,
		Jobs:       jobsC,

		JWTSecret: cfg.JWTSecret,
	})

	log.Info("starting server", "port", cfg.Port, "env", cfg.Env)
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}

func mustSchedule(log *slog.Logger, sched *cron.Cron, spec, name string, job func(context.Context, time.Time) error) {
	_, err := sched.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := job(ctx, time.Now().UTC()); err != nil {
			log.Error("scheduled job failed", "job", name, "err", err)
		}
	})
	if err != nil {
		log.Error("bad cron spec", "job", name, "spec", spec, "err", err)
		os.Exit(1)
	}
}
