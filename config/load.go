package config

import (
	"log/slog"
	"os"
	"strconv"
)

func Load() App {
	cfg := App{
		Port:              getenv("APP_PORT", "8080"),
		DatabaseURL:       must("DATABASE_URL"),
		JWTSecret:         getenv("JWT_SECRET", "local_dev_secret"),
		Env:               getenv("APP_ENV", "dev"),
		MailjetPublicKey:  os.Getenv("MAILJET_PUBLIC_KEY"),
		MailjetPrivateKey: os.Getenv("MAILJET_PRIVATE_KEY"),
		SenderEmail:       getenv("SENDER_EMAIL", "library@localhost"),
		Rules: Rules{
			MaxRentBooks:     getint("MAX_RENT_BOOKS", 3),
			MaxRentDays:      getint("MAX_RENT_DAYS", 21),
			MaxBookingBooks:  getint("MAX_BOOKING_BOOKS", 3),
			MaxBookingDays:   getint("MAX_BOOKING_DAYS", 7),
			SubscriptionDays: getint("SUBSCRIPTION_DAYS_LENGTH", 365),
		},
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Error("invalid int env, using default", "key", k, "value", v)
		return def
	}
	return n
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}
