package config

type App struct {
	Port        string `env:"APP_PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET" default:"local_dev_secret"`
	Env         string `env:"APP_ENV" default:"dev"`

	// Mailjet credentials; empty keys put the notifier in log-only mode.
	MailjetPublicKey  string `env:"MAILJET_PUBLIC_KEY"`
	MailjetPrivateKey string `env:"MAILJET_PRIVATE_KEY"`
	SenderEmail       string `env:"SENDER_EMAIL" default:"library@localhost"`

	Rules Rules
}

// Rules are the lending constants, fixed at process start and injected into
// the services; nothing reads them ambiently.
type Rules struct {
	MaxRentBooks     int `env:"MAX_RENT_BOOKS" default:"3"`
	MaxRentDays      int `env:"MAX_RENT_DAYS" default:"21"`
	MaxBookingBooks  int `env:"MAX_BOOKING_BOOKS" default:"3"`
	MaxBookingDays   int `env:"MAX_BOOKING_DAYS" default:"7"`
	SubscriptionDays int `env:"SUBSCRIPTION_DAYS_LENGTH" default:"365"`
}
