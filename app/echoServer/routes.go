package echoServer

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	authctrl "github.com/nathandem/library/app/echoServer/controller/auth"
	bookingctrl "github.com/nathandem/library/app/echoServer/controller/booking"
	catalogctrl "github.com/nathandem/library/app/echoServer/controller/catalog"
	jobsctrl "github.com/nathandem/library/app/echoServer/controller/jobs"
	rentalctrl "github.com/nathandem/library/app/echoServer/controller/rental"
	subscriberctrl "github.com/nathandem/library/app/echoServer/controller/subscriber"
	"github.com/nathandem/library/app/echoServer/jwtx"
	"github.com/nathandem/library/model"
)

type C struct {
	Auth       *authctrl.Controller
	Subscriber *subscriberctrl.Controller
	Catalog    *catalogctrl.Controller
	Rental     *rentalctrl.Controller
	Booking    *bookingctrl.Controller
	Jobs       *jobsctrl.Controller

	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/subscribers/register", c.Auth.Register)
	pub.POST("/login", c.Auth.Login)

	// Authenticated
	auth := e.Group("/v1")
	auth.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
	}))

	auth.GET("/titles", c.Catalog.List)
	auth.GET("/titles/:id", c.Catalog.Detail)
	auth.GET("/titles/:id/copies", c.Catalog.ListCopies)

	auth.GET("/me", c.Subscriber.Me)
	auth.GET("/rentals/eligibility", c.Rental.Eligibility)
	auth.GET("/rentals/my", c.Rental.MyHistory)
	auth.POST("/rentals", c.Rental.Rent)
	auth.POST("/copies/:id/return", c.Rental.Return)
	auth.POST("/bookings", c.Booking.Reserve)

	// Librarian endpoints
	lib := auth.Group("", RequireLibrarian)
	lib.POST("/titles", c.Catalog.Create)
	lib.POST("/titles/:id/copies", c.Catalog.AddCopies)
	lib.POST("/copies/:id/activate", c.Catalog.Activate)
	lib.POST("/copies/:id/retire", c.Catalog.Retire)
	lib.POST("/subscribers/:id/clear-issue", c.Subscriber.ClearIssue)
	lib.POST("/subscribers/:id/deactivate", c.Subscriber.Deactivate)
	lib.POST("/jobs/:name/run", c.Jobs.Run)
}

func RequireLibrarian(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, err := jwtx.RoleFromContext(c)
		if err != nil || role != string(model.RoleLibrarian) {
			return c.JSON(http.StatusForbidden, echo.Map{"message": "librarian only"})
		}
		return next(c)
	}
}
