package jobs

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nathandem/library/notify"
	bs "github.com/nathandem/library/service/booking"
	"github.com/nathandem/library/service/sweep"
)

// Controller exposes the periodic jobs for manual runs, the same code the
// scheduler triggers on its own.
type Controller struct {
	Bookings bs.Service
	Sweeps   sweep.Service
	Notifier *notify.Notifier
	Log      *slog.Logger
}

// POST /v1/jobs/:name/run
func (h *Controller) Run(c echo.Context) error {
	ctx := c.Request().Context()
	now := time.Now().UTC()

	switch c.Param("name") {
	case "booking-resolution":
		notes, stats, err := h.Bookings.Resolve(ctx, now)
		if err != nil {
			h.Log.Error("booking resolution job", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
		h.Notifier.Dispatch(ctx, notes)
		return c.JSON(http.StatusOK, echo.Map{"job": "booking-resolution", "stats": stats, "notified": len(notes)})

	case "overdue":
		notes, stats, err := h.Sweeps.Overdue(ctx, now)
		if err != nil {
			h.Log.Error("overdue job", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
		h.Notifier.Dispatch(ctx, notes)
		return c.JSON(http.StatusOK, echo.Map{"job": "overdue", "stats": stats, "notified": len(notes)})

	case "deadline-approaching":
		notes, stats, err := h.Sweeps.DeadlineApproaching(ctx, now)
		if err != nil {
			h.Log.Error("deadline job", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
		h.Notifier.Dispatch(ctx, notes)
		return c.JSON(http.StatusOK, echo.Map{"job": "deadline-approaching", "stats": stats, "notified": len(notes)})

	default:
		return c.JSON(http.StatusNotFound, echo.Map{"message": "unknown job"})
	}
}
