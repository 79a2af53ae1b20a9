package booking

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/nathandem/library/app/echoServer/jwtx"
	bs "github.com/nathandem/library/service/booking"
	subscribersvc "github.com/nathandem/library/service/subscriber"
)

type ReserveReq struct {
	TitleID int64 `json:"title_id" validate:"required,gt=0"`
}

type Controller struct {
	Svc  bs.Service
	Subs subscribersvc.Service
	V    *validator.Validate
	Log  *slog.Logger
}

// POST /v1/bookings
func (h *Controller) Reserve(c echo.Context) error {
	var req ReserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	sub, err := h.Subs.ByUserID(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := h.Svc.Reserve(c.Request().Context(), sub.ID, req.TitleID, time.Now().UTC())
	if err != nil {
		switch bs.Code(err) {
		case bs.ErrNotEligible:
			return c.JSON(http.StatusBadRequest, echo.Map{
				"message":  "not eligible to book",
				"blockers": bs.Blockers(err),
			})
		case bs.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "title not found"})
		default:
			h.Log.Error("reserve", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, out)
}
