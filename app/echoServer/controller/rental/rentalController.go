package rental

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/nathandem/library/app/echoServer/jwtx"
	rs "github.com/nathandem/library/service/rental"
	subscribersvc "github.com/nathandem/library/service/subscriber"
)

type Controller struct {
	Svc  rs.Service
	Subs subscribersvc.Service
	V    *validator.Validate
	Log  *slog.Logger
}

func (h *Controller) subscriberID(c echo.Context) (int64, error) {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return 0, err
	}
	sub, err := h.Subs.ByUserID(c.Request().Context(), uid)
	if err != nil {
		return 0, err
	}
	return sub.ID, nil
}

// POST /v1/rentals
func (h *Controller) Rent(c echo.Context) error {
	var req RentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	subID, err := h.subscriberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := h.Svc.Rent(c.Request().Context(), subID, req.CopyID, time.Now().UTC())
	if err != nil {
		switch rs.Code(err) {
		case rs.ErrNotEligible:
			return c.JSON(http.StatusBadRequest, echo.Map{
				"message":  "not eligible to rent",
				"blockers": rs.Blockers(err),
			})
		case rs.ErrCopyUnavailable:
			return c.JSON(http.StatusConflict, echo.Map{
				"message":     "copy not available",
				"copy_status": rs.CopyStatus(err),
			})
		case rs.ErrExpiredBooking:
			return c.JSON(http.StatusConflict, echo.Map{
				"message": "booking withdrawal window expired, booking cancelled",
			})
		case rs.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "not found"})
		default:
			h.Log.Error("rent", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"rental_id": out.RentalID,
		"title":     out.Title,
		"due_for":   out.DueFor.Format("2006-01-02"),
	})
}

// POST /v1/copies/:id/return
func (h *Controller) Return(c echo.Context) error {
	copyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || copyID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	subID, err := h.subscriberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := h.Svc.Return(c.Request().Context(), subID, copyID, time.Now().UTC())
	if err != nil {
		switch rs.Code(err) {
		case rs.ErrNoOpenRental:
			return c.JSON(http.StatusConflict, echo.Map{"message": "no open rental on this copy"})
		case rs.ErrOwnerMismatch:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "not your rental"})
		default:
			h.Log.Error("return", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"title": out.Title, "late": out.Late})
}

// GET /v1/rentals/eligibility
func (h *Controller) Eligibility(c echo.Context) error {
	subID, err := h.subscriberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	out, err := h.Svc.Eligibility(c.Request().Context(), subID, time.Now().UTC())
	if err != nil {
		if rs.Code(err) == rs.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "subscriber not found"})
		}
		h.Log.Error("eligibility", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, out)
}

// GET /v1/rentals/my
func (h *Controller) MyHistory(c echo.Context) error {
	subID, err := h.subscriberID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	rows, err := h.Svc.History(c.Request().Context(), subID)
	if err != nil {
		h.Log.Error("history", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
