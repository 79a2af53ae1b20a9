package subscriber

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nathandem/library/app/echoServer/jwtx"
	ss "github.com/nathandem/library/service/subscriber"
)

type Controller struct {
	Svc ss.Service
	Log *slog.Logger
}

// GET /v1/me
func (h *Controller) Me(c echo.Context) error {
	uid, err := jwtx.UserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	sub, err := h.Svc.ByUserID(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, ss.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "no subscriber profile"})
		}
		h.Log.Error("me", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, sub)
}

// POST /v1/subscribers/:id/clear-issue
func (h *Controller) ClearIssue(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := h.Svc.ClearIssue(c.Request().Context(), id); err != nil {
		if errors.Is(err, ss.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "subscriber not found"})
		}
		h.Log.Error("clear issue", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "issue cleared"})
}

// POST /v1/subscribers/:id/deactivate
func (h *Controller) Deactivate(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := h.Svc.Deactivate(c.Request().Context(), id); err != nil {
		h.Log.Error("deactivate", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "deactivated"})
}
