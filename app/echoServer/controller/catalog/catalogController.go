package catalog

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/nathandem/library/model"
	cs "github.com/nathandem/library/service/catalog"
)

type Controller struct {
	Svc cs.Service
	V   *validator.Validate
	Log *slog.Logger
}

func pathID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// GET /v1/titles
func (h *Controller) List(c echo.Context) error {
	titles, err := h.Svc.ListTitles(c.Request().Context())
	if err != nil {
		h.Log.Error("list titles", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": titles})
}

// GET /v1/titles/:id
func (h *Controller) Detail(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	t, err := h.Svc.TitleDetail(c.Request().Context(), id)
	if err != nil {
		if cs.Code(err) == cs.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "title not found"})
		}
		h.Log.Error("title detail", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, t)
}

// GET /v1/titles/:id/copies
func (h *Controller) ListCopies(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	copies, err := h.Svc.ListCopies(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("list copies", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": copies})
}

// POST /v1/titles
func (h *Controller) Create(c echo.Context) error {
	var req CreateTitleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	id, err := h.Svc.CreateTitle(c.Request().Context(), req.Name, req.Author, req.Genre, req.PublicationYear)
	if err != nil {
		h.Log.Error("create title", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// POST /v1/titles/:id/copies
func (h *Controller) AddCopies(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req AddCopiesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	n, err := h.Svc.AddCopies(c.Request().Context(), id, req.Count, time.Now().UTC())
	if err != nil {
		if cs.Code(err) == cs.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "title not found"})
		}
		h.Log.Error("add copies", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"added": n})
}

// POST /v1/copies/:id/activate
func (h *Controller) Activate(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	if err := h.Svc.ActivateCopy(c.Request().Context(), id); err != nil {
		switch cs.Code(err) {
		case cs.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "copy not found"})
		case cs.ErrIllegalState:
			return c.JSON(http.StatusConflict, echo.Map{
				"message":     "copy cannot be activated",
				"copy_status": cs.CopyStatus(err),
			})
		default:
			h.Log.Error("activate copy", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "activated"})
}

// POST /v1/copies/:id/retire
func (h *Controller) Retire(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req RetireCopyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	err := h.Svc.RetireCopy(c.Request().Context(), id, model.RetirementCause(req.Cause), time.Now().UTC())
	if err != nil {
		switch cs.Code(err) {
		case cs.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "copy not found"})
		case cs.ErrIllegalState:
			return c.JSON(http.StatusConflict, echo.Map{
				"message":     "copy cannot be retired",
				"copy_status": cs.CopyStatus(err),
			})
		default:
			h.Log.Error("retire copy", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "retired"})
}
