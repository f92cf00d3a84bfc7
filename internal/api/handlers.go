package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"salesdash/internal/dashboard"
	"salesdash/internal/engine"
	"salesdash/internal/models"
)

type Handler struct {
	svc *dashboard.Service
	log *zap.Logger
}

func NewHandler(svc *dashboard.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	api := e.Group("/api")
	api.POST("/datasets", h.Upload)
	api.GET("/datasets/:id", h.GetDataset)
	api.DELETE("/datasets/:id", h.DeleteDataset)
	api.POST("/datasets/:id/dashboard", h.GetDashboard)
	api.POST("/datasets/:id/rows", h.GetRows)
	api.POST("/datasets/:id/export", h.Export)
}

// --- HANDLERS ---
func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// bindSelection reads an optional JSON selection body. An empty body means
// the default selection.
func bindSelection(c echo.Context) (engine.Selection, error) {
	var body models.Selection
	if err := c.Bind(&body); err != nil {
		return engine.Selection{}, err
	}
	sel, err := dashboard.SelectionFromModel(body)
	if err != nil {
		return engine.Selection{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return sel, nil
}

// toHTTPError maps pipeline errors onto status codes.
func toHTTPError(err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, engine.ErrUnreadableFile):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Cannot read the uploaded file. Please check the format.").SetInternal(err)
	case errors.Is(err, engine.ErrConfigMismatch):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	case errors.Is(err, dashboard.ErrDatasetNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Upload accepts a multipart "file" field and caches the parsed dataset.
func (h *Handler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	f, err := fh.Open()
	if err != nil {
		return toHTTPError(err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return toHTTPError(err)
	}
	entry, err := h.svc.Upload(fh.Filename, content)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, entry.Info())
}

func (h *Handler) GetDataset(c echo.Context) error {
	entry, err := h.svc.Get(c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, entry.Info())
}

func (h *Handler) DeleteDataset(c echo.Context) error {
	if !h.svc.Invalidate(c.Param("id")) {
		return toHTTPError(dashboard.ErrDatasetNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	sel, err := bindSelection(c)
	if err != nil {
		return toHTTPError(err)
	}
	data, err := h.svc.Dashboard(c.Param("id"), sel)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, data)
}

// GetRows pages through the filtered view.
func (h *Handler) GetRows(c echo.Context) error {
	sel, err := bindSelection(c)
	if err != nil {
		return toHTTPError(err)
	}
	_, view, err := h.svc.View(c.Param("id"), sel)
	if err != nil {
		return toHTTPError(err)
	}

	total := view.Len()
	limit, offset := getPaginationParams(c, total)
	return c.JSON(http.StatusOK, models.RowsPage{
		Columns: view.Columns,
		Rows:    engine.RawRows(view, offset, limit),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// Export downloads the filtered view as filtered_data.csv.
func (h *Handler) Export(c echo.Context) error {
	sel, err := bindSelection(c)
	if err != nil {
		return toHTTPError(err)
	}
	var buf bytes.Buffer
	if err := h.svc.Export(&buf, c.Param("id"), sel); err != nil {
		return toHTTPError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+engine.ExportFileName+`"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
