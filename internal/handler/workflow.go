package handler // handler translates HTTP requests into workflow operations

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mel-roster/internal/model"
	"github.com/iliyamo/mel-roster/internal/workflow"
)

// MaxRosterBytes caps an uploaded roster file.
const MaxRosterBytes = 50 << 20

// WorkflowHandler exposes the workflow registry over HTTP.
type WorkflowHandler struct {
	Workflows *workflow.Registry
}

// NewWorkflowHandler constructs a WorkflowHandler and panics if reg is nil.
func NewWorkflowHandler(reg *workflow.Registry) *WorkflowHandler {
	if reg == nil {
		panic("nil registry passed to NewWorkflowHandler")
	}
	return &WorkflowHandler{Workflows: reg}
}

// load resolves the :id path parameter.
func (h *WorkflowHandler) load(c echo.Context) (*workflow.Workflow, error) {
	return h.Workflows.Get(c.Param("id"))
}

type kindBody struct {
	Kind string `json:"kind"`
}

// Create handles POST /v1/workflows.  An empty body starts an initial MEL.
func (h *WorkflowHandler) Create(c echo.Context) error {
	var body kindBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	w, err := h.Workflows.Create(model.Kind(body.Kind))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, w.State())
}

// Get handles GET /v1/workflows/:id.
func (h *WorkflowHandler) Get(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, w.State())
}

// Delete handles DELETE /v1/workflows/:id.
func (h *WorkflowHandler) Delete(c echo.Context) error {
	if err := h.Workflows.Delete(c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SwitchKind handles PUT /v1/workflows/:id/kind.  Switching resets the
// workflow.
func (h *WorkflowHandler) SwitchKind(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	var body kindBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(body.Kind) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "kind is required"})
	}
	kind, err := model.ParseKind(body.Kind)
	if err != nil {
		return writeError(c, err)
	}
	if err := w.SwitchKind(kind); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, w.State())
}

// Reset handles POST /v1/workflows/:id/reset.
func (h *WorkflowHandler) Reset(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	w.Reset()
	return c.JSON(http.StatusOK, w.State())
}

// Upload handles POST /v1/workflows/:id/upload (multipart file, cycle,
// year).
func (h *WorkflowHandler) Upload(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	in := workflow.UploadInput{Cycle: c.FormValue("cycle")}
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "could not read roster file"})
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, MaxRosterBytes+1))
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "could not read roster file"})
		}
		if len(data) > MaxRosterBytes {
			return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "roster file is too large"})
		}
		in.Filename, in.Content = fh.Filename, data
	}
	if y := strings.TrimSpace(c.FormValue("year")); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "year must be a number"})
		}
		in.Year = n
	}
	if err := w.Upload(c.Request().Context(), in); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, w.State())
}

// Advance handles POST /v1/workflows/:id/advance (review to senior rater
// information).
func (h *WorkflowHandler) Advance(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := w.ContinueToSeniorRater(); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, w.State())
}
