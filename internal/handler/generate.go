package handler

import (
	"context"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mel-roster/internal/document"
	"github.com/iliyamo/mel-roster/internal/seniorrater"
)

// SeniorRaters handles GET /v1/workflows/:id/senior-raters.
func (h *WorkflowHandler) SeniorRaters(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	st, err := w.SeniorRaters()
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// SetSeniorRater handles PUT /v1/workflows/:id/senior-raters/:pascode.
func (h *WorkflowHandler) SetSeniorRater(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	var r seniorrater.Record
	if err := c.Bind(&r); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	st, err := w.SetSeniorRater(c.Param("pascode"), r)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// SetSmallUnitSeniorRater handles PUT /v1/workflows/:id/senior-raters/small-unit.
func (h *WorkflowHandler) SetSmallUnitSeniorRater(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	var r seniorrater.Record
	if err := c.Bind(&r); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	st, err := w.SetSmallUnitSeniorRater(r)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// documentResponse is a generated MEL and where to fetch it.
type documentResponse struct {
	Document    document.Handle `json:"document"`
	DownloadURL string          `json:"download_url"`
}

func newDocumentResponse(h document.Handle) documentResponse {
	return documentResponse{Document: h, DownloadURL: "/v1/documents/" + h.Token}
}

// Generate handles POST /v1/workflows/:id/generate.
func (h *WorkflowHandler) Generate(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	doc, err := w.Generate(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, newDocumentResponse(doc))
}

// Document handles GET /v1/workflows/:id/document.
func (h *WorkflowHandler) Document(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	doc, err := w.Document()
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newDocumentResponse(doc))
}

// RefreshDocument handles POST /v1/workflows/:id/document/refresh.  It
// downloads the MEL again from the roster service, e.g. after the stored
// copy expired.
func (h *WorkflowHandler) RefreshDocument(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	doc, err := w.RefreshDocument(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newDocumentResponse(doc))
}

// DocumentOpener resolves download tokens.
type DocumentOpener interface {
	Open(ctx context.Context, token string) (document.Document, error)
}

// DocumentHandler serves generated MELs by signed token.
type DocumentHandler struct {
	Documents DocumentOpener
}

// Download handles GET /v1/documents/:token.
func (h *DocumentHandler) Download(c echo.Context) error {
	doc, err := h.Documents.Open(c.Request().Context(), c.Param("token"))
	if err != nil {
		return writeError(c, err)
	}
	disp := mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename})
	c.Response().Header().Set(echo.HeaderContentDisposition, disp)
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, doc.ContentType, doc.Data)
}
