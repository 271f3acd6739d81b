package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mel-roster/internal/member"
	"github.com/iliyamo/mel-roster/internal/model"
	"github.com/iliyamo/mel-roster/internal/rosterclient"
	"github.com/iliyamo/mel-roster/internal/workflow"
)

// viewQuery reads category, q, page and page_size.  Absent parameters keep
// the current view settings.
func viewQuery(c echo.Context) (workflow.ViewQuery, error) {
	var q workflow.ViewQuery
	params := c.QueryParams()
	if params.Has("category") {
		cat, err := model.ParseCategory(params.Get("category"))
		if err != nil {
			return q, err
		}
		q.Category = &cat
	}
	if params.Has("q") {
		term := params.Get("q")
		q.Term = &term
	}
	for name, dst := range map[string]**int{"page": &q.Page, "page_size": &q.PageSize} {
		if !params.Has(name) {
			continue
		}
		n, err := strconv.Atoi(params.Get(name))
		if err != nil {
			return q, echo.NewHTTPError(http.StatusBadRequest, name+" must be a number")
		}
		*dst = &n
	}
	return q, nil
}

func (h *WorkflowHandler) respondView(c echo.Context, w *workflow.Workflow, status int) error {
	v, err := w.View(workflow.ViewQuery{})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(status, v)
}

// View handles GET /v1/workflows/:id/roster.
func (h *WorkflowHandler) View(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	q, err := viewQuery(c)
	if err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return c.JSON(he.Code, echo.Map{"error": he.Message})
		}
		return writeError(c, err)
	}
	v, err := w.View(q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Reload handles POST /v1/workflows/:id/roster/reload.
func (h *WorkflowHandler) Reload(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := w.Reload(c.Request().Context()); err != nil {
		return writeError(c, err)
	}
	return h.respondView(c, w, http.StatusOK)
}

// Reprocess handles POST /v1/workflows/:id/roster/reprocess.
func (h *WorkflowHandler) Reprocess(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	var body rosterclient.ReprocessRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := w.Reprocess(c.Request().Context(), body); err != nil {
		return writeError(c, err)
	}
	return h.respondView(c, w, http.StatusOK)
}

// AddMember handles POST /v1/workflows/:id/members.  The body is merged
// into the add-member draft before submission, so a client may send only
// what changed since the last attempt.
func (h *WorkflowHandler) AddMember(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	var in member.DraftInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := w.AddMember(c.Request().Context(), in); err != nil {
		return writeError(c, err)
	}
	return h.respondView(c, w, http.StatusCreated)
}

// UpdateDraft handles PATCH /v1/workflows/:id/members/draft.
func (h *WorkflowHandler) UpdateDraft(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	var in member.DraftInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	d, err := w.UpdateDraft(in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// EditMember handles PUT /v1/workflows/:id/members/:mid.  The body is a
// field patch keyed by canonical names or aliases.
func (h *WorkflowHandler) EditMember(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(c.Request().Body, 1<<20)).Decode(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := w.EditMember(c.Request().Context(), c.Param("mid"), patch); err != nil {
		return writeError(c, err)
	}
	return h.respondView(c, w, http.StatusOK)
}

// DeleteMember handles DELETE /v1/workflows/:id/members/:mid.  hard_delete
// may also be given as a query parameter.
func (h *WorkflowHandler) DeleteMember(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	var in member.DeleteRequest
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if v := c.QueryParam("hard_delete"); v != "" {
		hard, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "hard_delete must be true or false"})
		}
		in.HardDelete = hard
	}
	if err := w.DeleteMember(c.Request().Context(), c.Param("mid"), in); err != nil {
		return writeError(c, err)
	}
	return h.respondView(c, w, http.StatusOK)
}

// UploadLogo handles POST /v1/workflows/:id/logo (multipart field logo).
func (h *WorkflowHandler) UploadLogo(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	fh, err := c.FormFile("logo")
	if err != nil {
		return writeError(c, rosterclient.ErrLogoEmpty)
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "could not read logo"})
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, rosterclient.MaxLogoBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "could not read logo"})
	}
	info, err := w.UploadLogo(c.Request().Context(), fh.Filename, data)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

// Logo handles GET /v1/workflows/:id/logo.
func (h *WorkflowHandler) Logo(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	doc, err := w.Logo(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.Blob(http.StatusOK, doc.ContentType, doc.Data)
}

// DeleteLogo handles DELETE /v1/workflows/:id/logo.
func (h *WorkflowHandler) DeleteLogo(c echo.Context) error {
	w, err := h.load(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := w.DeleteLogo(c.Request().Context()); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
