package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mel-roster/internal/queue"
	"github.com/iliyamo/mel-roster/internal/repository"
	"github.com/iliyamo/mel-roster/internal/workflow"
)

// AuditLister reads the member mutation journal.
type AuditLister interface {
	ListBySession(ctx context.Context, sessionID string, limit int) ([]queue.MemberMutationEvent, error)
}

// AuditHandler exposes the journal of a workflow's current session.
// Journal is nil when no database is configured.
type AuditHandler struct {
	Workflows *workflow.Registry
	Journal   AuditLister
}

// List handles GET /v1/workflows/:id/audit?limit=.
func (h *AuditHandler) List(c echo.Context) error {
	w, err := h.Workflows.Get(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	if h.Journal == nil {
		return writeError(c, repository.ErrUnavailable)
	}
	st := w.State()
	if st.Session == nil {
		return writeError(c, workflow.ErrSessionMissing)
	}
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be a positive number"})
		}
		limit = n
	}
	events, err := h.Journal.ListBySession(c.Request().Context(), st.Session.ID, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"session_id": st.Session.ID, "events": events})
}
