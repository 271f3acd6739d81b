package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mel-roster/internal/handler"
	"github.com/iliyamo/mel-roster/internal/workflow"
)

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo, reg *workflow.Registry) {
	e.GET("/healthz", handler.Health(reg))
}

// RegisterWorkflows registers the workflow API under /v1/workflows.  limit
// guards the routes that call the roster service on behalf of the user.
func RegisterWorkflows(e *echo.Echo, h *handler.WorkflowHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/workflows")
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
	g.PUT("/:id/kind", h.SwitchKind)
	g.POST("/:id/reset", h.Reset)
	g.POST("/:id/upload", h.Upload, limit)

	// Review
	g.GET("/:id/roster", h.View)
	g.POST("/:id/roster/reload", h.Reload, limit)
	g.POST("/:id/roster/reprocess", h.Reprocess, limit)
	g.POST("/:id/members", h.AddMember, limit)
	g.PATCH("/:id/members/draft", h.UpdateDraft)
	g.PUT("/:id/members/:mid", h.EditMember, limit)
	g.DELETE("/:id/members/:mid", h.DeleteMember, limit)
	g.POST("/:id/logo", h.UploadLogo, limit)
	g.GET("/:id/logo", h.Logo)
	g.DELETE("/:id/logo", h.DeleteLogo, limit)
	g.POST("/:id/advance", h.Advance)

	// Senior rater information and generation
	g.GET("/:id/senior-raters", h.SeniorRaters)
	g.PUT("/:id/senior-raters/small-unit", h.SetSmallUnitSeniorRater)
	g.PUT("/:id/senior-raters/:pascode", h.SetSeniorRater)
	g.POST("/:id/generate", h.Generate, limit)
	g.GET("/:id/document", h.Document)
	g.POST("/:id/document/refresh", h.RefreshDocument, limit)
}

// RegisterDocuments registers the token download route.  It needs no
// workflow id; the signed token is the credential.
func RegisterDocuments(e *echo.Echo, h *handler.DocumentHandler) {
	e.GET("/v1/documents/:token", h.Download)
}

// RegisterAudit registers the member mutation journal.
func RegisterAudit(e *echo.Echo, h *handler.AuditHandler) {
	e.GET("/v1/workflows/:id/audit", h.List)
}
