package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mel-roster/internal/workflow"
)

// Health is the liveness endpoint used by load balancers.  It also reports
// how many workflows the process holds.
func Health(reg *workflow.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "workflows": reg.Len()})
	}
}
