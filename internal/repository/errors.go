// Package repository persists the member-mutation audit journal.  The
// sentinel values below let handlers tell storage states apart without
// inspecting driver errors.
package repository

import "errors"

// ErrUnavailable is returned when no database is configured.  Handlers
// translate it into an HTTP 503 response.
var ErrUnavailable = errors.New("audit journal unavailable")
