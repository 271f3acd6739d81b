package rosterclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/iliyamo/mel-roster/internal/model"
)

// PreviewQuery selects what the preview endpoint returns.  An empty
// Category means every bucket.
type PreviewQuery struct {
	Category string
	Page     int // 1-based
	PageSize int
}

type previewResponse struct {
	SessionID      string            `json:"session_id"`
	Cycle          string            `json:"cycle"`
	Year           int               `json:"year"`
	Edited         bool              `json:"edited"`
	Statistics     model.Statistics  `json:"statistics"`
	Categories     previewCategories `json:"categories"`
	Errors         []string          `json:"errors"`
	Pascodes       []string          `json:"pascodes"`
	PascodeUnitMap map[string]string `json:"pascode_unit_map"`
	CustomLogo     model.LogoInfo    `json:"custom_logo"`
}

type previewCategories struct {
	Eligible    []model.Member `json:"eligible"`
	Ineligible  []model.Member `json:"ineligible"`
	Discrepancy []model.Member `json:"discrepancy"`
	BTZ         []model.Member `json:"btz"`
	SmallUnit   []model.Member `json:"small_unit"`
}

// Preview fetches the categorised roster of a session and returns it as a
// Full preview.
func (c *Client) Preview(ctx context.Context, sessionID string, q PreviewQuery) (model.Preview, error) {
	if sessionID == "" {
		return model.Preview{}, ErrEmptySessionID
	}
	category := q.Category
	if category == "" {
		category = "all"
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	query := url.Values{}
	query.Set("category", category)
	query.Set("page", strconv.Itoa(page))
	if q.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(q.PageSize))
	}

	var out previewResponse
	err := c.doJSON(ctx, request{
		op:     "load roster preview",
		method: http.MethodGet,
		path:   "/api/roster/preview" + pathEscape(sessionID),
		query:  query,
	}, &out)
	if err != nil {
		return model.Preview{}, err
	}
	return out.toModel(sessionID), nil
}

func (r previewResponse) toModel(sessionID string) model.Preview {
	buckets := map[model.Category][]model.Member{
		model.CategoryEligible:    r.Categories.Eligible,
		model.CategoryIneligible:  r.Categories.Ineligible,
		model.CategoryDiscrepancy: r.Categories.Discrepancy,
		model.CategoryBTZ:         r.Categories.BTZ,
		model.CategorySmallUnit:   r.Categories.SmallUnit,
	}
	model.EnsureMemberIDs(buckets)

	stats := r.Statistics
	if stats.SmallUnit == 0 {
		stats.SmallUnit = len(r.Categories.SmallUnit)
	}
	if stats.Errors == 0 {
		stats.Errors = len(r.Errors)
	}
	sid := r.SessionID
	if sid == "" {
		sid = sessionID
	}
	return model.Preview{
		Variant:        model.PreviewFull,
		SessionID:      sid,
		Cycle:          model.Grade(r.Cycle),
		Year:           r.Year,
		Edited:         r.Edited,
		Statistics:     stats.Normalize(),
		Categories:     buckets,
		Errors:         r.Errors,
		Pascodes:       model.UniquePascodes(r.Pascodes),
		PascodeUnitMap: r.PascodeUnitMap,
		CustomLogo:     r.CustomLogo,
	}
}
