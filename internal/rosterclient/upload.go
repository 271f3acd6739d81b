package rosterclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/iliyamo/mel-roster/internal/model"
)

// UploadRequest carries a roster file and the cycle it is evaluated for.
type UploadRequest struct {
	Filename string
	Content  []byte
	Cycle    model.Grade
	Year     int
}

// UploadResult is the upload response.  Besides the session summary the
// service may include the categorised dataframes, which lets a preview be
// derived without the preview endpoint.
type UploadResult struct {
	SessionID         string            `json:"session_id"`
	Pascodes          []string          `json:"pascodes"`
	PascodeUnitMap    map[string]string `json:"pascode_unit_map"`
	SeniorRaterNeeded bool              `json:"senior_rater_needed"`
	Errors            []string          `json:"errors"`
	ErrorLog          []string          `json:"error_log"`

	Dataframe     []json.RawMessage `json:"dataframe"`
	EligibleDF    []model.Member    `json:"eligible_df"`
	IneligibleDF  []model.Member    `json:"ineligible_df"`
	DiscrepancyDF []model.Member    `json:"discrepancy_df"`
	BTZDF         []model.Member    `json:"btz_df"`
	SmallUnitDF   []model.Member    `json:"small_unit_df"`
}

// Warnings returns the categorisation warnings under whichever key the
// service used.
func (u UploadResult) Warnings() []string {
	if len(u.Errors) > 0 {
		return u.Errors
	}
	return u.ErrorLog
}

// HasFrames reports whether the response carried roster rows.
func (u UploadResult) HasFrames() bool {
	return u.EligibleDF != nil || u.Dataframe != nil
}

// Frames returns copies of the categorised rows keyed by bucket.
func (u UploadResult) Frames() map[model.Category][]model.Member {
	cp := func(in []model.Member) []model.Member {
		out := make([]model.Member, len(in))
		copy(out, in)
		return out
	}
	return map[model.Category][]model.Member{
		model.CategoryEligible:    cp(u.EligibleDF),
		model.CategoryIneligible:  cp(u.IneligibleDF),
		model.CategoryDiscrepancy: cp(u.DiscrepancyDF),
		model.CategoryBTZ:         cp(u.BTZDF),
		model.CategorySmallUnit:   cp(u.SmallUnitDF),
	}
}

// Session converts the response into a session model.
func (u UploadResult) Session(cycle model.Grade, year int) model.Session {
	units := make(map[string]string, len(u.PascodeUnitMap))
	for k, v := range u.PascodeUnitMap {
		units[k] = v
	}
	return model.Session{
		ID:                u.SessionID,
		Cycle:             cycle,
		Year:              year,
		Pascodes:          model.UniquePascodes(u.Pascodes),
		PascodeUnitMap:    units,
		SeniorRaterNeeded: u.SeniorRaterNeeded,
		Errors:            append([]string(nil), u.Warnings()...),
	}
}

// Upload sends a roster file to the kind specific upload endpoint.
func (c *Client) Upload(ctx context.Context, kind model.Kind, in UploadRequest) (UploadResult, error) {
	const op = "upload roster"
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", in.Filename)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := fw.Write(in.Content); err != nil {
		return UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.WriteField("cycle", string(in.Cycle)); err != nil {
		return UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.WriteField("year", strconv.Itoa(in.Year)); err != nil {
		return UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}

	var out UploadResult
	err = c.doJSON(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        "/api/upload/" + string(kind) + "-mel",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &out)
	if err != nil {
		return UploadResult{}, err
	}
	if out.SessionID == "" {
		return UploadResult{}, &ServiceError{Op: op, Status: http.StatusOK, Detail: "upload response has no session_id"}
	}
	return out, nil
}
