package rosterclient

import (
	"context"
	"net/http"

	"github.com/iliyamo/mel-roster/internal/model"
)

// Generate submits senior-rater information for a session and returns the
// rendered MEL.  pascodeInfo is encoded as the "pascode_info" object.
func (c *Client) Generate(ctx context.Context, kind model.Kind, sessionID string, pascodeInfo any) (Document, error) {
	if sessionID == "" {
		return Document{}, ErrEmptySessionID
	}
	r, err := jsonRequest("generate "+string(kind)+" MEL", http.MethodPost, "/api/"+string(kind)+"-mel/submit/pascode-info",
		struct {
			SessionID   string `json:"session_id"`
			PascodeInfo any    `json:"pascode_info"`
		}{SessionID: sessionID, PascodeInfo: pascodeInfo})
	if err != nil {
		return Document{}, err
	}
	body, ct, err := c.do(ctx, r)
	if err != nil {
		return Document{}, err
	}
	if len(body) == 0 {
		return Document{}, &ServiceError{Op: r.op, Status: http.StatusOK, Detail: "generated document is empty"}
	}
	if ct == "" {
		ct = "application/pdf"
	}
	return Document{Data: body, ContentType: ct}, nil
}

// Download fetches a previously generated MEL again.
func (c *Client) Download(ctx context.Context, kind model.Kind, sessionID string) (Document, error) {
	if sessionID == "" {
		return Document{}, ErrEmptySessionID
	}
	body, ct, err := c.do(ctx, request{
		op:     "download " + string(kind) + " MEL",
		method: http.MethodGet,
		path:   "/api/download/" + string(kind) + "-mel" + pathEscape(sessionID),
	})
	if err != nil {
		return Document{}, err
	}
	if ct == "" {
		ct = "application/pdf"
	}
	return Document{Data: body, ContentType: ct}, nil
}
