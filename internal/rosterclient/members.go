package rosterclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/iliyamo/mel-roster/internal/model"
)

// Ack is the acknowledgement returned by mutation endpoints.  Fields are
// optional; the service may send an empty body.
type Ack struct {
	Message  string `json:"message,omitempty"`
	MemberID string `json:"member_id,omitempty"`
	Success  *bool  `json:"success,omitempty"`
}

// AddMemberRequest is the body of an add-member call.
type AddMemberRequest struct {
	Category            model.Category   `json:"category"`
	Data                model.MemberData `json:"data"`
	Reason              string           `json:"reason"`
	RunEligibilityCheck bool             `json:"run_eligibility_check"`
}

// ReprocessRequest asks the service to re-run categorisation.
type ReprocessRequest struct {
	PreserveManualEdits bool             `json:"preserve_manual_edits"`
	Categories          []model.Category `json:"categories"`
}

// AddMember creates a member in a session roster.
func (c *Client) AddMember(ctx context.Context, sessionID string, in AddMemberRequest) (Ack, error) {
	if sessionID == "" {
		return Ack{}, ErrEmptySessionID
	}
	r, err := jsonRequest("add member", http.MethodPost, "/api/roster/member"+pathEscape(sessionID), in)
	if err != nil {
		return Ack{}, err
	}
	return c.ack(ctx, r)
}

// EditMember replaces the record of a member with data.  The full record
// is always sent.
func (c *Client) EditMember(ctx context.Context, sessionID, memberID string, data model.MemberData) (Ack, error) {
	if sessionID == "" {
		return Ack{}, ErrEmptySessionID
	}
	if memberID == "" {
		return Ack{}, ErrEmptyMemberID
	}
	r, err := jsonRequest("update member", http.MethodPut, "/api/roster/member"+pathEscape(sessionID, memberID), data)
	if err != nil {
		return Ack{}, err
	}
	return c.ack(ctx, r)
}

// DeleteMember removes a member.  hardDelete=false asks for a recoverable
// soft delete.
func (c *Client) DeleteMember(ctx context.Context, sessionID, memberID, reason string, hardDelete bool) (Ack, error) {
	if sessionID == "" {
		return Ack{}, ErrEmptySessionID
	}
	if memberID == "" {
		return Ack{}, ErrEmptyMemberID
	}
	r, err := jsonRequest("delete member", http.MethodDelete, "/api/roster/member"+pathEscape(sessionID, memberID),
		struct {
			Reason string `json:"reason"`
		}{Reason: reason})
	if err != nil {
		return Ack{}, err
	}
	r.query = url.Values{"hard_delete": {strconv.FormatBool(hardDelete)}}
	return c.ack(ctx, r)
}

// Reprocess triggers re-categorisation of a session roster.  An empty
// category list means every bucket.
func (c *Client) Reprocess(ctx context.Context, sessionID string, in ReprocessRequest) (Ack, error) {
	if sessionID == "" {
		return Ack{}, ErrEmptySessionID
	}
	if in.Categories == nil {
		in.Categories = []model.Category{}
	}
	r, err := jsonRequest("reprocess roster", http.MethodPost, "/api/roster/reprocess"+pathEscape(sessionID), in)
	if err != nil {
		return Ack{}, err
	}
	return c.ack(ctx, r)
}

func (c *Client) ack(ctx context.Context, r request) (Ack, error) {
	var ack Ack
	if err := c.doJSON(ctx, r, &ack); err != nil {
		return Ack{}, err
	}
	return ack, nil
}
