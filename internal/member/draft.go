package member

import (
	"encoding/json"
	"fmt"

	"github.com/iliyamo/mel-roster/internal/model"
)

// Draft is the pending add-member form of a session.  Entered data stays
// in the draft across failed submissions and is cleared after a successful
// add.
type Draft struct {
	Category            model.Category   `json:"category"`
	Data                model.MemberData `json:"data"`
	Reason              string           `json:"reason"`
	RunEligibilityCheck bool             `json:"run_eligibility_check"`

	cycle model.Grade
}

// NewDraft returns a draft with the defaults for a roster evaluated for
// cycle.
func NewDraft(cycle model.Grade) *Draft {
	d := &Draft{cycle: cycle}
	d.Reset()
	return d
}

// Reset restores the defaults: grade of the cycle, reenlistment status 1A,
// no UIF and the eligible bucket.
func (d *Draft) Reset() {
	grade := d.cycle
	if grade == "" {
		grade = model.GradeSSG
	}
	d.Category = model.CategoryEligible
	d.Data = model.MemberData{
		Grade:           string(grade),
		ReenlEligStatus: "1A",
		UIFCode:         0,
	}
	d.Reason = ""
	d.RunEligibilityCheck = false
}

// DraftInput carries the parts of the form a client changed.  Nil pointers
// and a nil Fields map leave the draft as is.
type DraftInput struct {
	Category            *model.Category            `json:"category"`
	Fields              map[string]json.RawMessage `json:"data"`
	Reason              *string                    `json:"reason"`
	RunEligibilityCheck *bool                      `json:"run_eligibility_check"`
}

// Update merges in into the draft.  Field keys may be canonical or
// aliases.  The draft is unchanged when in is rejected.
func (d *Draft) Update(in DraftInput) error {
	next := *d
	if in.Category != nil {
		c, err := model.ParseCategory(string(*in.Category))
		if err != nil {
			return fmt.Errorf("%w: %q", err, *in.Category)
		}
		next.Category = c
	}
	if in.Fields != nil {
		if err := next.Data.ApplyPatch(in.Fields); err != nil {
			return err
		}
	}
	if in.Reason != nil {
		next.Reason = *in.Reason
	}
	if in.RunEligibilityCheck != nil {
		next.RunEligibilityCheck = *in.RunEligibilityCheck
	}
	*d = next
	return nil
}

// Request converts the draft into an add request.
func (d *Draft) Request() AddRequest {
	return AddRequest{
		Category:            d.Category,
		Data:                d.Data,
		Reason:              d.Reason,
		RunEligibilityCheck: d.RunEligibilityCheck,
	}
}
