package model

import (
	"encoding/json"
	"fmt"
)

// Member is one roster row as shown in the review step.  Identity and
// eligibility fields live in the embedded MemberData; the wrapper carries
// the service-side id, the placement reason and the editable capability.
type Member struct {
	MemberID string
	// Reason explains a non-eligible placement.  Empty means "Eligible".
	Reason string
	// Editable marks rows sourced from the uploaded file.  It gates UI
	// affordances only.
	Editable bool
	MemberData
}

// SyntheticMemberID builds the bridging id used when the service has not
// assigned one yet.
func SyntheticMemberID(c Category, index int) string {
	return fmt.Sprintf("row_%s_%d", c, index)
}

// Status is the text shown in the status column.
func (m Member) Status() string {
	if m.Reason != "" {
		return m.Reason
	}
	return "Eligible"
}

// UnmarshalJSON reads member_id, editable and REASON alongside the record
// fields, which are resolved through the field table.
func (m *Member) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = Member{}
	if v, ok := raw["member_id"]; ok {
		s, err := decodeString(v)
		if err != nil {
			return fmt.Errorf("member_id: %w", err)
		}
		m.MemberID = s
	}
	for _, k := range []string{"REASON", "reason"} {
		if v, ok := raw[k]; ok && !isBlank(v) {
			s, err := decodeString(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			m.Reason = s
			break
		}
	}
	if v, ok := raw["editable"]; ok && !isBlank(v) {
		if err := json.Unmarshal(v, &m.Editable); err != nil {
			return fmt.Errorf("editable: %w", err)
		}
	}
	return m.MemberData.resolve(raw)
}

// MarshalJSON writes the record under canonical keys plus the wrapper
// fields.
func (m Member) MarshalJSON() ([]byte, error) {
	type record MemberData
	return json.Marshal(struct {
		MemberID string `json:"member_id"`
		Reason   string `json:"REASON,omitempty"`
		Editable bool   `json:"editable"`
		Status   string `json:"status"`
		record
	}{
		MemberID: m.MemberID,
		Reason:   m.Reason,
		Editable: m.Editable,
		Status:   m.Status(),
		record:   record(m.MemberData),
	})
}
