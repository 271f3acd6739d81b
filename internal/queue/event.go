// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// Mutation operations recorded in the audit trail.
const (
	OpAddMember    = "add"
	OpEditMember   = "edit"
	OpDeleteMember = "delete"
)

// MemberMutationEvent is published after the roster service accepted a
// member add, edit or delete.  It carries the audit reason so the journal
// can be reviewed without querying the roster service.
type MemberMutationEvent struct {
	ID                  string    `json:"id"`
	WorkflowID          string    `json:"workflow_id,omitempty"`
	SessionID           string    `json:"session_id"`
	Kind                string    `json:"kind"`
	Operation           string    `json:"operation"`
	MemberID            string    `json:"member_id,omitempty"`
	Category            string    `json:"category,omitempty"`
	Reason              string    `json:"reason,omitempty"`
	HardDelete          bool      `json:"hard_delete,omitempty"`
	RunEligibilityCheck bool      `json:"run_eligibility_check,omitempty"`
	OccurredAt          time.Time `json:"occurred_at"`
}
