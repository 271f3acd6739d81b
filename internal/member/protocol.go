// Package member implements roster mutations: adding, editing and deleting
// members of a session.  Every mutation is one remote round trip with no
// retry.  Destructive and additive operations require an audit reason.
package member

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/mel-roster/internal/model"
	"github.com/iliyamo/mel-roster/internal/queue"
	"github.com/iliyamo/mel-roster/internal/rosterclient"
)

var (
	ErrAddReasonRequired    = errors.New("please provide a reason for adding this member")
	ErrDeleteReasonRequired = errors.New("please provide a reason for deleting this member")
	ErrMissingFields        = errors.New("please fill in all required fields")
	ErrCategoryNotAddable   = errors.New("members cannot be added to this category")
	ErrConfirmationRequired = errors.New("deletion must be confirmed")
	ErrMemberNotFound       = errors.New("member not found")
)

// RequiredAddFields must be non-empty for an add to be sent.
var RequiredAddFields = []string{
	model.KeyFullName,
	model.KeyDOR,
	model.KeyTAFMSD,
	model.KeyPAFSC,
	model.KeyAssignedPAS,
	model.KeyAssignedPASCleartext,
}

// Service is the part of the roster service that mutates members.
type Service interface {
	AddMember(ctx context.Context, sessionID string, in rosterclient.AddMemberRequest) (rosterclient.Ack, error)
	EditMember(ctx context.Context, sessionID, memberID string, data model.MemberData) (rosterclient.Ack, error)
	DeleteMember(ctx context.Context, sessionID, memberID, reason string, hardDelete bool) (rosterclient.Ack, error)
}

// Publisher receives an audit event for every accepted mutation.
type Publisher interface {
	PublishMemberMutated(ctx context.Context, ev queue.MemberMutationEvent) error
}

// Scope identifies where a mutation happens.
type Scope struct {
	WorkflowID string
	SessionID  string
	Kind       model.Kind
}

// AddRequest is a validated-on-send add.
type AddRequest struct {
	Category            model.Category
	Data                model.MemberData
	Reason              string
	RunEligibilityCheck bool
}

// DeleteRequest describes a delete.  HardDelete=false asks for a
// recoverable removal.  Confirmed must be set by the caller once the user
// acknowledged the deletion.
type DeleteRequest struct {
	Reason     string `json:"reason"`
	HardDelete bool   `json:"hard_delete"`
	Confirmed  bool   `json:"confirmed"`
}

// Protocol validates mutations, sends them, and records an audit event for
// each accepted one.
type Protocol struct {
	svc Service
	pub Publisher
	now func() time.Time
}

// NewProtocol builds a Protocol.  pub may be nil, in which case no audit
// events are emitted.
func NewProtocol(svc Service, pub Publisher) *Protocol {
	return &Protocol{svc: svc, pub: pub, now: time.Now}
}

// ValidateAdd checks an add without sending it.
func ValidateAdd(in AddRequest) error {
	if !in.Category.Addable() {
		return fmt.Errorf("%w: %q", ErrCategoryNotAddable, in.Category)
	}
	var missing []string
	for _, k := range RequiredAddFields {
		if v, _ := in.Data.Get(k); strings.TrimSpace(v) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	if strings.TrimSpace(in.Reason) == "" {
		return ErrAddReasonRequired
	}
	return nil
}

// Add sends a new member to the service.
func (p *Protocol) Add(ctx context.Context, sc Scope, in AddRequest) (rosterclient.Ack, error) {
	if err := ValidateAdd(in); err != nil {
		return rosterclient.Ack{}, err
	}
	ack, err := p.svc.AddMember(ctx, sc.SessionID, rosterclient.AddMemberRequest{
		Category:            in.Category,
		Data:                in.Data,
		Reason:              strings.TrimSpace(in.Reason),
		RunEligibilityCheck: in.RunEligibilityCheck,
	})
	if err != nil {
		return rosterclient.Ack{}, err
	}
	p.publish(ctx, sc, queue.MemberMutationEvent{
		Operation:           queue.OpAddMember,
		MemberID:            ack.MemberID,
		Category:            string(in.Category),
		Reason:              strings.TrimSpace(in.Reason),
		RunEligibilityCheck: in.RunEligibilityCheck,
	})
	return ack, nil
}

// Edit merges patch into the current record of a member and sends the
// complete result.  No reason is needed.
func (p *Protocol) Edit(ctx context.Context, sc Scope, current model.Member, patch map[string]json.RawMessage) (rosterclient.Ack, error) {
	data := current.MemberData
	if err := data.ApplyPatch(patch); err != nil {
		return rosterclient.Ack{}, err
	}
	ack, err := p.svc.EditMember(ctx, sc.SessionID, current.MemberID, data)
	if err != nil {
		return rosterclient.Ack{}, err
	}
	p.publish(ctx, sc, queue.MemberMutationEvent{
		Operation: queue.OpEditMember,
		MemberID:  current.MemberID,
	})
	return ack, nil
}

// ValidateDelete checks a delete without sending it.
func ValidateDelete(in DeleteRequest) error {
	if strings.TrimSpace(in.Reason) == "" {
		return ErrDeleteReasonRequired
	}
	if !in.Confirmed {
		return ErrConfirmationRequired
	}
	return nil
}

// Delete removes a member.
func (p *Protocol) Delete(ctx context.Context, sc Scope, memberID string, in DeleteRequest) (rosterclient.Ack, error) {
	if err := ValidateDelete(in); err != nil {
		return rosterclient.Ack{}, err
	}
	reason := strings.TrimSpace(in.Reason)
	ack, err := p.svc.DeleteMember(ctx, sc.SessionID, memberID, reason, in.HardDelete)
	if err != nil {
		return rosterclient.Ack{}, err
	}
	p.publish(ctx, sc, queue.MemberMutationEvent{
		Operation:  queue.OpDeleteMember,
		MemberID:   memberID,
		Reason:     reason,
		HardDelete: in.HardDelete,
	})
	return ack, nil
}

// publish fills the common event fields and hands the event over.  A
// failure is logged and never reaches the caller: the mutation already
// happened.
func (p *Protocol) publish(ctx context.Context, sc Scope, ev queue.MemberMutationEvent) {
	if p.pub == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.WorkflowID = sc.WorkflowID
	ev.SessionID = sc.SessionID
	ev.Kind = string(sc.Kind)
	ev.OccurredAt = p.now().UTC()
	if err := p.pub.PublishMemberMutated(ctx, ev); err != nil {
		log.Printf("member: audit event for %s %s not published: %v", ev.Operation, ev.MemberID, err)
	}
}
