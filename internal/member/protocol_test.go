package member

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/iliyamo/mel-roster/internal/model"
	"github.com/iliyamo/mel-roster/internal/queue"
	"github.com/iliyamo/mel-roster/internal/rosterclient"
)

type fakeService struct {
	err     error
	adds    []rosterclient.AddMemberRequest
	edits   []model.MemberData
	deletes []DeleteRequest
}

func (f *fakeService) AddMember(_ context.Context, _ string, in rosterclient.AddMemberRequest) (rosterclient.Ack, error) {
	if f.err != nil {
		return rosterclient.Ack{}, f.err
	}
	f.adds = append(f.adds, in)
	return rosterclient.Ack{MemberID: "new-1"}, nil
}

func (f *fakeService) EditMember(_ context.Context, _, _ string, data model.MemberData) (rosterclient.Ack, error) {
	if f.err != nil {
		return rosterclient.Ack{}, f.err
	}
	f.edits = append(f.edits, data)
	return rosterclient.Ack{}, nil
}

func (f *fakeService) DeleteMember(_ context.Context, _, _, reason string, hard bool) (rosterclient.Ack, error) {
	if f.err != nil {
		return rosterclient.Ack{}, f.err
	}
	f.deletes = append(f.deletes, DeleteRequest{Reason: reason, HardDelete: hard})
	return rosterclient.Ack{}, nil
}

type fakePublisher struct {
	events []queue.MemberMutationEvent
	err    error
}

func (f *fakePublisher) PublishMemberMutated(_ context.Context, ev queue.MemberMutationEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

var scope = Scope{WorkflowID: "wf", SessionID: "s1", Kind: model.KindInitial}

func completeAdd() AddRequest {
	d := NewDraft(model.GradeSSG)
	d.Data.FullName = "DOE, JOHN"
	d.Data.DOR = "2020-01-01"
	d.Data.TAFMSD = "2015-06-01"
	d.Data.PAFSC = "3D0X2"
	d.Data.AssignedPAS = "ABC123"
	d.Data.AssignedPASCleartext = "1st Wing"
	d.Reason = "missed in source file"
	return d.Request()
}

func TestAddValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AddRequest)
		want   error
	}{
		{"complete", func(*AddRequest) {}, nil},
		{"empty reason", func(r *AddRequest) { r.Reason = "  " }, ErrAddReasonRequired},
		{"missing name", func(r *AddRequest) { r.Data.FullName = "" }, ErrMissingFields},
		{"missing unit name", func(r *AddRequest) { r.Data.AssignedPASCleartext = "" }, ErrMissingFields},
		{"small unit bucket", func(r *AddRequest) { r.Category = model.CategorySmallUnit }, ErrCategoryNotAddable},
		{"eligibility flag does not change validation", func(r *AddRequest) { r.RunEligibilityCheck = true }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			pub := &fakePublisher{}
			in := completeAdd()
			tt.mutate(&in)
			_, err := NewProtocol(svc, pub).Add(context.Background(), scope, in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			wantCalls := 0
			if tt.want == nil {
				wantCalls = 1
			}
			if len(svc.adds) != wantCalls || len(pub.events) != wantCalls {
				t.Errorf("calls = %d, events = %d, want %d", len(svc.adds), len(pub.events), wantCalls)
			}
		})
	}
}

func TestAddForwardsRequestAndAudits(t *testing.T) {
	svc := &fakeService{}
	pub := &fakePublisher{}
	in := completeAdd()
	in.Category = model.CategoryBTZ
	in.RunEligibilityCheck = true
	if _, err := NewProtocol(svc, pub).Add(context.Background(), scope, in); err != nil {
		t.Fatal(err)
	}
	got := svc.adds[0]
	if got.Category != model.CategoryBTZ || !got.RunEligibilityCheck || got.Data.Grade != "SSG" || got.Data.ReenlEligStatus != "1A" {
		t.Errorf("request = %+v", got)
	}
	ev := pub.events[0]
	if ev.Operation != queue.OpAddMember || ev.MemberID != "new-1" || ev.SessionID != "s1" || ev.WorkflowID != "wf" || ev.ID == "" {
		t.Errorf("event = %+v", ev)
	}
}

func TestServiceFailureIsNotAudited(t *testing.T) {
	svc := &fakeService{err: &rosterclient.ServiceError{Op: "add member", Status: 400, Detail: "Duplicate SSAN"}}
	pub := &fakePublisher{}
	_, err := NewProtocol(svc, pub).Add(context.Background(), scope, completeAdd())
	if rosterclient.MessageOf(err, "") != "Duplicate SSAN" {
		t.Fatalf("err = %v", err)
	}
	if len(pub.events) != 0 {
		t.Error("failed mutation must not be audited")
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	if _, err := NewProtocol(&fakeService{}, pub).Add(context.Background(), scope, completeAdd()); err != nil {
		t.Fatalf("err = %v", err)
	}
}

func TestEditSendsFullRecordCanonicalWins(t *testing.T) {
	svc := &fakeService{}
	current := model.Member{MemberID: "m1", MemberData: model.MemberData{
		FullName: "DOE", SSAN: "1234", PAFSC: "3D0X2", ReenlEligStatus: "1A", UIFCode: 2,
	}}
	patch := map[string]json.RawMessage{
		"REENLISTMENT_ELIGIBILITY_STATUS": json.RawMessage(`"2X"`),
		"REENL_ELIG_STATUS":               json.RawMessage(`"3B"`),
		"GRADE_PERMANENT_PROJECTED":       json.RawMessage(`"TSG"`),
		"UIF_CODE":                        json.RawMessage(`"0"`),
	}
	if _, err := NewProtocol(svc, nil).Edit(context.Background(), scope, current, patch); err != nil {
		t.Fatal(err)
	}
	sent := svc.edits[0]
	if sent.ReenlEligStatus != "3B" {
		t.Errorf("canonical key must win, got %q", sent.ReenlEligStatus)
	}
	if sent.GradePermProj != "TSG" || sent.UIFCode != 0 {
		t.Errorf("alias write = %+v", sent)
	}
	if sent.FullName != "DOE" || sent.SSAN != "1234" || sent.PAFSC != "3D0X2" {
		t.Errorf("untouched fields must be resent: %+v", sent)
	}
}

func TestEditRejectsUnknownField(t *testing.T) {
	svc := &fakeService{}
	_, err := NewProtocol(svc, nil).Edit(context.Background(), scope, model.Member{MemberID: "m1"},
		map[string]json.RawMessage{"SHOE_SIZE": json.RawMessage(`"9"`)})
	if !errors.Is(err, model.ErrUnknownField) {
		t.Fatalf("err = %v", err)
	}
	if len(svc.edits) != 0 {
		t.Error("rejected edit reached the service")
	}
}

func TestDeleteValidation(t *testing.T) {
	tests := []struct {
		name string
		in   DeleteRequest
		want error
	}{
		{"soft", DeleteRequest{Reason: "separated", Confirmed: true}, nil},
		{"hard", DeleteRequest{Reason: "duplicate", HardDelete: true, Confirmed: true}, nil},
		{"no reason", DeleteRequest{Confirmed: true}, ErrDeleteReasonRequired},
		{"not confirmed", DeleteRequest{Reason: "separated"}, ErrConfirmationRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			pub := &fakePublisher{}
			_, err := NewProtocol(svc, pub).Delete(context.Background(), scope, "m1", tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if tt.want != nil {
				if len(svc.deletes) != 0 {
					t.Error("invalid delete reached the service")
				}
				return
			}
			if svc.deletes[0].HardDelete != tt.in.HardDelete {
				t.Errorf("hard delete = %v", svc.deletes[0].HardDelete)
			}
			if ev := pub.events[0]; ev.Operation != queue.OpDeleteMember || ev.HardDelete != tt.in.HardDelete || ev.Reason != tt.in.Reason {
				t.Errorf("event = %+v", ev)
			}
		})
	}
}

func TestDraftLifecycle(t *testing.T) {
	d := NewDraft(model.GradeMSG)
	if d.Data.Grade != "MSG" || d.Category != model.CategoryEligible || d.Data.ReenlEligStatus != "1A" {
		t.Fatalf("defaults = %+v", d)
	}
	reason := "late arrival"
	cat := model.CategoryDiscrepancy
	err := d.Update(DraftInput{
		Category: &cat,
		Fields:   map[string]json.RawMessage{"FULL_NAME": json.RawMessage(`"ROE"`)},
		Reason:   &reason,
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Category != cat || d.Data.FullName != "ROE" || d.Reason != reason || d.Data.Grade != "MSG" {
		t.Errorf("after update = %+v", d)
	}

	bad := model.Category("archived")
	if err := d.Update(DraftInput{Category: &bad, Reason: new(string)}); !errors.Is(err, model.ErrUnknownCategory) {
		t.Errorf("bad category: %v", err)
	}
	if d.Reason != reason {
		t.Error("rejected update must leave the draft unchanged")
	}

	d.Reset()
	if d.Data.FullName != "" || d.Reason != "" || d.Category != model.CategoryEligible || d.Data.Grade != "MSG" {
		t.Errorf("after reset = %+v", d)
	}
}
