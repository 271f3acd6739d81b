package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/mel-roster/internal/document"
	"github.com/iliyamo/mel-roster/internal/member"
	"github.com/iliyamo/mel-roster/internal/model"
	"github.com/iliyamo/mel-roster/internal/queue"
	"github.com/iliyamo/mel-roster/internal/rosterclient"
	"github.com/iliyamo/mel-roster/internal/seniorrater"
)

// fakeService is an in-memory Remote Roster Service.  uploadGate, when
// set, blocks Upload until it is closed.
type fakeService struct {
	mu sync.Mutex

	upload      rosterclient.UploadResult
	uploadErr   error
	uploadGate  chan struct{}
	uploadCalls int

	preview    model.Preview
	previewErr error
	previews   int

	generateErr   error
	generateCalls int
	lastPayload   any

	deleted []string
	edited  []model.MemberData
}

func (f *fakeService) Upload(ctx context.Context, kind model.Kind, in rosterclient.UploadRequest) (rosterclient.UploadResult, error) {
	f.mu.Lock()
	f.uploadCalls++
	gate := f.uploadGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.upload, f.uploadErr
}

func (f *fakeService) Preview(ctx context.Context, sid string, q rosterclient.PreviewQuery) (model.Preview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previews++
	p := f.preview
	p.Categories = make(map[model.Category][]model.Member, len(f.preview.Categories))
	for c, ms := range f.preview.Categories {
		p.Categories[c] = append([]model.Member(nil), ms...)
	}
	return p, f.previewErr
}

func (f *fakeService) AddMember(ctx context.Context, sid string, in rosterclient.AddMemberRequest) (rosterclient.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := model.Member{MemberID: "added", MemberData: in.Data}
	f.preview.Categories[in.Category] = append(f.preview.Categories[in.Category], m)
	return rosterclient.Ack{MemberID: "added"}, nil
}

func (f *fakeService) EditMember(ctx context.Context, sid, mid string, data model.MemberData) (rosterclient.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, data)
	return rosterclient.Ack{}, nil
}

func (f *fakeService) DeleteMember(ctx context.Context, sid, mid, reason string, hard bool) (rosterclient.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, mid)
	for c, ms := range f.preview.Categories {
		kept := ms[:0:0]
		for _, m := range ms {
			if m.MemberID != mid {
				kept = append(kept, m)
			}
		}
		f.preview.Categories[c] = kept
	}
	return rosterclient.Ack{}, nil
}

func (f *fakeService) UploadLogo(ctx context.Context, sid, filename string, data []byte) (model.LogoInfo, error) {
	return model.LogoInfo{Uploaded: true, Filename: filename}, nil
}

func (f *fakeService) GetLogo(ctx context.Context, sid string) (rosterclient.Document, error) {
	return rosterclient.Document{Data: []byte("png"), ContentType: "image/png"}, nil
}

func (f *fakeService) DeleteLogo(ctx context.Context, sid string) error { return nil }

func (f *fakeService) Reprocess(ctx context.Context, sid string, in rosterclient.ReprocessRequest) (rosterclient.Ack, error) {
	return rosterclient.Ack{}, nil
}

func (f *fakeService) Generate(ctx context.Context, kind model.Kind, sid string, info any) (rosterclient.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	f.lastPayload = info
	if f.generateErr != nil {
		return rosterclient.Document{}, f.generateErr
	}
	return rosterclient.Document{Data: []byte("%PDF-1.7"), ContentType: "application/pdf"}, nil
}

func (f *fakeService) Download(ctx context.Context, kind model.Kind, sid string) (rosterclient.Document, error) {
	return rosterclient.Document{Data: []byte("%PDF-1.7 again"), ContentType: "application/pdf"}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.MemberMutationEvent
}

func (p *recordingPublisher) PublishMemberMutated(_ context.Context, ev queue.MemberMutationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func roster() model.Preview {
	return model.Preview{
		Variant:   model.PreviewFull,
		SessionID: "S-1",
		Categories: map[model.Category][]model.Member{
			model.CategoryEligible: {
				{MemberID: "m1", MemberData: model.MemberData{FullName: "DOE, JOHN", SSAN: "1234", ReenlEligStatus: "1A"}},
				{MemberID: "m2", MemberData: model.MemberData{FullName: "ROE, JANE", SSAN: "5678"}},
			},
			model.CategoryIneligible:  {},
			model.CategoryDiscrepancy: {},
			model.CategoryBTZ:         {},
			model.CategorySmallUnit:   {},
		},
		Statistics: model.Statistics{TotalUploaded: 2, Eligible: 2},
	}
}

func newFixture(t *testing.T, needed bool) (*Workflow, *fakeService, *document.Vault, *recordingPublisher) {
	t.Helper()
	svc := &fakeService{
		upload: rosterclient.UploadResult{
			SessionID:         "S-1",
			Pascodes:          []string{"ABC123"},
			PascodeUnitMap:    map[string]string{"ABC123": "1st Wing"},
			SeniorRaterNeeded: needed,
		},
		preview: roster(),
	}
	vault := document.NewVault(document.NewMemoryStore(), document.NewSigner("test"), time.Minute)
	pub := &recordingPublisher{}
	w := New("wf-1", model.KindInitial, Deps{Service: svc, Documents: vault, Publisher: pub, PageSize: 25})
	return w, svc, vault, pub
}

var validUpload = UploadInput{Filename: "roster.csv", Content: []byte("csv"), Cycle: "SSG", Year: 2025}

var rater = seniorrater.Record{SRID: "1", Rank: "Col", Name: "SMITH", Title: "CC"}

func TestHappyPathInitialMEL(t *testing.T) {
	w, svc, vault, _ := newFixture(t, false)
	ctx := context.Background()

	if err := w.Upload(ctx, validUpload); err != nil {
		t.Fatal(err)
	}
	if st := w.State(); st.Step != StepReview || st.Session.ID != "S-1" || st.Statistics == nil {
		t.Fatalf("after upload = %+v", st)
	}
	if err := w.ContinueToSeniorRater(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.SetSeniorRater("ABC123", rater); err != nil {
		t.Fatal(err)
	}
	h, err := w.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if h.Filename != "initial_mel_S-1.pdf" {
		t.Errorf("filename = %q", h.Filename)
	}
	if w.State().Step != StepComplete {
		t.Fatalf("step = %s", w.State().Step)
	}
	payload, _ := json.Marshal(svc.lastPayload)
	var got map[string]seniorrater.Record
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatal(err)
	}
	if _, ok := got[seniorrater.SmallUnitKey]; ok || got["ABC123"] != rater {
		t.Errorf("payload = %s", payload)
	}
	doc, err := vault.Open(ctx, h.Token)
	if err != nil || string(doc.Data) != "%PDF-1.7" {
		t.Errorf("stored doc = %q, %v", doc.Data, err)
	}
}

func TestFinalKindUsesFinalFilename(t *testing.T) {
	w, _, _, _ := newFixture(t, false)
	if err := w.SwitchKind(model.KindFinal); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := w.Upload(ctx, validUpload); err != nil {
		t.Fatal(err)
	}
	_ = w.ContinueToSeniorRater()
	_, _ = w.SetSeniorRater("ABC123", rater)
	h, err := w.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if h.Filename != "final_mel_S-1.pdf" {
		t.Errorf("filename = %q", h.Filename)
	}
}

func TestUploadValidationPrecedesRemoteCall(t *testing.T) {
	tests := []struct {
		name string
		in   UploadInput
		want error
	}{
		{"empty file", UploadInput{Cycle: "SSG", Year: 2025}, ErrEmptyFile},
		{"no cycle", UploadInput{Content: []byte("x"), Year: 2025}, ErrCycleRequired},
		{"unknown cycle", UploadInput{Content: []byte("x"), Cycle: "AMN", Year: 2025}, model.ErrUnknownCycle},
		{"year too early", UploadInput{Content: []byte("x"), Cycle: "SSG", Year: 1999}, model.ErrYearOutOfRange},
		{"year too late", UploadInput{Content: []byte("x"), Cycle: "SSG", Year: 2101}, model.ErrYearOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, svc, _, _ := newFixture(t, false)
			if err := w.Upload(context.Background(), tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if svc.uploadCalls != 0 {
				t.Error("validation failure reached the service")
			}
			if w.State().Step != StepUpload {
				t.Error("step changed")
			}
		})
	}
}

func TestUploadFailureStaysOnUpload(t *testing.T) {
	w, svc, _, _ := newFixture(t, false)
	svc.uploadErr = &rosterclient.ServiceError{Op: "upload roster", Status: 400, Detail: "Missing column SSAN"}
	err := w.Upload(context.Background(), validUpload)
	if rosterclient.MessageOf(err, "") != "Missing column SSAN" {
		t.Fatalf("err = %v", err)
	}
	if st := w.State(); st.Step != StepUpload || st.Session != nil {
		t.Errorf("state = %+v", st)
	}
}

func TestSmallUnitGateBlocksGeneration(t *testing.T) {
	w, svc, _, _ := newFixture(t, true)
	ctx := context.Background()
	if err := w.Upload(ctx, validUpload); err != nil {
		t.Fatal(err)
	}
	_ = w.ContinueToSeniorRater()
	_, _ = w.SetSeniorRater("ABC123", rater)

	if _, err := w.Generate(ctx); !errors.Is(err, seniorrater.ErrIncomplete) {
		t.Fatalf("err = %v", err)
	}
	if svc.generateCalls != 0 {
		t.Error("closed gate must not call the service")
	}
	if st := w.State(); st.Step != StepSeniorRaterInfo || st.Gate.Valid {
		t.Fatalf("state = %+v", st)
	}

	if _, err := w.SetSmallUnitSeniorRater(rater); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Generate(ctx); err != nil {
		t.Fatal(err)
	}
	b, _ := json.Marshal(svc.lastPayload)
	var got map[string]seniorrater.Record
	_ = json.Unmarshal(b, &got)
	if got[seniorrater.SmallUnitKey] != rater {
		t.Errorf("payload = %s", b)
	}
}

func TestGenerateFailureKeepsEnteredData(t *testing.T) {
	w, svc, _, _ := newFixture(t, false)
	ctx := context.Background()
	_ = w.Upload(ctx, validUpload)
	_ = w.ContinueToSeniorRater()
	_, _ = w.SetSeniorRater("ABC123", rater)
	svc.generateErr = &rosterclient.ServiceError{Op: "generate initial MEL", Status: 500}

	if _, err := w.Generate(ctx); err == nil {
		t.Fatal("want error")
	}
	st := w.State()
	if st.Step != StepSeniorRaterInfo || !st.Gate.Valid {
		t.Fatalf("state = %+v", st)
	}
	fs, _ := w.SeniorRaters()
	if fs.Entries[0].Record != rater {
		t.Error("entered record was lost")
	}
}

func TestSoftDeleteReloads(t *testing.T) {
	w, svc, _, pub := newFixture(t, false)
	ctx := context.Background()
	_ = w.Upload(ctx, validUpload)
	before := svc.previews

	err := w.DeleteMember(ctx, "m2", member.DeleteRequest{Reason: "separated", Confirmed: true})
	if err != nil {
		t.Fatal(err)
	}
	if svc.previews != before+1 {
		t.Errorf("previews = %d, want reload", svc.previews)
	}
	v, err := w.View(ViewQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if v.Total != 1 || v.Members[0].MemberID != "m1" {
		t.Errorf("view = %+v", v)
	}
	if len(pub.events) != 1 || pub.events[0].Operation != queue.OpDeleteMember || pub.events[0].HardDelete {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestDeleteWithoutReasonIsRejected(t *testing.T) {
	w, svc, _, pub := newFixture(t, false)
	ctx := context.Background()
	_ = w.Upload(ctx, validUpload)
	err := w.DeleteMember(ctx, "m1", member.DeleteRequest{Confirmed: true})
	if !errors.Is(err, member.ErrDeleteReasonRequired) {
		t.Fatalf("err = %v", err)
	}
	if len(svc.deleted) != 0 || len(pub.events) != 0 {
		t.Error("rejected delete had side effects")
	}
	if err := w.DeleteMember(ctx, "nobody", member.DeleteRequest{Reason: "x", Confirmed: true}); !errors.Is(err, member.ErrMemberNotFound) {
		t.Errorf("unknown member: %v", err)
	}
}

func TestAddMemberClearsDraftOnlyOnSuccess(t *testing.T) {
	w, _, _, _ := newFixture(t, false)
	ctx := context.Background()
	_ = w.Upload(ctx, validUpload)

	name := map[string]json.RawMessage{"FULL_NAME": json.RawMessage(`"NEW, PERSON"`)}
	err := w.AddMember(ctx, member.DraftInput{Fields: name})
	if !errors.Is(err, member.ErrMissingFields) {
		t.Fatalf("err = %v", err)
	}
	if d := w.State().Draft; d == nil || d.Data.FullName != "NEW, PERSON" {
		t.Fatalf("draft lost entered data: %+v", d)
	}

	reason := "arrived after cutoff"
	err = w.AddMember(ctx, member.DraftInput{
		Fields: map[string]json.RawMessage{
			"DOR":                    json.RawMessage(`"2021-01-01"`),
			"TAFMSD":                 json.RawMessage(`"2016-01-01"`),
			"PAFSC":                  json.RawMessage(`"1N0X1"`),
			"ASSIGNED_PAS":           json.RawMessage(`"ABC123"`),
			"ASSIGNED_PAS_CLEARTEXT": json.RawMessage(`"1st Wing"`),
		},
		Reason: &reason,
	})
	if err != nil {
		t.Fatal(err)
	}
	d := w.State().Draft
	if d.Data.FullName != "" || d.Reason != "" || d.Data.Grade != "SSG" {
		t.Errorf("draft not reset: %+v", d)
	}
	v, _ := w.View(ViewQuery{})
	if v.Total != 3 {
		t.Errorf("added member not visible after reload: total = %d", v.Total)
	}
}

func TestEditSendsMergedRecord(t *testing.T) {
	w, svc, _, _ := newFixture(t, false)
	ctx := context.Background()
	_ = w.Upload(ctx, validUpload)
	err := w.EditMember(ctx, "m1", map[string]json.RawMessage{
		"REENLISTMENT_ELIGIBILITY_STATUS": json.RawMessage(`"2X"`),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := svc.edited[0]
	if got.FullName != "DOE, JOHN" || got.ReenlEligStatus != "2X" {
		t.Errorf("sent = %+v", got)
	}
}

func TestResetClearsState(t *testing.T) {
	w, _, vault, _ := newFixture(t, false)
	ctx := context.Background()
	_ = w.Upload(ctx, validUpload)
	_ = w.ContinueToSeniorRater()
	_, _ = w.SetSeniorRater("ABC123", rater)
	h, err := w.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}

	w.Reset()
	st := w.State()
	if st.Step != StepUpload || st.Session != nil || st.Document != nil || st.Gate != nil {
		t.Fatalf("state = %+v", st)
	}
	if _, err := vault.Open(ctx, h.Token); !errors.Is(err, document.ErrNotFound) {
		t.Errorf("document survived reset: %v", err)
	}
	if _, err := w.SeniorRaters(); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("senior raters after reset: %v", err)
	}
}

func TestSwitchKindResets(t *testing.T) {
	w, _, _, _ := newFixture(t, false)
	_ = w.Upload(context.Background(), validUpload)
	if err := w.SwitchKind(model.KindInitial); err != nil {
		t.Fatal(err)
	}
	if w.State().Step != StepReview {
		t.Fatal("selecting the current kind must not reset")
	}
	if err := w.SwitchKind(model.KindFinal); err != nil {
		t.Fatal(err)
	}
	if st := w.State(); st.Step != StepUpload || st.Kind != model.KindFinal || st.Session != nil {
		t.Errorf("state = %+v", st)
	}
	if err := w.SwitchKind("draft"); !errors.Is(err, model.ErrUnknownKind) {
		t.Errorf("unknown kind: %v", err)
	}
}

func TestResetDiscardsLateUploadResult(t *testing.T) {
	w, svc, _, _ := newFixture(t, false)
	svc.uploadGate = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- w.Upload(context.Background(), validUpload) }()

	waitFor(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return svc.uploadCalls == 1
	})
	w.Reset()
	close(svc.uploadGate)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("err = %v", err)
	}
	if st := w.State(); st.Step != StepUpload || st.Session != nil {
		t.Errorf("late result was applied: %+v", st)
	}
}

func TestDuplicateInFlightOperationIsBusy(t *testing.T) {
	w, svc, _, _ := newFixture(t, false)
	svc.uploadGate = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- w.Upload(context.Background(), validUpload) }()
	waitFor(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return svc.uploadCalls == 1
	})

	if err := w.Upload(context.Background(), validUpload); !errors.Is(err, ErrBusy) {
		t.Errorf("second upload: %v", err)
	}
	if st := w.State(); len(st.InFlight) != 1 || st.InFlight[0] != "upload" {
		t.Errorf("in flight = %v", st.InFlight)
	}
	close(svc.uploadGate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if svc.uploadCalls != 1 {
		t.Errorf("upload calls = %d", svc.uploadCalls)
	}
}

func TestStepGuards(t *testing.T) {
	w, _, _, _ := newFixture(t, false)
	ctx := context.Background()
	if err := w.ContinueToSeniorRater(); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("advance from upload: %v", err)
	}
	if _, err := w.Generate(ctx); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("generate from upload: %v", err)
	}
	_ = w.Upload(ctx, validUpload)
	if err := w.Upload(ctx, validUpload); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("upload from review: %v", err)
	}
	if _, err := w.SetSeniorRater("ABC123", rater); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("rater entry during review: %v", err)
	}
	_ = w.ContinueToSeniorRater()
	if err := w.DeleteMember(ctx, "m1", member.DeleteRequest{Reason: "x", Confirmed: true}); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("delete after review: %v", err)
	}
	if _, err := w.View(ViewQuery{}); err != nil {
		t.Errorf("view stays available: %v", err)
	}
}

func TestMinimalPreviewAfterUpload(t *testing.T) {
	w, svc, _, _ := newFixture(t, false)
	svc.previewErr = &rosterclient.ServiceError{Op: "load roster preview", Status: 404}
	if err := w.Upload(context.Background(), validUpload); err != nil {
		t.Fatal(err)
	}
	st := w.State()
	if st.Variant != model.PreviewMinimal || st.Statistics != nil || st.Note == "" {
		t.Errorf("state = %+v", st)
	}
}

func TestDeleteWhilePreviewDownKeepsUploadRosterMarkedStale(t *testing.T) {
	w, svc, _, pub := newFixture(t, false)
	svc.upload.EligibleDF = []model.Member{
		{MemberData: model.MemberData{FullName: "DOE, JOHN", SSAN: "1234"}},
		{MemberData: model.MemberData{FullName: "ROE, JANE", SSAN: "5678"}},
	}
	svc.previewErr = &rosterclient.ServiceError{Op: "load roster preview", Status: 503}
	ctx := context.Background()
	if err := w.Upload(ctx, validUpload); err != nil {
		t.Fatal(err)
	}
	st := w.State()
	if st.Variant != model.PreviewUpload || st.Note == "" || st.Statistics == nil || st.Stale {
		t.Fatalf("after upload = %+v", st)
	}

	if err := w.DeleteMember(ctx, "row_eligible_1", member.DeleteRequest{Reason: "PCS", Confirmed: true}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(svc.deleted) != 1 || svc.deleted[0] != "row_eligible_1" || len(pub.events) != 1 {
		t.Fatalf("deleted=%v events=%d", svc.deleted, len(pub.events))
	}
	st = w.State()
	if st.Variant != model.PreviewUpload || st.Note == "" || !st.Stale {
		t.Errorf("after delete = %+v", st)
	}
	v, err := w.View(ViewQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if v.Variant == model.PreviewFull || v.Note == "" || !v.Stale {
		t.Errorf("view = %+v", v)
	}
}

func TestReloadFailureKeepsPreviousRoster(t *testing.T) {
	w, svc, _, _ := newFixture(t, false)
	svc.upload.EligibleDF = []model.Member{
		{MemberData: model.MemberData{FullName: "DOE, JOHN", SSAN: "1234"}},
		{MemberData: model.MemberData{FullName: "ROE, JANE", SSAN: "5678"}},
		{MemberData: model.MemberData{FullName: "POE, EDGAR", SSAN: "9999"}},
	}
	ctx := context.Background()
	if err := w.Upload(ctx, validUpload); err != nil {
		t.Fatal(err)
	}

	svc.mu.Lock()
	svc.previewErr = &rosterclient.ServiceError{Op: "load roster preview", Status: 503}
	svc.mu.Unlock()
	if err := w.DeleteMember(ctx, "m1", member.DeleteRequest{Reason: "PCS", Confirmed: true}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	v, _ := w.View(ViewQuery{})
	if v.Variant != model.PreviewFull || !v.Stale || v.Total != 2 {
		t.Fatalf("view after failed reload = %+v", v)
	}
	for _, m := range v.Members {
		if strings.HasPrefix(m.MemberID, "row_") {
			t.Fatalf("upload rows installed over the loaded roster: %+v", v.Members)
		}
	}

	var se *rosterclient.ServiceError
	if err := w.Reload(ctx); !errors.As(err, &se) {
		t.Errorf("explicit reload: %v", err)
	}

	svc.mu.Lock()
	svc.previewErr = nil
	svc.mu.Unlock()
	if err := w.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	v, _ = w.View(ViewQuery{})
	if v.Stale || v.Total != 1 || v.Members[0].MemberID != "m2" {
		t.Errorf("view after recovery = %+v", v)
	}
}

func TestViewQuery(t *testing.T) {
	w, _, _, _ := newFixture(t, false)
	_ = w.Upload(context.Background(), validUpload)
	term := "roe"
	v, err := w.View(ViewQuery{Term: &term})
	if err != nil || v.Total != 1 {
		t.Fatalf("search = %+v, %v", v, err)
	}
	bad := 30
	if _, err := w.View(ViewQuery{PageSize: &bad}); err == nil {
		t.Error("page size 30 accepted")
	}
	cat := model.CategoryIneligible
	v, _ = w.View(ViewQuery{Category: &cat})
	if v.Category != model.CategoryIneligible || v.Term != "roe" {
		t.Errorf("view = %+v", v)
	}
}

func TestLogoLifecycle(t *testing.T) {
	w, _, _, _ := newFixture(t, false)
	ctx := context.Background()
	_ = w.Upload(ctx, validUpload)

	if _, err := w.UploadLogo(ctx, "logo.gif", []byte("GIF89a")); !errors.Is(err, rosterclient.ErrLogoType) {
		t.Fatalf("gif: %v", err)
	}
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	info, err := w.UploadLogo(ctx, "logo.png", png)
	if err != nil || !info.Uploaded {
		t.Fatalf("upload = %+v, %v", info, err)
	}
	if st := w.State(); !st.Session.CustomLogo.Uploaded {
		t.Error("session logo not recorded")
	}
	if err := w.DeleteLogo(ctx); err != nil {
		t.Fatal(err)
	}
	if st := w.State(); st.Session.CustomLogo.Uploaded {
		t.Error("logo still recorded after delete")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(Deps{Service: &fakeService{}, Documents: document.NewVault(document.NewMemoryStore(), document.NewSigner("x"), 0)})
	a, err := r.Create(model.KindInitial)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := r.Create(model.KindFinal)
	if a.ID() == b.ID() || r.Len() != 2 {
		t.Fatalf("ids %s %s, len %d", a.ID(), b.ID(), r.Len())
	}
	got, err := r.Get(a.ID())
	if err != nil || got != a {
		t.Fatalf("get = %v, %v", got, err)
	}
	if err := r.Delete(a.ID()); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(a.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: %v", err)
	}
	if _, err := r.Create("draft"); !errors.Is(err, model.ErrUnknownKind) {
		t.Errorf("bad kind: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(time.Millisecond)
	}
}
