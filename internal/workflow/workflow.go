// Package workflow drives one MEL production: upload, review, senior-rater
// entry and generation.  A Workflow owns its session-scoped state; remote
// calls run outside its lock and their results are applied only if no
// Reset happened in between.
package workflow

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/mel-roster/internal/document"
	"github.com/iliyamo/mel-roster/internal/member"
	"github.com/iliyamo/mel-roster/internal/model"
	"github.com/iliyamo/mel-roster/internal/review"
	"github.com/iliyamo/mel-roster/internal/rosterclient"
	"github.com/iliyamo/mel-roster/internal/seniorrater"
)

// Service is the Remote Roster Service as the workflow uses it.
type Service interface {
	review.Previewer
	member.Service
	Upload(ctx context.Context, kind model.Kind, in rosterclient.UploadRequest) (rosterclient.UploadResult, error)
	UploadLogo(ctx context.Context, sessionID, filename string, data []byte) (model.LogoInfo, error)
	GetLogo(ctx context.Context, sessionID string) (rosterclient.Document, error)
	DeleteLogo(ctx context.Context, sessionID string) error
	Reprocess(ctx context.Context, sessionID string, in rosterclient.ReprocessRequest) (rosterclient.Ack, error)
	Generate(ctx context.Context, kind model.Kind, sessionID string, pascodeInfo any) (rosterclient.Document, error)
	Download(ctx context.Context, kind model.Kind, sessionID string) (rosterclient.Document, error)
}

// Documents keeps generated MELs.
type Documents interface {
	Put(ctx context.Context, kind model.Kind, sessionID string, data []byte, contentType string) (document.Handle, error)
	Discard(ctx context.Context, h document.Handle) error
}

// Deps are the collaborators shared by every workflow.
type Deps struct {
	Service   Service
	Documents Documents
	Publisher member.Publisher
	PageSize  int
}

// SessionContext is everything that lives and dies with one session.
type SessionContext struct {
	Session  model.Session
	Store    *review.Store
	Form     *seniorrater.Form
	Draft    *member.Draft
	Document *document.Handle

	loadSeq    uint64
	appliedSeq uint64
}

// Workflow is one user's MEL workflow.  It is safe for concurrent use.
type Workflow struct {
	id      string
	created time.Time
	svc     Service
	docs    Documents
	members *member.Protocol
	size    int

	mu       sync.Mutex
	kind     model.Kind
	step     Step
	epoch    uint64
	sc       *SessionContext
	inflight map[string]struct{}
}

// New returns a workflow in StepUpload.
func New(id string, kind model.Kind, deps Deps) *Workflow {
	if kind == "" {
		kind = model.KindInitial
	}
	return &Workflow{
		id:       id,
		created:  time.Now().UTC(),
		svc:      deps.Service,
		docs:     deps.Documents,
		members:  member.NewProtocol(deps.Service, deps.Publisher),
		size:     deps.PageSize,
		kind:     kind,
		step:     StepUpload,
		inflight: make(map[string]struct{}),
	}
}

// ID returns the workflow id.
func (w *Workflow) ID() string { return w.id }

// begin marks op as running.  A second call for the same op fails with
// ErrBusy until the returned release func runs.
func (w *Workflow) begin(op string) (func(), error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.inflight[op]; ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, op)
	}
	w.inflight[op] = struct{}{}
	return func() {
		w.mu.Lock()
		delete(w.inflight, op)
		w.mu.Unlock()
	}, nil
}

// current returns the session context if the workflow is in one of steps.
// Callers hold w.mu.
func (w *Workflow) current(steps ...Step) (*SessionContext, error) {
	ok := false
	for _, s := range steps {
		if w.step == s {
			ok = true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStep, w.step)
	}
	if w.sc == nil {
		return nil, ErrSessionMissing
	}
	return w.sc, nil
}

// apply runs fn under the lock if the epoch is still e and the session
// context is still sc.
func (w *Workflow) apply(e uint64, sc *SessionContext, fn func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != e || w.sc != sc {
		return ErrSuperseded
	}
	fn()
	return nil
}

// UploadInput is a roster file submission.
type UploadInput struct {
	Filename string
	Content  []byte
	Cycle    string
	Year     int
}

// ValidateUpload checks an upload before anything is sent.
func ValidateUpload(in UploadInput) (model.Grade, error) {
	if len(in.Content) == 0 {
		return "", ErrEmptyFile
	}
	if strings.TrimSpace(in.Cycle) == "" {
		return "", ErrCycleRequired
	}
	cycle, err := model.ParseCycle(in.Cycle)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, in.Cycle)
	}
	if err := model.ValidateYear(in.Year); err != nil {
		return "", err
	}
	return cycle, nil
}

// Upload submits a roster file, loads the categorised roster and moves to
// StepReview.  Nothing changes when the upload fails.
func (w *Workflow) Upload(ctx context.Context, in UploadInput) error {
	cycle, err := ValidateUpload(in)
	if err != nil {
		return err
	}
	release, err := w.begin("upload")
	if err != nil {
		return err
	}
	defer release()

	w.mu.Lock()
	if w.step != StepUpload {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidStep, w.step)
	}
	kind, epoch := w.kind, w.epoch
	w.mu.Unlock()

	res, err := w.svc.Upload(ctx, kind, rosterclient.UploadRequest{
		Filename: in.Filename,
		Content:  in.Content,
		Cycle:    cycle,
		Year:     in.Year,
	})
	if err != nil {
		return err
	}
	session := res.Session(cycle, in.Year)
	store := review.NewStore(w.svc, res, cycle, in.Year, w.size)
	preview := store.Load(ctx)
	if preview.CustomLogo.Uploaded {
		session.CustomLogo = preview.CustomLogo
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch || w.step != StepUpload {
		log.Printf("workflow %s: discarding upload result for session %s", w.id, session.ID)
		return ErrSuperseded
	}
	w.sc = &SessionContext{
		Session: session,
		Store:   store,
		Form:    seniorrater.NewForm(session),
		Draft:   member.NewDraft(cycle),
	}
	w.step = StepReview
	return nil
}

// ContinueToSeniorRater leaves the review step.  Review never blocks
// progression.
func (w *Workflow) ContinueToSeniorRater() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.current(StepReview); err != nil {
		return err
	}
	w.step = StepSeniorRaterInfo
	return nil
}

// Generate submits the senior-rater information, stores the returned MEL
// and moves to StepComplete.  A closed gate fails without a remote call;
// a failed call keeps the step and every entered record.
func (w *Workflow) Generate(ctx context.Context) (document.Handle, error) {
	release, err := w.begin("generate")
	if err != nil {
		return document.Handle{}, err
	}
	defer release()

	w.mu.Lock()
	sc, err := w.current(StepSeniorRaterInfo)
	if err != nil {
		w.mu.Unlock()
		return document.Handle{}, err
	}
	payload, err := sc.Form.Payload()
	kind, epoch, sid := w.kind, w.epoch, sc.Session.ID
	w.mu.Unlock()
	if err != nil {
		return document.Handle{}, err
	}

	doc, err := w.svc.Generate(ctx, kind, sid, payload)
	if err != nil {
		return document.Handle{}, err
	}
	h, err := w.docs.Put(ctx, kind, sid, doc.Data, doc.ContentType)
	if err != nil {
		return document.Handle{}, fmt.Errorf("store generated document: %w", err)
	}

	err = w.apply(epoch, sc, func() {
		sc.Document = &h
		w.step = StepComplete
	})
	if err != nil {
		w.discard(h)
		return document.Handle{}, err
	}
	return h, nil
}

// RefreshDocument fetches the generated MEL again from the service and
// replaces the stored copy, for when the stored one expired.
func (w *Workflow) RefreshDocument(ctx context.Context) (document.Handle, error) {
	release, err := w.begin("download")
	if err != nil {
		return document.Handle{}, err
	}
	defer release()

	w.mu.Lock()
	sc, err := w.current(StepComplete)
	if err != nil {
		w.mu.Unlock()
		return document.Handle{}, err
	}
	kind, epoch, sid := w.kind, w.epoch, sc.Session.ID
	w.mu.Unlock()

	doc, err := w.svc.Download(ctx, kind, sid)
	if err != nil {
		return document.Handle{}, err
	}
	h, err := w.docs.Put(ctx, kind, sid, doc.Data, doc.ContentType)
	if err != nil {
		return document.Handle{}, fmt.Errorf("store downloaded document: %w", err)
	}
	var old *document.Handle
	err = w.apply(epoch, sc, func() {
		old = sc.Document
		sc.Document = &h
	})
	if err != nil {
		w.discard(h)
		return document.Handle{}, err
	}
	if old != nil {
		w.discard(*old)
	}
	return h, nil
}

// Document returns the handle of the generated MEL.
func (w *Workflow) Document() (document.Handle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sc, err := w.current(StepComplete)
	if err != nil {
		return document.Handle{}, err
	}
	if sc.Document == nil {
		return document.Handle{}, ErrNoDocument
	}
	return *sc.Document, nil
}

// Reset returns to StepUpload and drops the session, the senior-rater
// records and the generated document.  Results of operations still in
// flight are discarded when they return.
func (w *Workflow) Reset() {
	w.mu.Lock()
	old := w.resetLocked()
	w.mu.Unlock()
	if old != nil {
		w.discard(*old)
	}
}

// SwitchKind changes between the initial and final MEL.  Switching is an
// implicit Reset; selecting the current kind changes nothing.
func (w *Workflow) SwitchKind(kind model.Kind) error {
	k, err := model.ParseKind(string(kind))
	if err != nil {
		return err
	}
	w.mu.Lock()
	if k == w.kind {
		w.mu.Unlock()
		return nil
	}
	w.kind = k
	old := w.resetLocked()
	w.mu.Unlock()
	if old != nil {
		w.discard(*old)
	}
	return nil
}

func (w *Workflow) resetLocked() *document.Handle {
	var old *document.Handle
	if w.sc != nil {
		old = w.sc.Document
	}
	w.epoch++
	w.sc = nil
	w.step = StepUpload
	return old
}

func (w *Workflow) discard(h document.Handle) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.docs.Discard(ctx, h); err != nil {
		log.Printf("workflow %s: discard document %s: %v", w.id, h.Filename, err)
	}
}
