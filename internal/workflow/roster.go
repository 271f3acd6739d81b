package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/iliyamo/mel-roster/internal/member"
	"github.com/iliyamo/mel-roster/internal/model"
	"github.com/iliyamo/mel-roster/internal/review"
	"github.com/iliyamo/mel-roster/internal/rosterclient"
	"github.com/iliyamo/mel-roster/internal/seniorrater"
)

// reloader captures what a roster reload needs so the fetch can run
// outside the lock.
type reloader struct {
	sc    *SessionContext
	epoch uint64
	seq   uint64
	fetch func(context.Context) (model.Preview, error)
	// strict returns a failed fetch to the caller.  Reloads that follow a
	// successful mutation only log it.
	strict bool
}

// prepareReload marks the store stale and reserves a load sequence.
// Callers hold w.mu.
func (w *Workflow) prepareReload(sc *SessionContext) reloader {
	sc.Store.Invalidate()
	sc.loadSeq++
	store := sc.Store
	pageSize := store.PageSize()
	return reloader{
		sc:    sc,
		epoch: w.epoch,
		seq:   sc.loadSeq,
		fetch: func(ctx context.Context) (model.Preview, error) { return store.FetchPage(ctx, pageSize) },
	}
}

// reload fetches the roster and applies it unless a newer load already
// landed or the session is gone.  after runs under the lock together with
// the apply.
//
// When the fetch fails the previous preview stays in place, still marked
// stale; the upload snapshot would bring back rows removed since.  Only a
// store that never loaded falls back to it.
func (w *Workflow) reload(ctx context.Context, r reloader, after func(sc *SessionContext)) error {
	p, fetchErr := r.fetch(ctx)
	var sid string
	err := w.apply(r.epoch, r.sc, func() {
		sid = r.sc.Session.ID
		switch {
		case r.seq <= r.sc.appliedSeq:
		case fetchErr == nil:
			r.sc.appliedSeq = r.seq
			r.sc.Store.Apply(p)
			if p.CustomLogo.Uploaded {
				r.sc.Session.CustomLogo = p.CustomLogo
			}
		case !r.sc.Store.Loaded():
			r.sc.appliedSeq = r.seq
			r.sc.Store.Apply(r.sc.Store.Fallback())
		}
		if after != nil {
			after(r.sc)
		}
	})
	if err != nil {
		return err
	}
	if fetchErr != nil {
		log.Printf("workflow %s: roster reload for session %s failed, keeping previous roster: %v", w.id, sid, fetchErr)
		if r.strict {
			return fetchErr
		}
	}
	return nil
}

// mutation runs a remote roster change for the review step and reloads the
// roster on success.
func (w *Workflow) mutation(ctx context.Context, op string, prepare func(sc *SessionContext) error,
	call func(ctx context.Context, sc member.Scope) error, after func(sc *SessionContext)) error {
	release, err := w.begin(op)
	if err != nil {
		return err
	}
	defer release()

	w.mu.Lock()
	sc, err := w.current(StepReview)
	if err == nil && prepare != nil {
		err = prepare(sc)
	}
	if err != nil {
		w.mu.Unlock()
		return err
	}
	scope := member.Scope{WorkflowID: w.id, SessionID: sc.Session.ID, Kind: w.kind}
	epoch := w.epoch
	w.mu.Unlock()

	if err := call(ctx, scope); err != nil {
		return err
	}

	w.mu.Lock()
	if w.epoch != epoch || w.sc != sc {
		w.mu.Unlock()
		return ErrSuperseded
	}
	r := w.prepareReload(sc)
	w.mu.Unlock()
	return w.reload(ctx, r, after)
}

// AddMember merges in into the add-member draft and submits it.  The draft
// keeps its data when validation or the service rejects it and is cleared
// once the service accepted the add.
func (w *Workflow) AddMember(ctx context.Context, in member.DraftInput) error {
	var req member.AddRequest
	return w.mutation(ctx, "add-member",
		func(sc *SessionContext) error {
			if err := sc.Draft.Update(in); err != nil {
				return err
			}
			req = sc.Draft.Request()
			return member.ValidateAdd(req)
		},
		func(ctx context.Context, scope member.Scope) error {
			_, err := w.members.Add(ctx, scope, req)
			return err
		},
		func(sc *SessionContext) { sc.Draft.Reset() })
}

// UpdateDraft changes the add-member draft without submitting it.
func (w *Workflow) UpdateDraft(in member.DraftInput) (member.Draft, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sc, err := w.current(StepReview)
	if err != nil {
		return member.Draft{}, err
	}
	if err := sc.Draft.Update(in); err != nil {
		return member.Draft{}, err
	}
	return *sc.Draft, nil
}

// EditMember applies patch to the loaded record of memberID and sends the
// complete record.
func (w *Workflow) EditMember(ctx context.Context, memberID string, patch map[string]json.RawMessage) error {
	var current model.Member
	return w.mutation(ctx, "edit-member:"+memberID,
		func(sc *SessionContext) error {
			m, _, ok := sc.Store.FindMember(memberID)
			if !ok {
				return fmt.Errorf("%w: %s", member.ErrMemberNotFound, memberID)
			}
			current = m
			return nil
		},
		func(ctx context.Context, scope member.Scope) error {
			_, err := w.members.Edit(ctx, scope, current, patch)
			return err
		}, nil)
}

// DeleteMember removes memberID after the caller confirmed it.
func (w *Workflow) DeleteMember(ctx context.Context, memberID string, in member.DeleteRequest) error {
	return w.mutation(ctx, "delete-member:"+memberID,
		func(sc *SessionContext) error {
			if _, _, ok := sc.Store.FindMember(memberID); !ok {
				return fmt.Errorf("%w: %s", member.ErrMemberNotFound, memberID)
			}
			return member.ValidateDelete(in)
		},
		func(ctx context.Context, scope member.Scope) error {
			_, err := w.members.Delete(ctx, scope, memberID, in)
			return err
		}, nil)
}

// Reprocess asks the service to re-run categorisation.
func (w *Workflow) Reprocess(ctx context.Context, in rosterclient.ReprocessRequest) error {
	for _, c := range in.Categories {
		if _, err := model.ParseCategory(string(c)); err != nil {
			return fmt.Errorf("%w: %q", err, c)
		}
	}
	return w.mutation(ctx, "reprocess", nil,
		func(ctx context.Context, scope member.Scope) error {
			_, err := w.svc.Reprocess(ctx, scope.SessionID, in)
			return err
		}, nil)
}

// UploadLogo attaches a custom logo.  Invalid images are rejected before
// any remote call.
func (w *Workflow) UploadLogo(ctx context.Context, filename string, data []byte) (model.LogoInfo, error) {
	if _, err := rosterclient.ValidateLogo(filename, data); err != nil {
		return model.LogoInfo{}, err
	}
	var info model.LogoInfo
	err := w.mutation(ctx, "logo", nil,
		func(ctx context.Context, scope member.Scope) error {
			var err error
			info, err = w.svc.UploadLogo(ctx, scope.SessionID, filename, data)
			return err
		},
		func(sc *SessionContext) { sc.Session.CustomLogo = info })
	if err != nil {
		return model.LogoInfo{}, err
	}
	return info, nil
}

// DeleteLogo removes the custom logo.
func (w *Workflow) DeleteLogo(ctx context.Context) error {
	return w.mutation(ctx, "logo", nil,
		func(ctx context.Context, scope member.Scope) error {
			return w.svc.DeleteLogo(ctx, scope.SessionID)
		},
		func(sc *SessionContext) { sc.Session.CustomLogo = model.LogoInfo{} })
}

// Logo returns the custom logo image.
func (w *Workflow) Logo(ctx context.Context) (rosterclient.Document, error) {
	w.mu.Lock()
	sc, err := w.current(StepReview, StepSeniorRaterInfo, StepComplete)
	if err != nil {
		w.mu.Unlock()
		return rosterclient.Document{}, err
	}
	sid := sc.Session.ID
	w.mu.Unlock()
	return w.svc.GetLogo(ctx, sid)
}

// Reload refreshes the roster from the service.
func (w *Workflow) Reload(ctx context.Context) error {
	release, err := w.begin("reload")
	if err != nil {
		return err
	}
	defer release()

	w.mu.Lock()
	sc, err := w.current(StepReview, StepSeniorRaterInfo, StepComplete)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	r := w.prepareReload(sc)
	r.strict = true
	w.mu.Unlock()
	return w.reload(ctx, r, nil)
}

// ViewQuery changes what View shows.  Nil fields keep the current value.
// Page size and bucket are applied first since both reset the page.
type ViewQuery struct {
	Category *model.Category
	Term     *string
	Page     *int
	PageSize *int
}

// View adjusts the roster view and returns the current page.
func (w *Workflow) View(q ViewQuery) (review.View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sc, err := w.current(StepReview, StepSeniorRaterInfo, StepComplete)
	if err != nil {
		return review.View{}, err
	}
	s := sc.Store
	if q.PageSize != nil && *q.PageSize != s.PageSize() {
		if err := s.SetPageSize(*q.PageSize); err != nil {
			return review.View{}, err
		}
	}
	if q.Category != nil {
		if err := s.SelectCategory(*q.Category); err != nil {
			return review.View{}, err
		}
	}
	if q.Term != nil {
		s.Search(*q.Term)
	}
	if q.Page != nil {
		if err := s.Paginate(*q.Page); err != nil {
			return review.View{}, err
		}
	}
	return s.View()
}

// SetSeniorRater records the senior rater of pascode.
func (w *Workflow) SetSeniorRater(pascode string, r seniorrater.Record) (seniorrater.State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sc, err := w.current(StepSeniorRaterInfo)
	if err != nil {
		return seniorrater.State{}, err
	}
	if err := sc.Form.Set(pascode, r); err != nil {
		return seniorrater.State{}, err
	}
	return sc.Form.State(), nil
}

// SetSmallUnitSeniorRater records the small-unit senior rater.
func (w *Workflow) SetSmallUnitSeniorRater(r seniorrater.Record) (seniorrater.State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sc, err := w.current(StepSeniorRaterInfo)
	if err != nil {
		return seniorrater.State{}, err
	}
	if err := sc.Form.SetSmallUnit(r); err != nil {
		return seniorrater.State{}, err
	}
	return sc.Form.State(), nil
}

// SeniorRaters returns the senior-rater form and gate status.
func (w *Workflow) SeniorRaters() (seniorrater.State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sc, err := w.current(StepReview, StepSeniorRaterInfo, StepComplete)
	if err != nil {
		return seniorrater.State{}, err
	}
	return sc.Form.State(), nil
}
