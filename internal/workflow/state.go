package workflow

import (
	"sort"
	"time"

	"github.com/iliyamo/mel-roster/internal/document"
	"github.com/iliyamo/mel-roster/internal/member"
	"github.com/iliyamo/mel-roster/internal/model"
)

// Gate summarises the senior-rater validation gate.
type Gate struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing"`
}

// State is a read-only snapshot for rendering.
type State struct {
	ID         string               `json:"id"`
	Kind       model.Kind           `json:"kind"`
	Step       Step                 `json:"step"`
	StepIndex  int                  `json:"step_index"`
	CreatedAt  time.Time            `json:"created_at"`
	Session    *model.Session       `json:"session,omitempty"`
	Warnings   []string             `json:"warnings,omitempty"`
	Variant    model.PreviewVariant `json:"preview_variant,omitempty"`
	Note       string               `json:"note,omitempty"`
	Stale      bool                 `json:"stale,omitempty"`
	Statistics *model.Statistics    `json:"statistics,omitempty"`
	Gate       *Gate                `json:"gate,omitempty"`
	Draft      *member.Draft        `json:"draft,omitempty"`
	Document   *document.Handle     `json:"document,omitempty"`
	InFlight   []string             `json:"in_flight,omitempty"`
}

// State returns a snapshot of the workflow.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := State{
		ID:        w.id,
		Kind:      w.kind,
		Step:      w.step,
		StepIndex: int(w.step),
		CreatedAt: w.created,
	}
	for op := range w.inflight {
		st.InFlight = append(st.InFlight, op)
	}
	sort.Strings(st.InFlight)

	sc := w.sc
	if sc == nil {
		return st
	}
	sess := sc.Session
	sess.Pascodes = append([]string(nil), sess.Pascodes...)
	sess.Errors = append([]string(nil), sess.Errors...)
	st.Session = &sess
	st.Warnings = sess.Errors

	if p, ok := sc.Store.Preview(); ok {
		st.Variant = p.Variant
		st.Note = p.Note
		st.Stale = sc.Store.Stale()
		if stats, ok := p.Stats(); ok {
			st.Statistics = &stats
		}
	}
	fs := sc.Form.State()
	st.Gate = &Gate{Valid: fs.Valid, Missing: fs.Missing}
	if w.step == StepReview {
		d := *sc.Draft
		st.Draft = &d
	}
	if sc.Document != nil {
		h := *sc.Document
		st.Document = &h
	}
	return st
}
