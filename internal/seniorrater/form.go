// Package seniorrater collects senior-rater details per PASCODE and decides
// when they are complete enough to generate a MEL.
package seniorrater

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/mel-roster/internal/model"
)

// SmallUnitKey is the payload key of the small-unit senior rater.
const SmallUnitKey = "small_unit_sr"

var (
	ErrUnknownPascode     = errors.New("pascode is not part of this roster")
	ErrSmallUnitNotNeeded = errors.New("this roster does not need a small unit senior rater")
	ErrIncomplete         = errors.New("senior rater information is incomplete")
)

// Record is the senior rater of one unit.  All four fields are required.
type Record struct {
	SRID  string `json:"srid"`
	Rank  string `json:"senior_rater_rank"`
	Name  string `json:"senior_rater_name"`
	Title string `json:"senior_rater_title"`
}

// Complete reports whether every field holds a non-blank value.
func (r Record) Complete() bool {
	for _, v := range []string{r.SRID, r.Rank, r.Name, r.Title} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

func (r Record) trimmed() Record {
	return Record{
		SRID:  strings.TrimSpace(r.SRID),
		Rank:  strings.TrimSpace(r.Rank),
		Name:  strings.TrimSpace(r.Name),
		Title: strings.TrimSpace(r.Title),
	}
}

// Form holds the records of one session.  It is seeded from the session
// and discarded with it.
type Form struct {
	pascodes  []string
	units     map[string]string
	records   map[string]Record
	needed    bool
	smallUnit Record
}

// NewForm seeds one empty record per PASCODE of s, in session order.
func NewForm(s model.Session) *Form {
	f := &Form{
		pascodes: model.UniquePascodes(s.Pascodes),
		units:    s.PascodeUnitMap,
		needed:   s.SeniorRaterNeeded,
	}
	f.records = make(map[string]Record, len(f.pascodes))
	for _, p := range f.pascodes {
		f.records[p] = Record{}
	}
	return f
}

// Set replaces the record of pascode.
func (f *Form) Set(pascode string, r Record) error {
	if _, ok := f.records[pascode]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPascode, pascode)
	}
	f.records[pascode] = r
	return nil
}

// SetSmallUnit replaces the small-unit record.
func (f *Form) SetSmallUnit(r Record) error {
	if !f.needed {
		return ErrSmallUnitNotNeeded
	}
	f.smallUnit = r
	return nil
}

// SmallUnitNeeded reports whether the roster needs a small-unit rater.
func (f *Form) SmallUnitNeeded() bool { return f.needed }

// Valid is the generation gate: every PASCODE record is complete, and so
// is the small-unit record when the roster needs one.
func (f *Form) Valid() bool {
	return len(f.Missing()) == 0
}

// Missing lists what keeps the gate closed: incomplete PASCODEs in order,
// then SmallUnitKey.
func (f *Form) Missing() []string {
	var out []string
	for _, p := range f.pascodes {
		if !f.records[p].Complete() {
			out = append(out, p)
		}
	}
	if f.needed && !f.smallUnit.Complete() {
		out = append(out, SmallUnitKey)
	}
	return out
}

// Payload assembles the submission.  The small-unit record is included
// exactly when the roster needs it, which the gate has already required
// to be complete.
func (f *Form) Payload() (Payload, error) {
	if missing := f.Missing(); len(missing) > 0 {
		return Payload{}, fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	p := Payload{Pascodes: make(map[string]Record, len(f.pascodes))}
	for _, code := range f.pascodes {
		p.Pascodes[code] = f.records[code].trimmed()
	}
	if f.needed {
		r := f.smallUnit.trimmed()
		p.SmallUnit = &r
	}
	return p, nil
}

// Payload is the pascode_info object sent with a generation request.
type Payload struct {
	Pascodes  map[string]Record
	SmallUnit *Record
}

// MarshalJSON flattens the PASCODE records and the optional small-unit
// record into one object.
func (p Payload) MarshalJSON() ([]byte, error) {
	m := make(map[string]Record, len(p.Pascodes)+1)
	for k, v := range p.Pascodes {
		m[k] = v
	}
	if p.SmallUnit != nil {
		m[SmallUnitKey] = *p.SmallUnit
	}
	return json.Marshal(m)
}

// Entry is one PASCODE row of a form snapshot.
type Entry struct {
	Pascode  string `json:"pascode"`
	Unit     string `json:"unit,omitempty"`
	Record   Record `json:"record"`
	Complete bool   `json:"complete"`
}

// State is a read-only snapshot of the form.
type State struct {
	Entries         []Entry  `json:"pascodes"`
	SmallUnitNeeded bool     `json:"small_unit_needed"`
	SmallUnit       *Record  `json:"small_unit_sr,omitempty"`
	Valid           bool     `json:"valid"`
	Missing         []string `json:"missing"`
}

// State returns a snapshot of the form.
func (f *Form) State() State {
	s := State{
		Entries:         make([]Entry, 0, len(f.pascodes)),
		SmallUnitNeeded: f.needed,
		Missing:         f.Missing(),
	}
	if s.Missing == nil {
		s.Missing = []string{}
	}
	s.Valid = len(s.Missing) == 0
	for _, p := range f.pascodes {
		r := f.records[p]
		s.Entries = append(s.Entries, Entry{Pascode: p, Unit: f.units[p], Record: r, Complete: r.Complete()})
	}
	if f.needed {
		r := f.smallUnit
		s.SmallUnit = &r
	}
	return s
}
