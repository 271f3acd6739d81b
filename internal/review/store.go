// Package review holds the categorised roster of a session and serves the
// per-bucket, searchable, paginated views the review step renders.
package review

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/iliyamo/mel-roster/internal/model"
	"github.com/iliyamo/mel-roster/internal/rosterclient"
)

// DefaultPageSize is used when no page size was configured.
const DefaultPageSize = 25

// PageSizes are the selectable page sizes.
var PageSizes = []int{10, 25, 50, 100}

// MinimalNote explains a preview derived from an upload response that
// carried no roster rows.
const MinimalNote = "Full roster data requires the roster preview endpoint; statistics are not yet available"

// UploadNote explains a preview rebuilt from the rows of the upload
// response.
const UploadNote = "Showing the roster as uploaded because the roster preview endpoint is unavailable; edits made since the upload are not reflected"

var (
	ErrInvalidPage     = errors.New("page must not be negative")
	ErrInvalidPageSize = errors.New("page size must be one of 10, 25, 50, 100")
	ErrNotLoaded       = errors.New("roster has not been loaded")
)

// Previewer is the part of the roster service the store reads from.
type Previewer interface {
	Preview(ctx context.Context, sessionID string, q rosterclient.PreviewQuery) (model.Preview, error)
}

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// Store is the Category Store of one session.  It is not safe for
// concurrent use; the owning workflow serialises access.
type Store struct {
	svc       Previewer
	sessionID string
	upload    rosterclient.UploadResult
	cycle     model.Grade
	year      int

	preview model.Preview
	loaded  bool
	stale   bool

	category model.Category
	term     string
	page     int
	pageSize int
}

// NewStore builds an empty store for the session created by upload.  The
// upload response is kept as the fallback source for Load.
func NewStore(svc Previewer, upload rosterclient.UploadResult, cycle model.Grade, year, pageSize int) *Store {
	if !ValidPageSize(pageSize) {
		pageSize = DefaultPageSize
	}
	return &Store{
		svc:       svc,
		sessionID: upload.SessionID,
		upload:    upload,
		cycle:     cycle,
		year:      year,
		category:  model.CategoryEligible,
		pageSize:  pageSize,
	}
}

// Load fetches and applies the first preview of the session.  A failing
// preview endpoint degrades to a preview derived from the upload response
// and is never an error.
func (s *Store) Load(ctx context.Context) model.Preview {
	p, err := s.FetchPage(ctx, s.pageSize)
	if err != nil {
		log.Printf("review: preview for session %s unavailable, using upload response: %v", s.sessionID, err)
		p = s.Fallback()
	}
	s.Apply(p)
	return p
}

// FetchPage retrieves the preview without touching the store's state, so
// it can run outside the owner's lock.  It reads only fields fixed at
// construction and is safe to call while the view state changes.
func (s *Store) FetchPage(ctx context.Context, pageSize int) (model.Preview, error) {
	return s.svc.Preview(ctx, s.sessionID, rosterclient.PreviewQuery{
		Category: "all",
		Page:     1,
		PageSize: pageSize,
	})
}

// Fallback builds the degraded preview from the upload response.  It only
// describes the roster as uploaded, so it is meant for a store that has
// nothing better loaded.
func (s *Store) Fallback() model.Preview {
	return FromUpload(s.upload, s.cycle, s.year)
}

// Apply installs p as the current preview and clears the stale mark.
// View state (bucket, term, page) is kept; the page is clamped later by
// View if the bucket shrank.
func (s *Store) Apply(p model.Preview) {
	s.preview = p
	s.loaded = true
	s.stale = false
}

// Invalidate marks the loaded preview as outdated.  The mark stays until a
// fresh preview is applied.
func (s *Store) Invalidate() { s.stale = true }

// Loaded reports whether any preview has been applied.
func (s *Store) Loaded() bool { return s.loaded }

// Stale reports whether the store needs a reload.
func (s *Store) Stale() bool { return s.stale || !s.loaded }

// Preview returns the current preview.
func (s *Store) Preview() (model.Preview, bool) { return s.preview, s.loaded }

// FindMember looks a member up in the loaded preview.
func (s *Store) FindMember(id string) (model.Member, model.Category, bool) {
	if !s.loaded {
		return model.Member{}, "", false
	}
	return s.preview.FindMember(id)
}

// SelectCategory switches the visible bucket and returns to the first page.
func (s *Store) SelectCategory(c model.Category) error {
	if _, err := model.ParseCategory(string(c)); err != nil {
		return fmt.Errorf("%w: %q", err, c)
	}
	s.category = c
	s.page = 0
	return nil
}

// Search sets the filter term.  The page is left alone; View clamps it
// when the filtered list got shorter.
func (s *Store) Search(term string) { s.term = term }

// Paginate moves to a 0-based page.
func (s *Store) Paginate(page int) error {
	if page < 0 {
		return ErrInvalidPage
	}
	s.page = page
	return nil
}

// SetPageSize changes the page size and returns to the first page.
func (s *Store) SetPageSize(n int) error {
	if !ValidPageSize(n) {
		return fmt.Errorf("%w: got %d", ErrInvalidPageSize, n)
	}
	s.pageSize = n
	s.page = 0
	return nil
}

// PageSize returns the current page size.
func (s *Store) PageSize() int { return s.pageSize }

// View is one rendered page of the selected bucket.
type View struct {
	Category   model.Category       `json:"category"`
	Term       string               `json:"q,omitempty"`
	Members    []model.Member       `json:"members"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	Variant    model.PreviewVariant `json:"variant"`
	Statistics *model.Statistics    `json:"statistics"`
	Note       string               `json:"note,omitempty"`
	Stale      bool                 `json:"stale,omitempty"`
}

// View filters the selected bucket by the search term and slices out the
// current page.  Statistics is nil when the preview cannot report them.
func (s *Store) View() (View, error) {
	if !s.loaded {
		return View{}, ErrNotLoaded
	}
	filtered := Filter(s.preview.Members(s.category), s.term)
	page := s.page
	if last := lastPage(len(filtered), s.pageSize); page > last {
		page = last
	}
	start := page * s.pageSize
	end := start + s.pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	members := make([]model.Member, 0, end-start)
	members = append(members, filtered[start:end]...)

	v := View{
		Category: s.category,
		Term:     s.term,
		Members:  members,
		Total:    len(filtered),
		Page:     page,
		PageSize: s.pageSize,
		Variant:  s.preview.Variant,
		Note:     s.preview.Note,
		Stale:    s.stale,
	}
	if st, ok := s.preview.Stats(); ok {
		v.Statistics = &st
	}
	return v, nil
}

func lastPage(n, size int) int {
	if n == 0 {
		return 0
	}
	return (n - 1) / size
}

// Filter keeps members whose name or PASCODE contains term, ignoring case,
// or whose identifier contains term literally.  An empty term keeps all.
func Filter(members []model.Member, term string) []model.Member {
	if term == "" {
		return members
	}
	lower := strings.ToLower(term)
	out := make([]model.Member, 0, len(members))
	for _, m := range members {
		switch {
		case strings.Contains(strings.ToLower(m.FullName), lower),
			strings.Contains(strings.ToLower(m.AssignedPAS), lower),
			strings.Contains(m.SSAN, term):
			out = append(out, m)
		}
	}
	return out
}

// FromUpload derives a preview from the upload response.  Rows, when
// present, give an Upload preview with synthesised ids; without rows the
// preview is Minimal and its statistics report as unavailable.
func FromUpload(u rosterclient.UploadResult, cycle model.Grade, year int) model.Preview {
	p := model.Preview{
		SessionID:      u.SessionID,
		Cycle:          cycle,
		Year:           year,
		Errors:         append([]string(nil), u.Warnings()...),
		Pascodes:       model.UniquePascodes(u.Pascodes),
		PascodeUnitMap: u.PascodeUnitMap,
	}
	if !u.HasFrames() {
		p.Variant = model.PreviewMinimal
		p.Categories = make(map[model.Category][]model.Member, len(model.Categories))
		for _, c := range model.Categories {
			p.Categories[c] = []model.Member{}
		}
		p.Statistics = model.Statistics{Errors: len(p.Errors)}
		p.Note = MinimalNote
		return p
	}

	buckets := u.Frames()
	for c, ms := range buckets {
		for i := range ms {
			ms[i].MemberID = model.SyntheticMemberID(c, i)
			ms[i].Editable = true
		}
	}
	p.Variant = model.PreviewUpload
	p.Categories = buckets
	p.Statistics = model.StatisticsFromBuckets(len(u.Dataframe), buckets, len(p.Errors))
	p.Note = UploadNote
	return p
}
