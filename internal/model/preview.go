package model

// PreviewVariant tells a Full preview, fetched from the preview endpoint,
// apart from the ones built from the upload response when that endpoint is
// unavailable: Upload when the response carried roster rows, Minimal when
// it did not.
type PreviewVariant string

const (
	PreviewFull    PreviewVariant = "full"
	PreviewUpload  PreviewVariant = "upload"
	PreviewMinimal PreviewVariant = "minimal"
)

// Preview is the categorised roster the review step operates on.
type Preview struct {
	Variant        PreviewVariant
	SessionID      string
	Cycle          Grade
	Year           int
	Edited         bool
	Statistics     Statistics
	Categories     map[Category][]Member
	Errors         []string
	Pascodes       []string
	PascodeUnitMap map[string]string
	CustomLogo     LogoInfo
	// Note explains why a degraded preview was built.
	Note string
}

// Degraded reports whether p was built from the upload response instead of
// the preview endpoint.  Such a preview does not reflect later edits.
func (p Preview) Degraded() bool { return p.Variant != PreviewFull }

// Stats returns the roster statistics.  ok is false for a Minimal preview:
// its zero counts mean "not yet available", not "no members".
func (p Preview) Stats() (Statistics, bool) {
	if p.Variant == PreviewMinimal {
		return Statistics{}, false
	}
	return p.Statistics.Normalize(), true
}

// Members returns the ordered members of one bucket.
func (p Preview) Members(c Category) []Member {
	if p.Categories == nil {
		return nil
	}
	return p.Categories[c]
}

// FindMember locates a member by id in any bucket.
func (p Preview) FindMember(id string) (Member, Category, bool) {
	for _, c := range Categories {
		for _, m := range p.Categories[c] {
			if m.MemberID == id {
				return m, c, true
			}
		}
	}
	return Member{}, "", false
}

// EnsureMemberIDs fills in synthetic ids for members the service has not
// identified yet.
func EnsureMemberIDs(buckets map[Category][]Member) {
	for c, ms := range buckets {
		for i := range ms {
			if ms[i].MemberID == "" {
				ms[i].MemberID = SyntheticMemberID(c, i)
			}
		}
	}
}
