package model

import (
	"errors"
	"fmt"
	"strings"
)

// Year bounds accepted for a promotion cycle.
const (
	MinYear = 2000
	MaxYear = 2100
)

// ErrYearOutOfRange is returned when a cycle year is outside [MinYear, MaxYear].
var ErrYearOutOfRange = errors.New("year out of range")

// LogoInfo describes the optional custom logo attached to a session.  The
// logo lives independently of the roster: adding or removing it never
// changes categorisation.
type LogoInfo struct {
	Uploaded bool   `json:"uploaded"`
	Filename string `json:"filename,omitempty"`
}

// Session is one roster-processing session issued by the Remote Roster
// Service at upload time.
//
// Fields:
//
//	ID                – opaque session_id, immutable for the session lifetime.
//	Cycle             – grade the roster is evaluated for.
//	Year              – four digit cycle year.
//	Pascodes          – unit identifiers in display order, unique.
//	PascodeUnitMap    – PASCODE to unit display name.
//	SeniorRaterNeeded – roster contains a small unit needing its own rater.
//	Errors            – non-fatal categorisation warnings.
//	CustomLogo        – optional uploaded logo.
type Session struct {
	ID                string            `json:"session_id"`
	Cycle             Grade             `json:"cycle"`
	Year              int               `json:"year"`
	Pascodes          []string          `json:"pascodes"`
	PascodeUnitMap    map[string]string `json:"pascode_unit_map"`
	SeniorRaterNeeded bool              `json:"senior_rater_needed"`
	Errors            []string          `json:"errors"`
	CustomLogo        LogoInfo          `json:"custom_logo"`
}

// ValidateYear checks the cycle year bounds.
func ValidateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrYearOutOfRange, year, MinYear, MaxYear)
	}
	return nil
}

// UniquePascodes trims, drops empties and removes duplicates while keeping
// first-seen order.
func UniquePascodes(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// UnitName returns the display name of a PASCODE, or "" when unknown.
func (s Session) UnitName(pascode string) string {
	if s.PascodeUnitMap == nil {
		return ""
	}
	return s.PascodeUnitMap[pascode]
}

// HasPascode reports whether pascode belongs to the session.
func (s Session) HasPascode(pascode string) bool {
	for _, p := range s.Pascodes {
		if p == pascode {
			return true
		}
	}
	return false
}
