package model

import (
	"errors"
	"strings"
)

// Category is one of the five buckets the Remote Roster Service sorts a
// roster into.  A member sits in exactly one bucket; only the service moves
// members between buckets.
type Category string

const (
	CategoryEligible    Category = "eligible"
	CategoryIneligible  Category = "ineligible"
	CategoryDiscrepancy Category = "discrepancy"
	CategoryBTZ         Category = "btz"
	CategorySmallUnit   Category = "small_unit"
)

// ErrUnknownCategory is returned for a bucket name outside Categories.
var ErrUnknownCategory = errors.New("unknown category")

// Categories lists every bucket in display order.
var Categories = []Category{
	CategoryEligible,
	CategoryIneligible,
	CategoryDiscrepancy,
	CategoryBTZ,
	CategorySmallUnit,
}

// ParseCategory normalises s and checks it against Categories.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", ErrUnknownCategory
}

// Addable reports whether members may be manually added into c.  The
// small-unit bucket is derived from unit size and is never a manual target.
func (c Category) Addable() bool {
	switch c {
	case CategoryEligible, CategoryIneligible, CategoryDiscrepancy, CategoryBTZ:
		return true
	}
	return false
}

// Label is the display name of the bucket.
func (c Category) Label() string {
	switch c {
	case CategoryEligible:
		return "Eligible"
	case CategoryIneligible:
		return "Ineligible"
	case CategoryDiscrepancy:
		return "Discrepancy"
	case CategoryBTZ:
		return "BTZ (Below The Zone)"
	case CategorySmallUnit:
		return "Small Unit"
	}
	return string(c)
}
