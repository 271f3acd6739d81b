package model

// Statistics summarises a categorised roster.  TotalProcessed is always the
// sum of the four non-small-unit buckets; SmallUnit is reported on its own
// and never counted in TotalProcessed.
type Statistics struct {
	TotalUploaded  int `json:"total_uploaded"`
	TotalProcessed int `json:"total_processed"`
	Eligible       int `json:"eligible"`
	Ineligible     int `json:"ineligible"`
	Discrepancy    int `json:"discrepancy"`
	BTZ            int `json:"btz"`
	SmallUnit      int `json:"small_unit"`
	Errors         int `json:"errors"`
}

// Normalize recomputes TotalProcessed from the bucket counts.  Values sent
// by the service for the total are never trusted.
func (s Statistics) Normalize() Statistics {
	s.TotalProcessed = s.Eligible + s.Ineligible + s.Discrepancy + s.BTZ
	return s
}

// StatisticsFromBuckets derives counts from bucket contents.
func StatisticsFromBuckets(totalUploaded int, buckets map[Category][]Member, errorCount int) Statistics {
	return Statistics{
		TotalUploaded: totalUploaded,
		Eligible:      len(buckets[CategoryEligible]),
		Ineligible:    len(buckets[CategoryIneligible]),
		Discrepancy:   len(buckets[CategoryDiscrepancy]),
		BTZ:           len(buckets[CategoryBTZ]),
		SmallUnit:     len(buckets[CategorySmallUnit]),
		Errors:        errorCount,
	}.Normalize()
}

// Count returns the count recorded for one bucket.
func (s Statistics) Count(c Category) int {
	switch c {
	case CategoryEligible:
		return s.Eligible
	case CategoryIneligible:
		return s.Ineligible
	case CategoryDiscrepancy:
		return s.Discrepancy
	case CategoryBTZ:
		return s.BTZ
	case CategorySmallUnit:
		return s.SmallUnit
	}
	return 0
}
