package utils

import (
	"cabin/src/models"
	"fmt"
)

// DateRange is an inclusive calendar-date interval. Both bounds are ISO
// YYYY-MM-DD strings, so ordering and overlap checks are plain string
// comparisons on the fixed-width form. A single-day range has Start == End.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start, r.End)
}

// Contains reports whether the given date falls inside the range, both
// endpoints included.
func (r DateRange) Contains(date string) bool {
	return r.Start <= date && date <= r.End
}

// Overlaps reports whether two inclusive ranges share at least one day.
func Overlaps(a DateRange, b DateRange) bool {
	return a.Start <= b.End && a.End >= b.Start
}

func RangeOf(r *models.Reservation) DateRange {
	return DateRange{Start: r.StartDate, End: r.EndDate}
}

// FindConflicts returns every reservation whose range overlaps the candidate,
// preserving the input order. The reservation with ID == excludeID is skipped
// so that editing a reservation does not conflict with itself; pass 0 when
// creating.
func FindConflicts(candidate DateRange, existing []models.Reservation, excludeID uint) []models.Reservation {
	conflicts := []models.Reservation{}
	for _, r := range existing {
		if excludeID != 0 && r.ID == excludeID {
			continue
		}
		if Overlaps(candidate, RangeOf(&r)) {
			conflicts = append(conflicts, r)
		}
	}
	return conflicts
}
