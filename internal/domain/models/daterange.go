package models

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// DateRange is an absolute, ordered calendar interval. Start == End is a
// valid single-day range. Immutable once constructed; build one through
// the daterange package rather than by hand.
type DateRange struct {
	Start civil.Date `json:"start"`
	End   civil.Date `json:"end"`
}

// NewDateRange validates ordering and returns the range.
func NewDateRange(start, end civil.Date) (DateRange, error) {
	if start.After(end) {
		return DateRange{}, Errorf(KindInvalidRange, "start %s is after end %s", start, end)
	}
	return DateRange{Start: start, End: end}, nil
}

// Days returns the inclusive length of the range in calendar days.
func (r DateRange) Days() int { return r.End.DaysSince(r.Start) + 1 }

func (r DateRange) String() string { return fmt.Sprintf("%s..%s", r.Start, r.End) }
