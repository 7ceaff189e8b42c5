// Package daterange resolves user-supplied calendar input, possibly
// missing the year, into absolute ordered date intervals.
package daterange

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/guttosm/indexpulse/internal/domain/models"
)

// Spec is one endpoint of a requested range: a month-day pair, with the
// year either given explicitly or left for the resolver to infer.
type Spec struct {
	Month int
	Day   int
	Year  int // 0 means "infer from the reference date"
}

// HasYear reports whether the endpoint carried an explicit year.
func (s Spec) HasYear() bool { return s.Year != 0 }

// Parse reads an endpoint spec from "MM-DD" or "YYYY-MM-DD". The month-day
// pair must denote a real calendar date in the year it ends up assigned to;
// that check happens during Resolve, since "02-29" is only sometimes valid.
func Parse(in string) (Spec, error) {
	parts := strings.Split(strings.TrimSpace(in), "-")
	switch len(parts) {
	case 2:
		m, d, err := parseMonthDay(parts[0], parts[1])
		if err != nil {
			return Spec{}, models.NewError(models.KindInvalidRange, fmt.Sprintf("invalid date %q", in), err)
		}
		return Spec{Month: m, Day: d}, nil
	case 3:
		var y int
		if _, err := fmt.Sscanf(parts[0], "%d", &y); err != nil || y < 1000 {
			return Spec{}, models.Errorf(models.KindInvalidRange, "invalid year in %q", in)
		}
		m, d, err := parseMonthDay(parts[1], parts[2])
		if err != nil {
			return Spec{}, models.NewError(models.KindInvalidRange, fmt.Sprintf("invalid date %q", in), err)
		}
		return Spec{Year: y, Month: m, Day: d}, nil
	default:
		return Spec{}, models.Errorf(models.KindInvalidRange, "expected MM-DD or YYYY-MM-DD, got %q", in)
	}
}

func parseMonthDay(ms, ds string) (int, int, error) {
	var m, d int
	if _, err := fmt.Sscanf(ms, "%d", &m); err != nil || m < 1 || m > 12 {
		return 0, 0, fmt.Errorf("month %q out of range", ms)
	}
	if _, err := fmt.Sscanf(ds, "%d", &d); err != nil || d < 1 || d > 31 {
		return 0, 0, fmt.Errorf("day %q out of range", ds)
	}
	return m, d, nil
}

// Resolve turns a (start, end) pair of specs into an absolute DateRange
// against the reference date "today".
//
// Year assignment: an explicit year is used as given; a missing year is
// first tried as today's year. If that puts start after end and BOTH
// endpoints omitted the year, the start slides back one year, which is how
// a Dec..Jan request crosses the year boundary. Mixing one explicit and
// one inferred year is rejected rather than guessed at.
//
// The resolved range must not end after today: bars that do not exist yet
// cannot be fetched.
func Resolve(start, end Spec, today civil.Date) (models.DateRange, error) {
	if start.HasYear() != end.HasYear() {
		return models.DateRange{}, models.Errorf(models.KindInvalidRange,
			"either both dates or neither must carry a year")
	}

	s, err := assign(start, today.Year)
	if err != nil {
		return models.DateRange{}, err
	}
	e, err := assign(end, today.Year)
	if err != nil {
		return models.DateRange{}, err
	}

	if s.After(e) && !start.HasYear() {
		s, err = assign(start, today.Year-1)
		if err != nil {
			return models.DateRange{}, err
		}
	}

	if s.After(e) {
		return models.DateRange{}, models.Errorf(models.KindInvalidRange,
			"start %s is after end %s", s, e)
	}
	if e.After(today) {
		return models.DateRange{}, models.Errorf(models.KindFutureRange,
			"end %s is after the current date %s", e, today)
	}
	return models.DateRange{Start: s, End: e}, nil
}

// assign pins the spec to a concrete year and validates the result is a
// real calendar date (catches Feb 29 in non-leap years, Apr 31, etc).
func assign(sp Spec, fallbackYear int) (civil.Date, error) {
	y := sp.Year
	if y == 0 {
		y = fallbackYear
	}
	d := civil.Date{Year: y, Month: time.Month(sp.Month), Day: sp.Day}
	if !d.IsValid() {
		return civil.Date{}, models.Errorf(models.KindInvalidRange,
			"%04d-%02d-%02d is not a calendar date", y, sp.Month, sp.Day)
	}
	return d, nil
}

// LookbackRange converts "the most recent n days" into an absolute range
// ending today. The start is padded by half again to cover weekends and
// exchange holidays, so the provider returns at least n trading days.
func LookbackRange(n int, today civil.Date) models.DateRange {
	if n < 1 {
		n = 1
	}
	pad := n + n/2
	return models.DateRange{Start: today.AddDays(-pad), End: today}
}
