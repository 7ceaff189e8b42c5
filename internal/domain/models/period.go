package models

// Period is the sampling granularity of a series. The values mirror the
// upstream provider's period codes for intraday data.
type Period string

const (
	Period1Min  Period = "1"
	Period5Min  Period = "5"
	Period30Min Period = "30"
	PeriodDaily Period = "daily"
)

// Valid reports whether p is one of the supported granularities.
func (p Period) Valid() bool {
	switch p {
	case Period1Min, Period5Min, Period30Min, PeriodDaily:
		return true
	}
	return false
}

// Label returns the human-readable form used in chart titles and filenames,
// e.g. "5min" or "daily".
func (p Period) Label() string {
	if p == PeriodDaily {
		return "daily"
	}
	return string(p) + "min"
}
