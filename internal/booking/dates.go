package booking

import (
	"time"

	"marketstall/internal/apperror"
)

const DateFormat = "2006-01-02"

// MaxBookingDays bounds a single booking. With stall.MaxPricePerDay it keeps
// every total inside the NUMERIC(12,2) column.
const MaxBookingDays = 366

// DateRange is an inclusive span of calendar days. Start and End are UTC midnights.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Day drops the clock part of t, keeping the calendar date as seen in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, apperror.Validation("VALIDATION_FAILED", "%s must be a date in YYYY-MM-DD format", field)
	}
	return t, nil
}

func NewDateRange(start, end time.Time) (DateRange, error) {
	start, end = Day(start), Day(end)
	if end.Before(start) {
		return DateRange{}, apperror.Validation("INVALID_DATE_RANGE", "end date %s is before start date %s",
			end.Format(DateFormat), start.Format(DateFormat))
	}
	r := DateRange{Start: start, End: end}
	if r.Days() > MaxBookingDays {
		return DateRange{}, apperror.Validation("INVALID_DATE_RANGE", "a booking may span at most %d days, got %d",
			MaxBookingDays, r.Days())
	}
	return r, nil
}

func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate("startDate", start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate("endDate", end)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(s, e)
}

// SingleDay is the range covering only d.
func SingleDay(d time.Time) DateRange {
	d = Day(d)
	return DateRange{Start: d, End: d}
}

// Days counts both ends, so a range is never shorter than one day.
func (r DateRange) Days() int {
	return int((r.End.Unix()-r.Start.Unix())/86400) + 1
}

func (r DateRange) Overlaps(o DateRange) bool {
	return !r.Start.After(o.End) && !r.End.Before(o.Start)
}

func (r DateRange) String() string {
	return r.Start.Format(DateFormat) + ".." + r.End.Format(DateFormat)
}
