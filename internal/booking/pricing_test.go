package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"marketstall/internal/apperror"
	"marketstall/internal/stall"
)

func date(s string) time.Time {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func mustRange(t *testing.T, start, end string) DateRange {
	t.Helper()
	r, err := ParseDateRange(start, end)
	if err != nil {
		t.Fatalf("range %s..%s: %v", start, end, err)
	}
	return r
}

func TestComputePrice_LinearInDays(t *testing.T) {
	price := decimal.RequireFromString("50.00")

	cases := []struct {
		start, end string
		want       string
	}{
		{"2024-01-10", "2024-01-10", "50"},
		{"2024-01-10", "2024-01-12", "150"},
		{"2024-01-10", "2024-01-16", "350"},
		{"2024-02-28", "2024-03-01", "150"}, // leap day counted
	}
	for _, c := range cases {
		got := ComputePrice(price, mustRange(t, c.start, c.end))
		if !got.Equal(decimal.RequireFromString(c.want)) {
			t.Fatalf("%s..%s: got %s want %s", c.start, c.end, got, c.want)
		}
	}
}

func TestComputePrice_NoFloatDrift(t *testing.T) {
	price := decimal.RequireFromString("0.10")
	got := ComputePrice(price, mustRange(t, "2024-01-01", "2024-01-03"))
	if got.StringFixed(2) != "0.30" {
		t.Fatalf("expected 0.30, got %s", got.StringFixed(2))
	}
}

func TestDays_CountsCalendarDays(t *testing.T) {
	cases := []struct {
		start, end string
		want       int
	}{
		{"2024-01-01", "2024-01-01", 1},
		{"2024-01-01", "2024-12-31", 366},
		{"2023-01-01", "2023-12-31", 365},
		{"0001-01-01", "9999-12-31", 3652059},
		{"2024-01-01", "2400-01-01", 137332},
	}
	for _, c := range cases {
		r := DateRange{Start: date(c.start), End: date(c.end)}
		if got := r.Days(); got != c.want {
			t.Fatalf("%s..%s: got %d days, want %d", c.start, c.end, got, c.want)
		}
	}
}

func TestNewDateRange_RejectsOverlongRanges(t *testing.T) {
	if _, err := ParseDateRange("2024-01-01", "2024-12-31"); err != nil {
		t.Fatalf("a full leap year must be bookable: %v", err)
	}
	for _, end := range []string{"2025-01-01", "2400-01-01", "9999-12-31"} {
		_, err := ParseDateRange("2024-01-01", end)
		var ve *apperror.ValidationError
		if !errors.As(err, &ve) || ve.Code != "INVALID_DATE_RANGE" {
			t.Fatalf("2024-01-01..%s: expected INVALID_DATE_RANGE, got %v", end, err)
		}
	}
}

func TestComputePrice_LargestTotalFitsColumn(t *testing.T) {
	r := mustRange(t, "2024-01-01", "2024-12-31")
	total := ComputePrice(stall.MaxPricePerDay, r)
	// NUMERIC(12,2) holds up to 10 integer digits.
	if !total.LessThan(decimal.New(1, 10)) {
		t.Fatalf("largest total %s overflows NUMERIC(12,2)", total)
	}
}

func TestNewDateRange_EndBeforeStart(t *testing.T) {
	if _, err := NewDateRange(date("2024-01-12"), date("2024-01-10")); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseDateRange_Malformed(t *testing.T) {
	if _, err := ParseDateRange("2024-13-01", "2024-01-02"); err == nil {
		t.Fatalf("expected error for month 13")
	}
	if _, err := ParseDateRange("2024-01-01", "tomorrow"); err == nil {
		t.Fatalf("expected error for non-date")
	}
}

func TestDay_DropsClock(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	got := Day(time.Date(2024, 1, 10, 23, 30, 0, 0, loc))
	if !got.Equal(date("2024-01-10")) {
		t.Fatalf("expected calendar date in original zone, got %s", got)
	}
}

func TestDateRange_Overlaps(t *testing.T) {
	a := mustRange(t, "2024-01-10", "2024-01-12")
	cases := []struct {
		start, end string
		want       bool
	}{
		{"2024-01-11", "2024-01-11", true},
		{"2024-01-12", "2024-01-20", true}, // shares the last day
		{"2024-01-01", "2024-01-10", true}, // shares the first day
		{"2024-01-13", "2024-01-14", false},
		{"2024-01-01", "2024-01-09", false},
	}
	for _, c := range cases {
		b := mustRange(t, c.start, c.end)
		if a.Overlaps(b) != c.want || b.Overlaps(a) != c.want {
			t.Fatalf("%s vs %s: want %v", a, b, c.want)
		}
	}
}

// FuzzDateRangeOverlaps compares Overlaps with a day-by-day scan.
func FuzzDateRangeOverlaps(f *testing.F) {
	f.Add(0, 2, 1, 1)
	f.Add(0, 0, 1, 1)
	f.Add(5, 9, 0, 5)
	f.Fuzz(func(t *testing.T, s1, l1, s2, l2 int) {
		norm := func(v int) int {
			v %= 60
			if v < 0 {
				v = -v
			}
			return v
		}
		base := date("2024-01-01")
		a := DateRange{Start: base.AddDate(0, 0, norm(s1))}
		a.End = a.Start.AddDate(0, 0, norm(l1))
		b := DateRange{Start: base.AddDate(0, 0, norm(s2))}
		b.End = b.Start.AddDate(0, 0, norm(l2))

		shared := false
		for d := a.Start; !d.After(a.End); d = d.AddDate(0, 0, 1) {
			if !d.Before(b.Start) && !d.After(b.End) {
				shared = true
				break
			}
		}
		if a.Overlaps(b) != shared {
			t.Fatalf("%s vs %s: Overlaps=%v, day scan=%v", a, b, a.Overlaps(b), shared)
		}
	})
}
