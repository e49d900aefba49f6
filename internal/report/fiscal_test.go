package report

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFiscalWindowFor(t *testing.T) {
	tests := []struct {
		month, year string
		start, end  time.Time
	}{
		{"April", "2024", date(2024, time.April, 1), date(2025, time.March, 31)},
		{"March", "2024", date(2023, time.April, 1), date(2024, time.March, 31)},
		{"January", "2025", date(2024, time.April, 1), date(2025, time.March, 31)},
		{"december", "2024", date(2024, time.April, 1), date(2025, time.March, 31)},
		{"4月", "2024", date(2024, time.April, 1), date(2025, time.March, 31)},
		{"３月", "２０２４", date(2023, time.April, 1), date(2024, time.March, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.month+"/"+tt.year, func(t *testing.T) {
			w, err := FiscalWindowFor(tt.month, tt.year)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !w.Start.Equal(tt.start) || !w.End.Equal(tt.end) {
				t.Fatalf("got %s, want %s..%s", w, tt.start.Format("2006-01-02"), tt.end.Format("2006-01-02"))
			}
		})
	}
}

func TestFiscalWindowForInvalid(t *testing.T) {
	cases := [][2]string{
		{"Smarch", "2024"},
		{"", "2024"},
		{"13月", "2024"},
		{"April", "twenty"},
		{"April", ""},
	}
	for _, c := range cases {
		if _, err := FiscalWindowFor(c[0], c[1]); !errors.Is(err, ErrInvalidPeriod) {
			t.Errorf("FiscalWindowFor(%q, %q) error = %v, want ErrInvalidPeriod", c[0], c[1], err)
		}
	}
}

func TestFiscalWindowContains(t *testing.T) {
	w := FiscalWindowForDate(2024, time.April)
	in := []time.Time{
		date(2024, time.April, 1),
		time.Date(2025, time.March, 31, 23, 59, 0, 0, time.UTC),
		date(2024, time.December, 15),
	}
	for _, d := range in {
		if !w.Contains(d) {
			t.Errorf("expected %s inside %s", d, w)
		}
	}
	out := []time.Time{date(2024, time.March, 31), date(2025, time.April, 1), date(2023, time.December, 1)}
	for _, d := range out {
		if w.Contains(d) {
			t.Errorf("expected %s outside %s", d, w)
		}
	}
}

func TestFiscalMonthIndex(t *testing.T) {
	want := map[time.Month]int{
		time.April:    0,
		time.August:   4,
		time.December: 8,
		time.January:  9,
		time.March:    11,
	}
	for m, idx := range want {
		if got := FiscalMonthIndex(m); got != idx {
			t.Errorf("FiscalMonthIndex(%s) = %d, want %d", m, got, idx)
		}
		parsed, err := ParseMonth(MonthLabels[idx])
		if err != nil || parsed != m {
			t.Errorf("ParseMonth(%s) = %s, %v; want %s", MonthLabels[idx], parsed, err, m)
		}
	}
}
