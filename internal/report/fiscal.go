package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

var ErrInvalidPeriod = errors.New("invalid report period")

// MonthLabels are the bucket labels in fiscal order, April first.
var MonthLabels = [12]string{
	"4月", "5月", "6月", "7月", "8月", "9月",
	"10月", "11月", "12月", "1月", "2月", "3月",
}

const fiscalStartMonth = time.April

// FiscalWindow is the closed date range of one April–March fiscal year.
type FiscalWindow struct {
	Start time.Time
	End   time.Time
}

// FiscalWindowFor derives the fiscal year containing the given reporting
// month. month is an English month name ("April") or a Japanese label ("4月").
func FiscalWindowFor(month, year string) (FiscalWindow, error) {
	m, err := ParseMonth(month)
	if err != nil {
		return FiscalWindow{}, err
	}
	y, err := parseYear(year)
	if err != nil {
		return FiscalWindow{}, err
	}
	return FiscalWindowForDate(y, m), nil
}

// FiscalWindowForDate returns the April to March year containing year/month.
func FiscalWindowForDate(year int, month time.Month) FiscalWindow {
	startYear := year
	if month < fiscalStartMonth {
		startYear = year - 1
	}
	return FiscalWindow{
		Start: time.Date(startYear, fiscalStartMonth, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(startYear+1, time.March, 31, 0, 0, 0, 0, time.UTC),
	}
}

// Contains reports whether the calendar date of t lies inside the window,
// both ends inclusive.
func (w FiscalWindow) Contains(t time.Time) bool {
	d := dateOf(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

func (w FiscalWindow) String() string {
	return w.Start.Format("2006-01-02") + ".." + w.End.Format("2006-01-02")
}

// FiscalMonthIndex maps a calendar month to its bucket, April = 0.
func FiscalMonthIndex(m time.Month) int {
	return (int(m) - int(fiscalStartMonth) + 12) % 12
}

// ParseMonth accepts full English month names, case-insensitive, or "4月"
// style labels.
func ParseMonth(label string) (time.Month, error) {
	value := strings.TrimSpace(width.Fold.String(label))
	if value == "" {
		return 0, fmt.Errorf("%w: month is empty", ErrInvalidPeriod)
	}
	if strings.HasSuffix(value, "月") {
		n, err := strconv.Atoi(strings.TrimSuffix(value, "月"))
		if err == nil && n >= 1 && n <= 12 {
			return time.Month(n), nil
		}
		return 0, fmt.Errorf("%w: invalid month %q", ErrInvalidPeriod, label)
	}
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(value, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: invalid month %q", ErrInvalidPeriod, label)
}

func parseYear(raw string) (int, error) {
	value := strings.TrimSpace(width.Fold.String(raw))
	y, err := strconv.Atoi(value)
	if err != nil || y < 1 || y > 9998 {
		return 0, fmt.Errorf("%w: invalid year %q", ErrInvalidPeriod, raw)
	}
	return y, nil
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
