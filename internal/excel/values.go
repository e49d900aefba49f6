package excel

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/width"
)

var (
	amountReplacer = strings.NewReplacer(",", "", " ", "", "¥", "", "￥", "", "%", "")
	dateReplacer   = strings.NewReplacer("年", "/", "月", "/", "日", "", "-", "/", ".", "/")

	// Day-first is last so it only wins when month-first cannot parse.
	dateLayouts = []string{
		"1/2/2006",
		"2006/1/2",
		"1/2/06",
		"06/1/2",
		"2/1/2006",
	}
	timestampLayouts = []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006/1/2 15:04:05",
		"2006/1/2 15:04",
	}

	zeroAmounts = map[string]struct{}{
		"-":   {},
		"—":   {},
		"N/A": {},
	}
	highPotentialMarks = map[string]struct{}{
		"〇":    {},
		"○":    {},
		"⭕":    {},
		"o":    {},
		"◎":    {},
		"◯":    {},
		"true": {},
	}
)

// parseAmount reads a spreadsheet money cell. Blank is nil; dash and N/A
// placeholders count as zero.
func parseAmount(raw string) (*float64, error) {
	value := strings.TrimSpace(width.Fold.String(raw))
	if value == "" {
		return nil, nil
	}
	value = amountReplacer.Replace(value)
	if _, ok := zeroAmounts[value]; ok {
		zero := 0.0
		return &zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", raw)
	}
	parsed := d.InexactFloat64()
	return &parsed, nil
}

// parseWholeNumber reads an integer that may have been exported as a float
// ("12.0").
func parseWholeNumber(raw string) (int64, error) {
	value := strings.ReplaceAll(strings.TrimSpace(width.Fold.String(raw)), ",", "")
	if value == "" {
		return 0, fmt.Errorf("value is empty")
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("must be an integer")
	}
	return d.IntPart(), nil
}

func parseBillingCount(raw string) (*int, error) {
	value := strings.TrimSuffix(strings.TrimSpace(raw), "回")
	if value == "" {
		return nil, nil
	}
	n, err := parseWholeNumber(value)
	if err != nil {
		return nil, err
	}
	count := int(n)
	return &count, nil
}

// parseDate accepts the date shapes seen in CRM and ERP exports, including
// Japanese 年月日 dates and bare Excel serial numbers. Anything else is nil.
func parseDate(raw string) *time.Time {
	value := strings.TrimSpace(width.Fold.String(raw))
	if value == "" {
		return nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return dateOnly(t)
		}
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial < 1 || serial > 2958465 {
			return nil
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil
		}
		return dateOnly(t)
	}

	value = strings.TrimSuffix(dateReplacer.Replace(value), "/")
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if strings.Contains(layout, "/06") || strings.HasPrefix(layout, "06/") {
			if t.Year() < 2000 {
				t = t.AddDate(100, 0, 0)
			}
		}
		return dateOnly(t)
	}
	return nil
}

func dateOnly(t time.Time) *time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func parseHighPotential(raw string) bool {
	_, ok := highPotentialMarks[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// normalizeCode renders codes that were stored as numbers ("123.0") as plain
// integers and leaves every other value untouched, leading zeros included.
func normalizeCode(raw string) string {
	value := strings.TrimSpace(raw)
	if !strings.ContainsAny(value, ".eE") {
		return value
	}
	d, err := decimal.NewFromString(value)
	if err != nil || !d.IsInteger() {
		return value
	}
	return d.String()
}
