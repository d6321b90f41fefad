package date

import (
	"fmt"
	"time"
)

const DefaultFormat = "2006-01-02"

// FinancialYear identifies an Australian financial year (1 July - 30 June)
// by the calendar year in which it ends. FY 2025 runs from 2024-07-01 to
// 2025-06-30.
type FinancialYear int

func FinancialYearOf(t time.Time) FinancialYear {
	if t.Month() >= time.July {
		return FinancialYear(t.Year() + 1)
	}
	return FinancialYear(t.Year())
}

func (fy FinancialYear) String() string {
	return fmt.Sprintf("FY%d-%02d", int(fy)-1, int(fy)%100)
}

// Start returns the first instant of the financial year in loc.
func (fy FinancialYear) Start(loc *time.Location) time.Time {
	return time.Date(int(fy)-1, time.July, 1, 0, 0, 0, 0, loc)
}

// End returns the first instant after the financial year in loc.
func (fy FinancialYear) End(loc *time.Location) time.Time {
	return time.Date(int(fy), time.July, 1, 0, 0, 0, 0, loc)
}

func (fy FinancialYear) Contains(t time.Time) bool {
	return FinancialYearOf(t) == fy
}

// ParseInLocation parses a timestamp that may carry either a full RFC 3339
// timestamp or a bare date, interpreting bare dates in loc.
func ParseInLocation(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(DefaultFormat, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse %q as RFC 3339 or %s", s, DefaultFormat)
	}
	return t, nil
}
