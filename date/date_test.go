package date

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFinancialYearOf(t *testing.T) {
	mk := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	require.Equal(t, FinancialYear(2024), FinancialYearOf(mk(2024, time.June, 30)))
	require.Equal(t, FinancialYear(2025), FinancialYearOf(mk(2024, time.July, 1)))
	require.Equal(t, FinancialYear(2025), FinancialYearOf(mk(2024, time.December, 31)))
	require.Equal(t, FinancialYear(2025), FinancialYearOf(mk(2025, time.January, 1)))
	require.Equal(t, FinancialYear(2025), FinancialYearOf(mk(2025, time.June, 30)))
}

func TestFinancialYearString(t *testing.T) {
	require.Equal(t, "FY2024-25", FinancialYear(2025).String())
	require.Equal(t, "FY1999-00", FinancialYear(2000).String())
}

func TestFinancialYearRange(t *testing.T) {
	fy := FinancialYear(2025)
	require.Equal(t, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), fy.Start(time.UTC))
	require.Equal(t, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), fy.End(time.UTC))

	require.True(t, fy.Contains(time.Date(2025, time.June, 30, 23, 59, 59, 0, time.UTC)))
	require.False(t, fy.Contains(fy.End(time.UTC)))
}

func TestParseInLocation(t *testing.T) {
	bne, err := time.LoadLocation("Australia/Brisbane")
	require.NoError(t, err)

	ts, err := ParseInLocation("2024-07-01", bne)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, time.July, 1, 0, 0, 0, 0, bne), ts)

	ts, err = ParseInLocation("2024-07-01T10:30:00+10:00", bne)
	require.NoError(t, err)
	require.Equal(t, 10, ts.Hour())

	_, err = ParseInLocation("01/07/2024", bne)
	require.Error(t, err)
}
