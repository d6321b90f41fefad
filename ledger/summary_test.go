package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Millstreamu/StockTrak/date"
)

func TestComputePositions(t *testing.T) {
	txs := []*Transaction{
		mkBuy(1, 1, "CSL", "10", "10"),
		mkBuy(2, 2, "CSL", "10", "20"),
		mkBuy(3, 3, "BHP", "100", "40"),
		mkSell(4, 10, "CSL", "12", "25"),
	}
	res, err := Replay(txs, defaultOpts())
	require.NoError(t, err)

	positions := ComputePositions(res.Lots, nil)
	require.Len(t, positions, 2)

	// Sorted by symbol.
	require.Equal(t, "BHP", positions[0].Symbol)
	require.Equal(t, "CSL", positions[1].Symbol)

	csl := positions[1]
	require.True(t, csl.Quantity.Equal(dec("8")))
	// 8 of the $20 lot remain: 200 * 8/10.
	require.True(t, csl.CostBase.Equal(dec("160")))
	require.True(t, csl.AvgCost.Equal(dec("20")))
	require.False(t, csl.MarketValue.Present())
	require.False(t, csl.Weight.Present())
}

func TestComputePositionsWithPrices(t *testing.T) {
	txs := []*Transaction{
		mkBuy(1, 1, "CSL", "10", "10"),
		mkBuy(2, 2, "BHP", "30", "40"),
	}
	res, err := Replay(txs, defaultOpts())
	require.NoError(t, err)

	positions := ComputePositions(res.Lots, map[string]decimal.Decimal{
		"CSL": dec("30"),
		"BHP": dec("40"),
	})
	require.Len(t, positions, 2)

	bhp, csl := positions[0], positions[1]
	require.True(t, bhp.MarketValue.MustGet().Equal(dec("1200")))
	require.True(t, csl.MarketValue.MustGet().Equal(dec("300")))
	// Weights over the priced total of 1500.
	require.True(t, bhp.Weight.MustGet().Equal(dec("0.8")))
	require.True(t, csl.Weight.MustGet().Equal(dec("0.2")))
}

func TestComputePositionsSkipsClosedLots(t *testing.T) {
	txs := []*Transaction{
		mkBuy(1, 1, "CSL", "10", "10"),
		mkSell(2, 5, "CSL", "10", "25"),
	}
	res, err := Replay(txs, defaultOpts())
	require.NoError(t, err)
	require.Empty(t, ComputePositions(res.Lots, nil))
}

func TestSummarizeByFinancialYear(t *testing.T) {
	mkTime := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	sells := map[int64]*Transaction{
		// FY2024 (ends June 2024) and FY2025 either side of July 1.
		1: {ID: 1, Timestamp: mkTime(2024, time.June, 30)},
		2: {ID: 2, Timestamp: mkTime(2024, time.July, 1)},
	}
	disposals := []*Disposal{
		{SellTransactionID: 1, GainLoss: dec("100"), EligibleForDiscount: true},
		{SellTransactionID: 1, GainLoss: dec("-30")},
		{SellTransactionID: 2, GainLoss: dec("50")},
		{SellTransactionID: 2, GainLoss: dec("25"), EligibleForDiscount: true},
	}

	years := SummarizeByFinancialYear(disposals, sells)
	require.Len(t, years, 2)

	fy24 := years[0]
	require.Equal(t, date.FinancialYear(2024), fy24.Year)
	require.True(t, fy24.Gains.Equal(dec("100")))
	require.True(t, fy24.Losses.Equal(dec("-30")))
	require.True(t, fy24.DiscountEligibleGains.Equal(dec("100")))
	require.True(t, fy24.Net.Equal(dec("70")))

	fy25 := years[1]
	require.Equal(t, date.FinancialYear(2025), fy25.Year)
	require.True(t, fy25.Gains.Equal(dec("75")))
	require.True(t, fy25.Losses.IsZero())
	require.True(t, fy25.DiscountEligibleGains.Equal(dec("25")))
	require.True(t, fy25.Net.Equal(dec("75")))
}

func TestSummarizeSkipsOrphanDisposals(t *testing.T) {
	disposals := []*Disposal{{SellTransactionID: 42, GainLoss: dec("10")}}
	require.Empty(t, SummarizeByFinancialYear(disposals, nil))
}
