package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSliceRoundingConservation(t *testing.T) {
	// Three lots with a repeating-decimal unit cost (10/3 per share).
	book := NewLotBook()
	for id := int64(1); id <= 3; id++ {
		_, err := book.CreateLot(mkBuy(id, int(id), "CSL", "3", "1"), dec("10"), 365)
		require.NoError(t, err)
	}
	sell := mkSell(4, 10, "CSL", "3", "5")

	var allocs []Allocation
	for _, lot := range book.Lots() {
		allocs = append(allocs, Allocation{Lot: lot, Quantity: dec("1")})
	}

	calc := GainCalculator{Precision: 2}
	disposals, err := calc.SliceDisposals(sell, allocs, decimal.Zero)
	require.NoError(t, err)
	require.Len(t, disposals, 3)

	// Each exact slice cost is 3.333...; the first two round to 3.33 and the
	// last absorbs the remainder so the total is exactly 10.00.
	require.True(t, disposals[0].CostBaseAllocated.Equal(dec("3.33")))
	require.True(t, disposals[1].CostBaseAllocated.Equal(dec("3.33")))
	require.True(t, disposals[2].CostBaseAllocated.Equal(dec("3.34")))

	costSum := decimal.Zero
	proceedsSum := decimal.Zero
	gainSum := decimal.Zero
	for _, d := range disposals {
		costSum = costSum.Add(d.CostBaseAllocated)
		proceedsSum = proceedsSum.Add(d.Proceeds)
		gainSum = gainSum.Add(d.GainLoss)
	}
	require.True(t, costSum.Equal(dec("10")))
	require.True(t, proceedsSum.Equal(dec("15")))
	require.True(t, gainSum.Equal(proceedsSum.Sub(costSum)))
}

func TestSliceUsesBankersRounding(t *testing.T) {
	book := NewLotBook()
	_, err := book.CreateLot(mkBuy(1, 1, "CSL", "2", "1"), dec("2.345"), 365)
	require.NoError(t, err)
	lot := book.Lots()[0]

	// Half-cent totals round to even: 2.345 -> 2.34, proceeds 4.175 -> 4.18.
	sell := mkSell(2, 10, "CSL", "2", "2.0875")
	calc := GainCalculator{Precision: 2}
	disposals, err := calc.SliceDisposals(sell, []Allocation{{Lot: lot, Quantity: dec("2")}}, decimal.Zero)
	require.NoError(t, err)
	require.Len(t, disposals, 1)
	require.True(t, disposals[0].CostBaseAllocated.Equal(dec("2.34")),
		"got %s", disposals[0].CostBaseAllocated)
	require.True(t, disposals[0].Proceeds.Equal(dec("4.18")),
		"got %s", disposals[0].Proceeds)
}

func TestSellFeesSpreadProRata(t *testing.T) {
	book := mkBook(t,
		mkBuy(1, 1, "CSL", "5", "10"),
		mkBuy(2, 2, "CSL", "15", "10"),
	)
	sell := mkSell(3, 10, "CSL", "20", "12")
	sell.Fees = dec("10")

	calc := GainCalculator{Precision: 2}
	disposals, err := calc.SliceDisposals(sell, []Allocation{
		{Lot: book.Lots()[0], Quantity: dec("5")},
		{Lot: book.Lots()[1], Quantity: dec("15")},
	}, sell.Fees)
	require.NoError(t, err)

	// 5/20 of the fee comes off the first slice, 15/20 off the second.
	require.True(t, disposals[0].Proceeds.Equal(dec("57.50")), "got %s", disposals[0].Proceeds)
	require.True(t, disposals[1].Proceeds.Equal(dec("172.50")), "got %s", disposals[1].Proceeds)
}

func TestCostBaseProportionalToOriginalQuantity(t *testing.T) {
	book := mkBook(t, mkBuy(1, 1, "CSL", "10", "10"))
	lot := book.Lots()[0]
	// A partly consumed lot still allocates cost over the original tranche.
	require.NoError(t, book.Decrement(1, dec("5")))

	sell := mkSell(2, 10, "CSL", "5", "20")
	calc := GainCalculator{Precision: 2}
	disposals, err := calc.SliceDisposals(sell, []Allocation{{Lot: lot, Quantity: dec("5")}}, decimal.Zero)
	require.NoError(t, err)
	require.True(t, disposals[0].CostBaseAllocated.Equal(dec("50")),
		"got %s", disposals[0].CostBaseAllocated)
}

func TestDiscountEligibilityBoundary(t *testing.T) {
	book := mkBook(t, mkBuy(1, 1, "CSL", "10", "10"))
	lot := book.Lots()[0]
	calc := GainCalculator{Precision: 2}

	// Sold exactly on the threshold date: eligible.
	atThreshold := mkSell(2, 1, "CSL", "5", "20")
	atThreshold.Timestamp = lot.DiscountThresholdDate
	disposals, err := calc.SliceDisposals(atThreshold, []Allocation{{Lot: lot, Quantity: dec("5")}}, decimal.Zero)
	require.NoError(t, err)
	require.True(t, disposals[0].EligibleForDiscount)

	// Sold the instant before: not eligible.
	early := mkSell(3, 1, "CSL", "5", "20")
	early.Timestamp = lot.DiscountThresholdDate.Add(-time.Second)
	disposals, err = calc.SliceDisposals(early, []Allocation{{Lot: lot, Quantity: dec("5")}}, decimal.Zero)
	require.NoError(t, err)
	require.False(t, disposals[0].EligibleForDiscount)
}

func TestSliceRejectsMismatchedAllocations(t *testing.T) {
	book := mkBook(t, mkBuy(1, 1, "CSL", "10", "10"))
	calc := GainCalculator{Precision: 2}

	_, err := calc.SliceDisposals(mkSell(2, 10, "CSL", "8", "20"),
		[]Allocation{{Lot: book.Lots()[0], Quantity: dec("5")}}, decimal.Zero)
	require.Error(t, err)

	_, err = calc.SliceDisposals(mkSell(3, 10, "CSL", "8", "20"), nil, decimal.Zero)
	require.Error(t, err)
}
