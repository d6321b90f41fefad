package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// GainCalculator turns matched allocations into Disposal records. Rounding is
// banker's-unbiased, applied once per disposal at the configured currency
// precision. Residual cents go to the last slice so the slices always sum to
// the sell's rounded totals.
type GainCalculator struct {
	Precision int32
}

// SliceDisposals emits one Disposal per allocation. sellFees is the portion
// of the sell's fees netted out of proceeds (the full fee under the default
// allocation strategy); it is spread pro-rata across slices by quantity.
// All slices are produced together or not at all.
func (c GainCalculator) SliceDisposals(sell *Transaction, allocs []Allocation, sellFees decimal.Decimal) ([]*Disposal, error) {
	if len(allocs) == 0 {
		return nil, fmt.Errorf("sell transaction %d has no lot allocations", sell.ID)
	}

	totalQty := decimal.Zero
	exactCosts := make([]decimal.Decimal, len(allocs))
	exactProceeds := make([]decimal.Decimal, len(allocs))
	exactCostTotal := decimal.Zero
	for i, a := range allocs {
		totalQty = totalQty.Add(a.Quantity)
		// Strictly proportional to quantity over the original tranche.
		exactCosts[i] = a.Lot.TotalCostBase.Mul(a.Quantity).Div(a.Lot.OriginalQuantity)
		exactCostTotal = exactCostTotal.Add(exactCosts[i])
		feeShare := sellFees.Mul(a.Quantity).Div(sell.Quantity)
		exactProceeds[i] = sell.Price.Mul(a.Quantity).Sub(feeShare)
	}
	if !totalQty.Equal(sell.Quantity) {
		return nil, fmt.Errorf(
			"sell transaction %d: allocations sum to %s, sell quantity is %s",
			sell.ID, totalQty, sell.Quantity)
	}

	costTotal := exactCostTotal.RoundBank(c.Precision)
	proceedsTotal := sell.Price.Mul(sell.Quantity).Sub(sellFees).RoundBank(c.Precision)

	disposals := make([]*Disposal, len(allocs))
	costSum := decimal.Zero
	proceedsSum := decimal.Zero
	for i, a := range allocs {
		var cost, proceeds decimal.Decimal
		if i == len(allocs)-1 {
			// Remainder to the last slice keeps the totals exact.
			cost = costTotal.Sub(costSum)
			proceeds = proceedsTotal.Sub(proceedsSum)
		} else {
			cost = exactCosts[i].RoundBank(c.Precision)
			proceeds = exactProceeds[i].RoundBank(c.Precision)
		}
		costSum = costSum.Add(cost)
		proceedsSum = proceedsSum.Add(proceeds)

		disposals[i] = &Disposal{
			SellTransactionID:   sell.ID,
			LotID:               a.Lot.ID,
			Quantity:            a.Quantity,
			Proceeds:            proceeds,
			CostBaseAllocated:   cost,
			GainLoss:            proceeds.Sub(cost),
			EligibleForDiscount: eligibleForDiscount(sell, a.Lot),
		}
	}

	if !costSum.Equal(costTotal) {
		return nil, &RoundingReconciliationError{
			SellTransactionID: sell.ID, Field: "cost base", Want: costTotal, Got: costSum}
	}
	if !proceedsSum.Equal(proceedsTotal) {
		return nil, &RoundingReconciliationError{
			SellTransactionID: sell.ID, Field: "proceeds", Want: proceedsTotal, Got: proceedsSum}
	}
	return disposals, nil
}

// eligibleForDiscount is a pure function of the sell timestamp and the lot's
// threshold date. A lot acquired exactly the holding period before the sell
// qualifies.
func eligibleForDiscount(sell *Transaction, lot *Lot) bool {
	return !sell.Timestamp.Before(lot.DiscountThresholdDate)
}
