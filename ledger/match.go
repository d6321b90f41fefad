package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Millstreamu/StockTrak/log"
	"github.com/Millstreamu/StockTrak/util"
)

// Allocation pairs a lot with the quantity a sell consumes from it.
type Allocation struct {
	Lot      *Lot
	Quantity decimal.Decimal
}

// SpecificLot nominates a lot, by its id within the current rebuild, for a
// specific-id disposal.
type SpecificLot struct {
	LotID    int64
	Quantity decimal.Decimal
}

// SourceLot nominates a lot by the BUY transaction that created it. This is
// the durable form of a specific-id selection: transaction ids survive
// rebuilds while lot ids do not.
type SourceLot struct {
	BuyTransactionID int64
	Quantity         decimal.Decimal
}

// MatchDisposal selects the ordered lot slices a sell consumes. For FIFO and
// HIFO the candidate list is ordered per the method and consumed greedily from
// the front; for SpecificID the caller-supplied selection is validated and
// used as given. The allocations always sum to exactly sell.Quantity; if the
// open lots cannot cover it the error is surfaced, never clamped.
func MatchDisposal(book *LotBook, sell *Transaction, method MatchMethod, specific []SpecificLot) ([]Allocation, error) {
	if sell.Side != SELL {
		return nil, fmt.Errorf("transaction %d is not a SELL", sell.ID)
	}

	if method == SpecificID {
		return matchSpecific(book, sell, specific)
	}

	available := book.OpenQuantity(sell.Symbol)
	if available.LessThan(sell.Quantity) {
		return nil, &InsufficientLotsError{
			SellTransactionID: sell.ID,
			Symbol:            sell.Symbol,
			Requested:         sell.Quantity,
			Available:         available,
		}
	}

	candidates := book.OpenLots(sell.Symbol, util.Optional[time.Time]{})
	switch method {
	case FIFO:
		// Oldest first; creation order (lot id) breaks ties.
		sort.SliceStable(candidates, func(i, j int) bool {
			if !candidates[i].AcquiredAt.Equal(candidates[j].AcquiredAt) {
				return candidates[i].AcquiredAt.Before(candidates[j].AcquiredAt)
			}
			return candidates[i].ID < candidates[j].ID
		})
	case HIFO:
		// Highest unit cost first; acquisition date then id break ties.
		sort.SliceStable(candidates, func(i, j int) bool {
			ci, cj := candidates[i].UnitCost(), candidates[j].UnitCost()
			if !ci.Equal(cj) {
				return ci.GreaterThan(cj)
			}
			if !candidates[i].AcquiredAt.Equal(candidates[j].AcquiredAt) {
				return candidates[i].AcquiredAt.Before(candidates[j].AcquiredAt)
			}
			return candidates[i].ID < candidates[j].ID
		})
	default:
		return nil, fmt.Errorf("unsupported match method: %v", method)
	}

	var allocs []Allocation
	needed := sell.Quantity
	for _, lot := range candidates {
		if !needed.IsPositive() {
			break
		}
		take := decimal.Min(needed, lot.QuantityRemaining)
		log.Tracef("match", "sell %d takes %s from lot %d (%s remaining)",
			sell.ID, take, lot.ID, lot.QuantityRemaining)
		allocs = append(allocs, Allocation{Lot: lot, Quantity: take})
		needed = needed.Sub(take)
	}
	util.Assertf(needed.IsZero(),
		"MatchDisposal: %s of %s unallocated after availability check", needed, sell.Symbol)
	return allocs, nil
}

func matchSpecific(book *LotBook, sell *Transaction, specific []SpecificLot) ([]Allocation, error) {
	invalid := func(format string, v ...interface{}) error {
		return &InvalidSpecificIDSelectionError{
			SellTransactionID: sell.ID,
			Reason:            fmt.Sprintf(format, v...),
		}
	}

	if len(specific) == 0 {
		return nil, invalid("no lots were specified")
	}

	seen := make(map[int64]bool, len(specific))
	allocs := make([]Allocation, 0, len(specific))
	total := decimal.Zero
	for _, pick := range specific {
		lot, ok := book.lot(pick.LotID)
		if !ok {
			return nil, invalid("lot %d does not exist", pick.LotID)
		}
		if seen[pick.LotID] {
			return nil, invalid("lot %d is referenced more than once", pick.LotID)
		}
		seen[pick.LotID] = true
		if lot.Symbol != sell.Symbol {
			return nil, invalid("lot %d holds %s, not %s", pick.LotID, lot.Symbol, sell.Symbol)
		}
		if !pick.Quantity.IsPositive() {
			return nil, invalid("lot %d quantity must be positive, got %s", pick.LotID, pick.Quantity)
		}
		if pick.Quantity.GreaterThan(lot.QuantityRemaining) {
			return nil, invalid("lot %d has %s remaining, %s requested",
				pick.LotID, lot.QuantityRemaining, pick.Quantity)
		}
		allocs = append(allocs, Allocation{Lot: lot, Quantity: pick.Quantity})
		total = total.Add(pick.Quantity)
	}
	if !total.Equal(sell.Quantity) {
		return nil, invalid("specified quantities sum to %s, sell quantity is %s",
			total, sell.Quantity)
	}
	return allocs, nil
}
