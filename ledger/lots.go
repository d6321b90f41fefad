package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Millstreamu/StockTrak/util"
)

// LotBook is the in-memory lot store for one rebuild pass. Lots are held in
// creation order and indexed by symbol so a replay over a large ledger never
// rescans the full set.
type LotBook struct {
	lots     []*Lot
	bySymbol map[string][]*Lot
	bySource map[int64]*Lot
	nextID   int64
}

func NewLotBook() *LotBook {
	return &LotBook{
		bySymbol: make(map[string][]*Lot),
		bySource: make(map[int64]*Lot),
		nextID:   1,
	}
}

// CreateLot opens a new tranche for a BUY transaction. costBase is the full
// tranche cost fixed at creation (price*quantity plus the allocated share of
// fees); discountDays is the jurisdiction holding period for the CGT discount.
func (b *LotBook) CreateLot(buy *Transaction, costBase decimal.Decimal, discountDays int) (*Lot, error) {
	if buy.Side != BUY {
		return nil, fmt.Errorf("transaction %d is not a BUY", buy.ID)
	}
	if _, ok := b.bySource[buy.ID]; ok {
		return nil, fmt.Errorf("transaction %d already has a lot", buy.ID)
	}
	lot := &Lot{
		ID:                    b.nextID,
		Symbol:                buy.Symbol,
		AcquiredAt:            buy.Timestamp,
		OriginalQuantity:      buy.Quantity,
		QuantityRemaining:     buy.Quantity,
		TotalCostBase:         costBase,
		DiscountThresholdDate: buy.Timestamp.AddDate(0, 0, discountDays),
		SourceTransactionID:   buy.ID,
	}
	b.nextID++
	b.lots = append(b.lots, lot)
	b.bySymbol[lot.Symbol] = append(b.bySymbol[lot.Symbol], lot)
	b.bySource[buy.ID] = lot
	return lot, nil
}

// OpenLots returns the symbol's lots with quantity remaining, in creation
// order. When asOf is present, lots acquired after it are excluded.
func (b *LotBook) OpenLots(symbol string, asOf util.Optional[time.Time]) []*Lot {
	var open []*Lot
	for _, lot := range b.bySymbol[symbol] {
		if !lot.Open() {
			continue
		}
		if asOf.Present() && lot.AcquiredAt.After(asOf.MustGet()) {
			continue
		}
		open = append(open, lot)
	}
	return open
}

// OpenQuantity is the total undisposed quantity across the symbol's lots.
func (b *LotBook) OpenQuantity(symbol string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range b.bySymbol[symbol] {
		total = total.Add(lot.QuantityRemaining)
	}
	return total
}

// Decrement consumes qty from a lot. A lot may never go negative; this is
// checked at every decrement, not merely assumed.
func (b *LotBook) Decrement(lotID int64, qty decimal.Decimal) error {
	lot, ok := b.lot(lotID)
	if !ok {
		return fmt.Errorf("lot %d does not exist", lotID)
	}
	if !qty.IsPositive() {
		return fmt.Errorf("lot %d: decrement quantity must be positive, got %s", lotID, qty)
	}
	if qty.GreaterThan(lot.QuantityRemaining) {
		return fmt.Errorf("lot %d: decrement of %s exceeds remaining quantity %s",
			lotID, qty, lot.QuantityRemaining)
	}
	lot.QuantityRemaining = lot.QuantityRemaining.Sub(qty)
	return nil
}

// LotBySource looks up the lot created from a BUY transaction. Source ids are
// the stable way to refer to a lot across rebuilds, since lot ids are
// reassigned every replay.
func (b *LotBook) LotBySource(txnID int64) (*Lot, bool) {
	lot, ok := b.bySource[txnID]
	return lot, ok
}

// Lots returns all lots, open and consumed, in creation order.
func (b *LotBook) Lots() []*Lot {
	return b.lots
}

func (b *LotBook) lot(lotID int64) (*Lot, bool) {
	// ids are dense and 1-based within one rebuild
	idx := int(lotID) - 1
	if idx < 0 || idx >= len(b.lots) {
		return nil, false
	}
	return b.lots[idx], true
}
