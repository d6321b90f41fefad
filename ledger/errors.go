package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InsufficientLotsError reports a sell whose quantity exceeds the total open
// quantity for its symbol at the point of replay. It aborts the whole rebuild.
type InsufficientLotsError struct {
	SellTransactionID int64
	Symbol            string
	Requested         decimal.Decimal
	Available         decimal.Decimal
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf(
		"sell transaction %d of %s shares of %s exceeds the open lot quantity (%s)",
		e.SellTransactionID, e.Requested, e.Symbol, e.Available)
}

// InvalidSpecificIDSelectionError reports a caller-supplied specific-lot
// selection that cannot be applied to the sell it accompanies.
type InvalidSpecificIDSelectionError struct {
	SellTransactionID int64
	Reason            string
}

func (e *InvalidSpecificIDSelectionError) Error() string {
	return fmt.Sprintf("specific lot selection for sell transaction %d: %s",
		e.SellTransactionID, e.Reason)
}

type NonPositiveQuantityError struct {
	TransactionID int64
	Symbol        string
	Quantity      decimal.Decimal
}

func (e *NonPositiveQuantityError) Error() string {
	return fmt.Sprintf("transaction %d on %s has non-positive quantity (%s)",
		e.TransactionID, e.Symbol, e.Quantity)
}

type NonPositivePriceError struct {
	TransactionID int64
	Symbol        string
	Price         decimal.Decimal
}

func (e *NonPositivePriceError) Error() string {
	return fmt.Sprintf("transaction %d on %s has non-positive price (%s)",
		e.TransactionID, e.Symbol, e.Price)
}

// RoundingReconciliationError signals that rounded per-slice allocations did
// not sum back to the sell's totals. This is a calculator invariant check and
// never expected in correct operation.
type RoundingReconciliationError struct {
	SellTransactionID int64
	Field             string
	Want              decimal.Decimal
	Got               decimal.Decimal
}

func (e *RoundingReconciliationError) Error() string {
	return fmt.Sprintf(
		"sell transaction %d: allocated %s (%s) does not reconcile with the sell total (%s)",
		e.SellTransactionID, e.Field, e.Got, e.Want)
}
