package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Side int

const (
	BUY Side = iota
	SELL
)

func (s Side) String() string {
	switch s {
	case BUY:
		return "BUY"
	case SELL:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(s) {
	case "BUY":
		return BUY, nil
	case "SELL":
		return SELL, nil
	default:
		return 0, fmt.Errorf("unknown transaction side: %q", s)
	}
}

// MatchMethod selects which open lots a sell consumes.
type MatchMethod int

const (
	// FIFO consumes lots oldest-first.
	FIFO MatchMethod = iota
	// HIFO consumes lots with the highest unit cost first, minimizing the
	// realized gain.
	HIFO
	// SpecificID consumes exactly the lots the caller nominated.
	SpecificID
)

func (m MatchMethod) String() string {
	switch m {
	case FIFO:
		return "FIFO"
	case HIFO:
		return "HIFO"
	case SpecificID:
		return "SPECIFIC_ID"
	default:
		return "UNKNOWN"
	}
}

func ParseMatchMethod(s string) (MatchMethod, error) {
	switch strings.ToUpper(s) {
	case "FIFO":
		return FIFO, nil
	case "HIFO":
		return HIFO, nil
	case "SPECIFIC_ID":
		return SpecificID, nil
	default:
		return 0, fmt.Errorf("unknown lot matching method: %q", s)
	}
}

// FeeAllocation selects which side of a trade absorbs its brokerage fees.
type FeeAllocation int

const (
	// FeesBothSides puts buy fees into the lot cost base and nets sell fees
	// out of proceeds.
	FeesBothSides FeeAllocation = iota
	// FeesOnBuys only capitalizes buy-side fees; sell fees are ignored.
	FeesOnBuys
	// FeesOnSells only nets sell-side fees; buy fees are ignored.
	FeesOnSells
	// FeesSplit applies half of each trade's fees to its own side.
	FeesSplit
)

func (f FeeAllocation) String() string {
	switch f {
	case FeesBothSides:
		return "BOTH"
	case FeesOnBuys:
		return "BUY"
	case FeesOnSells:
		return "SELL"
	case FeesSplit:
		return "SPLIT"
	default:
		return "UNKNOWN"
	}
}

func ParseFeeAllocation(s string) (FeeAllocation, error) {
	switch strings.ToUpper(s) {
	case "BOTH":
		return FeesBothSides, nil
	case "BUY":
		return FeesOnBuys, nil
	case "SELL":
		return FeesOnSells, nil
	case "SPLIT":
		return FeesSplit, nil
	default:
		return 0, fmt.Errorf("unknown fee allocation strategy: %q", s)
	}
}

// Transaction is one immutable trade event in the ledger. Edits and deletes
// go through the store and force a full derived-state rebuild.
type Transaction struct {
	ID        int64
	Timestamp time.Time
	Side      Side
	Symbol    string
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Fees      decimal.Decimal
	BrokerRef string
	Exchange  string
	Notes     string
}

// Validate rejects malformed transactions before they enter the ledger.
func (t *Transaction) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("transaction %d has no symbol", t.ID)
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("transaction %d on %s has no timestamp", t.ID, t.Symbol)
	}
	if !t.Quantity.IsPositive() {
		return &NonPositiveQuantityError{TransactionID: t.ID, Symbol: t.Symbol, Quantity: t.Quantity}
	}
	if !t.Price.IsPositive() {
		return &NonPositivePriceError{TransactionID: t.ID, Symbol: t.Symbol, Price: t.Price}
	}
	if t.Fees.IsNegative() {
		return fmt.Errorf("transaction %d on %s has negative fees (%s)", t.ID, t.Symbol, t.Fees)
	}
	return nil
}

// SortTransactions orders transactions by (timestamp, id) ascending, the
// replay order of the rebuild.
func SortTransactions(txs []*Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Timestamp.Equal(txs[j].Timestamp) {
			return txs[i].Timestamp.Before(txs[j].Timestamp)
		}
		return txs[i].ID < txs[j].ID
	})
}

// Lot is a tranche of shares acquired by a single BUY. Created exactly once
// per BUY during a rebuild; only QuantityRemaining ever changes afterwards,
// and only downwards. A fully consumed lot is retained for audit history.
type Lot struct {
	ID                    int64
	Symbol                string
	AcquiredAt            time.Time
	OriginalQuantity      decimal.Decimal
	QuantityRemaining     decimal.Decimal
	TotalCostBase         decimal.Decimal
	DiscountThresholdDate time.Time
	SourceTransactionID   int64
}

// UnitCost is the acquisition cost per share over the full original tranche.
// HIFO ordering is defined over this value.
func (l *Lot) UnitCost() decimal.Decimal {
	return l.TotalCostBase.Div(l.OriginalQuantity)
}

func (l *Lot) Open() bool {
	return l.QuantityRemaining.IsPositive()
}

// Disposal records one lot (or part of one) being consumed by one sell.
type Disposal struct {
	SellTransactionID   int64
	LotID               int64
	Quantity            decimal.Decimal
	Proceeds            decimal.Decimal
	CostBaseAllocated   decimal.Decimal
	GainLoss            decimal.Decimal
	EligibleForDiscount bool
}
