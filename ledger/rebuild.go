package ledger

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/Millstreamu/StockTrak/log"
)

// Repository is the persistence collaborator of the rebuild. ListTransactions
// returns the full surviving ledger; ReplaceDerivedState must swap the stored
// lots and disposals in a single all-or-nothing transaction so readers never
// observe a partially rebuilt state.
type Repository interface {
	ListTransactions(ctx context.Context) ([]*Transaction, error)
	ReplaceDerivedState(ctx context.Context, lots []*Lot, disposals []*Disposal) error
}

// Options carries the configuration the replay depends on. It is passed
// explicitly so the matching strategies stay unit-testable in isolation from
// configuration loading.
type Options struct {
	Method        MatchMethod
	FeeAllocation FeeAllocation
	DiscountDays  int
	Precision     int32

	// Selections maps a sell transaction id to its recorded specific-id
	// picks. A sell with a selection always replays as SpecificID,
	// regardless of Method.
	Selections map[int64][]SourceLot
}

// Result is the complete derived state produced by one replay.
type Result struct {
	Lots      []*Lot
	Disposals []*Disposal
}

// Replay recomputes all lots and disposals from the transaction history. It
// is a pure function of its inputs: the same ledger and options always yield
// identical results. On any error the partial result is discarded and the
// error identifies the offending transaction.
func Replay(txs []*Transaction, opts Options) (*Result, error) {
	ordered := make([]*Transaction, len(txs))
	copy(ordered, txs)
	SortTransactions(ordered)

	book := NewLotBook()
	calc := GainCalculator{Precision: opts.Precision}
	var disposals []*Disposal

	for _, tx := range ordered {
		if err := tx.Validate(); err != nil {
			return nil, err
		}
		switch tx.Side {
		case BUY:
			costBase := tx.Price.Mul(tx.Quantity).Add(buyFee(tx.Fees, opts.FeeAllocation))
			if _, err := book.CreateLot(tx, costBase, opts.DiscountDays); err != nil {
				return nil, err
			}
		case SELL:
			slices, err := replaySell(book, calc, tx, opts)
			if err != nil {
				return nil, err
			}
			disposals = append(disposals, slices...)
		default:
			return nil, fmt.Errorf("transaction %d has unsupported side %v", tx.ID, tx.Side)
		}
		log.Fverbosef(os.Stderr, "replayed transaction %d (%s %s %s)\n",
			tx.ID, tx.Side, tx.Quantity, tx.Symbol)
	}
	return &Result{Lots: book.Lots(), Disposals: disposals}, nil
}

func replaySell(book *LotBook, calc GainCalculator, sell *Transaction, opts Options) ([]*Disposal, error) {
	method := opts.Method
	var specific []SpecificLot
	if picks, ok := opts.Selections[sell.ID]; ok {
		method = SpecificID
		specific = make([]SpecificLot, 0, len(picks))
		for _, pick := range picks {
			lot, found := book.LotBySource(pick.BuyTransactionID)
			if !found {
				return nil, &InvalidSpecificIDSelectionError{
					SellTransactionID: sell.ID,
					Reason: fmt.Sprintf("buy transaction %d has no lot at this point in the ledger",
						pick.BuyTransactionID),
				}
			}
			specific = append(specific, SpecificLot{LotID: lot.ID, Quantity: pick.Quantity})
		}
	}

	allocs, err := MatchDisposal(book, sell, method, specific)
	if err != nil {
		return nil, err
	}
	slices, err := calc.SliceDisposals(sell, allocs, sellFee(sell.Fees, opts.FeeAllocation))
	if err != nil {
		return nil, err
	}
	// All slices computed; only now touch the book.
	for _, a := range allocs {
		if err := book.Decrement(a.Lot.ID, a.Quantity); err != nil {
			return nil, fmt.Errorf("sell transaction %d: %w", sell.ID, err)
		}
	}
	return slices, nil
}

func buyFee(fees decimal.Decimal, alloc FeeAllocation) decimal.Decimal {
	switch alloc {
	case FeesBothSides, FeesOnBuys:
		return fees
	case FeesSplit:
		return fees.Div(decimal.NewFromInt(2))
	default:
		return decimal.Zero
	}
}

func sellFee(fees decimal.Decimal, alloc FeeAllocation) decimal.Decimal {
	switch alloc {
	case FeesBothSides, FeesOnSells:
		return fees
	case FeesSplit:
		return fees.Div(decimal.NewFromInt(2))
	default:
		return decimal.Zero
	}
}

// Rebuilder loads the ledger, replays it, and atomically persists the derived
// state. On replay failure nothing is written and the prior persisted state
// stands.
type Rebuilder struct {
	Repo Repository
	Opts Options
}

func (r *Rebuilder) Run(ctx context.Context) (*Result, error) {
	txs, err := r.Repo.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	res, err := Replay(txs, r.Opts)
	if err != nil {
		return nil, err
	}
	if err := r.Repo.ReplaceDerivedState(ctx, res.Lots, res.Disposals); err != nil {
		return nil, fmt.Errorf("persisting derived state: %w", err)
	}
	log.Fverbosef(os.Stderr, "rebuild complete: %d transactions, %d lots, %d disposals\n",
		len(txs), len(res.Lots), len(res.Disposals))
	return res, nil
}
