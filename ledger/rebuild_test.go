package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool {
	return a.Equal(b)
})

func defaultOpts() Options {
	return Options{
		Method:        FIFO,
		FeeAllocation: FeesBothSides,
		DiscountDays:  365,
		Precision:     2,
	}
}

func TestReplayFIFO(t *testing.T) {
	txs := []*Transaction{
		mkBuy(1, 1, "CSL", "10", "10"),
		mkBuy(2, 2, "CSL", "10", "20"),
		mkSell(3, 10, "CSL", "12", "25"),
	}

	res, err := Replay(txs, defaultOpts())
	require.NoError(t, err)
	require.Len(t, res.Lots, 2)
	require.Len(t, res.Disposals, 2)

	require.True(t, res.Lots[0].QuantityRemaining.Equal(dec("0")))
	require.True(t, res.Lots[1].QuantityRemaining.Equal(dec("8")))

	// 10 @ $10 then 2 @ $20 against $25 proceeds.
	require.True(t, res.Disposals[0].CostBaseAllocated.Equal(dec("100")))
	require.True(t, res.Disposals[0].GainLoss.Equal(dec("150")))
	require.True(t, res.Disposals[1].CostBaseAllocated.Equal(dec("40")))
	require.True(t, res.Disposals[1].GainLoss.Equal(dec("10")))
}

func TestReplayOrdersByTimestampThenID(t *testing.T) {
	// The sell is listed first but happens last; replay must sort.
	txs := []*Transaction{
		mkSell(3, 10, "CSL", "5", "25"),
		mkBuy(1, 1, "CSL", "10", "10"),
	}

	res, err := Replay(txs, defaultOpts())
	require.NoError(t, err)
	require.Len(t, res.Disposals, 1)
	require.True(t, res.Lots[0].QuantityRemaining.Equal(dec("5")))
}

func TestReplayIsDeterministic(t *testing.T) {
	txs := []*Transaction{
		mkBuy(1, 1, "CSL", "10", "10"),
		mkBuy(2, 2, "BHP", "100", "40"),
		mkBuy(3, 3, "CSL", "10", "20"),
		mkSell(4, 20, "CSL", "15", "25"),
		mkSell(5, 30, "BHP", "50", "45"),
	}

	first, err := Replay(txs, defaultOpts())
	require.NoError(t, err)
	second, err := Replay(txs, defaultOpts())
	require.NoError(t, err)

	if diff := cmp.Diff(first, second, decimalComparer); diff != "" {
		t.Errorf("replays differ (-first +second):\n%s", diff)
	}
}

func TestReplayQuantityConservation(t *testing.T) {
	txs := []*Transaction{
		mkBuy(1, 1, "CSL", "10", "10"),
		mkBuy(2, 2, "CSL", "10", "20"),
		mkSell(3, 10, "CSL", "7", "25"),
		mkSell(4, 11, "CSL", "6", "26"),
	}

	res, err := Replay(txs, defaultOpts())
	require.NoError(t, err)

	// original quantity == remaining + disposed, per lot.
	disposedByLot := make(map[int64]decimal.Decimal)
	for _, d := range res.Disposals {
		prev, ok := disposedByLot[d.LotID]
		if !ok {
			prev = decimal.Zero
		}
		disposedByLot[d.LotID] = prev.Add(d.Quantity)
	}
	for _, lot := range res.Lots {
		disposed, ok := disposedByLot[lot.ID]
		if !ok {
			disposed = decimal.Zero
		}
		require.True(t, lot.OriginalQuantity.Equal(lot.QuantityRemaining.Add(disposed)),
			"lot %d: %s != %s + %s", lot.ID, lot.OriginalQuantity, lot.QuantityRemaining, disposed)
	}
}

func TestReplayInsufficientLotsAborts(t *testing.T) {
	txs := []*Transaction{
		mkBuy(1, 1, "CSL", "10", "10"),
		mkSell(2, 10, "CSL", "15", "25"),
	}

	res, err := Replay(txs, defaultOpts())
	require.Nil(t, res)

	var insufficientErr *InsufficientLotsError
	require.True(t, errors.As(err, &insufficientErr))
	require.Equal(t, int64(2), insufficientErr.SellTransactionID)
}

func TestReplaySpecificSelection(t *testing.T) {
	txs := []*Transaction{
		mkBuy(1, 1, "CSL", "10", "10"),
		mkBuy(2, 2, "CSL", "10", "20"),
		mkSell(3, 10, "CSL", "5", "25"),
	}
	opts := defaultOpts()
	opts.Selections = map[int64][]SourceLot{
		3: {{BuyTransactionID: 2, Quantity: dec("5")}},
	}

	res, err := Replay(txs, opts)
	require.NoError(t, err)
	require.Len(t, res.Disposals, 1)

	// The selection overrides FIFO: the later, dearer lot is consumed.
	require.True(t, res.Lots[0].QuantityRemaining.Equal(dec("10")))
	require.True(t, res.Lots[1].QuantityRemaining.Equal(dec("5")))
	require.True(t, res.Disposals[0].CostBaseAllocated.Equal(dec("100")))
}

func TestReplaySelectionForUnknownBuyFails(t *testing.T) {
	txs := []*Transaction{
		mkBuy(1, 1, "CSL", "10", "10"),
		mkSell(2, 10, "CSL", "5", "25"),
	}
	opts := defaultOpts()
	opts.Selections = map[int64][]SourceLot{
		2: {{BuyTransactionID: 99, Quantity: dec("5")}},
	}

	res, err := Replay(txs, opts)
	require.Nil(t, res)

	var selErr *InvalidSpecificIDSelectionError
	require.True(t, errors.As(err, &selErr))
	require.Equal(t, int64(2), selErr.SellTransactionID)
}

func TestReplayFeeAllocation(t *testing.T) {
	buy := mkBuy(1, 1, "CSL", "10", "10")
	buy.Fees = dec("20")
	sell := mkSell(2, 10, "CSL", "10", "15")
	sell.Fees = dec("10")
	txs := []*Transaction{buy, sell}

	cases := []struct {
		alloc    FeeAllocation
		costBase string
		proceeds string
	}{
		{FeesBothSides, "120", "140"},
		{FeesOnBuys, "120", "150"},
		{FeesOnSells, "100", "140"},
		{FeesSplit, "110", "145"},
	}

	for _, tc := range cases {
		t.Run(tc.alloc.String(), func(t *testing.T) {
			opts := defaultOpts()
			opts.FeeAllocation = tc.alloc
			res, err := Replay(txs, opts)
			require.NoError(t, err)
			require.Len(t, res.Disposals, 1)
			require.True(t, res.Disposals[0].CostBaseAllocated.Equal(dec(tc.costBase)),
				"cost base: got %s", res.Disposals[0].CostBaseAllocated)
			require.True(t, res.Disposals[0].Proceeds.Equal(dec(tc.proceeds)),
				"proceeds: got %s", res.Disposals[0].Proceeds)
		})
	}
}

func TestReplayRejectsInvalidTransactions(t *testing.T) {
	bad := mkBuy(1, 1, "CSL", "0", "10")
	res, err := Replay([]*Transaction{bad}, defaultOpts())
	require.Nil(t, res)

	var qtyErr *NonPositiveQuantityError
	require.True(t, errors.As(err, &qtyErr))
	require.Equal(t, int64(1), qtyErr.TransactionID)
}

// fakeRepo records what the rebuilder persists.
type fakeRepo struct {
	txs       []*Transaction
	replaced  bool
	lots      []*Lot
	disposals []*Disposal
	listErr   error
}

func (r *fakeRepo) ListTransactions(ctx context.Context) ([]*Transaction, error) {
	return r.txs, r.listErr
}

func (r *fakeRepo) ReplaceDerivedState(ctx context.Context, lots []*Lot, disposals []*Disposal) error {
	r.replaced = true
	r.lots = lots
	r.disposals = disposals
	return nil
}

func TestRebuilderPersistsReplayOutput(t *testing.T) {
	repo := &fakeRepo{txs: []*Transaction{
		mkBuy(1, 1, "CSL", "10", "10"),
		mkSell(2, 10, "CSL", "4", "25"),
	}}
	rb := &Rebuilder{Repo: repo, Opts: defaultOpts()}

	res, err := rb.Run(context.Background())
	require.NoError(t, err)
	require.True(t, repo.replaced)
	require.Equal(t, res.Lots, repo.lots)
	require.Equal(t, res.Disposals, repo.disposals)
}

func TestRebuilderDoesNotPersistOnReplayFailure(t *testing.T) {
	repo := &fakeRepo{txs: []*Transaction{
		mkSell(1, 10, "CSL", "4", "25"),
	}}
	rb := &Rebuilder{Repo: repo, Opts: defaultOpts()}

	res, err := rb.Run(context.Background())
	require.Error(t, err)
	require.Nil(t, res)
	require.False(t, repo.replaced)
}

func TestRebuilderSurfacesListError(t *testing.T) {
	repo := &fakeRepo{listErr: fmt.Errorf("disk gone")}
	rb := &Rebuilder{Repo: repo, Opts: defaultOpts()}

	_, err := rb.Run(context.Background())
	require.Error(t, err)
	require.False(t, repo.replaced)
}
