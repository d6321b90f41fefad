// Package app wires configuration, the SQLite store and the ledger engine
// together for the CLI commands.
package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Millstreamu/StockTrak/config"
	"github.com/Millstreamu/StockTrak/ledger"
	applog "github.com/Millstreamu/StockTrak/log"
	"github.com/Millstreamu/StockTrak/prices"
	"github.com/Millstreamu/StockTrak/rules"
	"github.com/Millstreamu/StockTrak/store"
)

type App struct {
	Cfg        *config.Config
	Store      *store.Store
	ErrPrinter applog.ErrorPrinter

	priceSvc *prices.Service
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	return &App{
		Cfg:        cfg,
		Store:      st,
		ErrPrinter: &applog.StderrErrorPrinter{},
	}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}

func (a *App) rebuildOptions(ctx context.Context) (ledger.Options, error) {
	selections, err := a.Store.ListSelections(ctx)
	if err != nil {
		return ledger.Options{}, err
	}
	return ledger.Options{
		Method:        a.Cfg.MatchMethod(),
		FeeAllocation: a.Cfg.FeeAllocationStrategy(),
		DiscountDays:  a.Cfg.DiscountDays,
		Precision:     a.Cfg.RoundingPlaces,
		Selections:    selections,
	}, nil
}

// Rebuild replays the full ledger and atomically persists the derived state.
func (a *App) Rebuild(ctx context.Context) (*ledger.Result, error) {
	opts, err := a.rebuildOptions(ctx)
	if err != nil {
		return nil, err
	}
	rb := &ledger.Rebuilder{Repo: a.Store, Opts: opts}
	return rb.Run(ctx)
}

// RecordTrade validates and inserts a transaction, then rebuilds. When the
// rebuild rejects the new state (e.g. a sell without enough open lots) the
// insert is compensated so the ledger is left as it was.
func (a *App) RecordTrade(ctx context.Context, tx *ledger.Transaction, picks []ledger.SourceLot) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}
	if len(picks) > 0 && tx.Side != ledger.SELL {
		return 0, fmt.Errorf("specific lot selections only apply to SELL transactions")
	}
	id, err := a.Store.InsertTransaction(ctx, tx)
	if err != nil {
		return 0, err
	}
	if len(picks) > 0 {
		if err := a.Store.SaveSelection(ctx, id, picks); err != nil {
			a.compensateInsert(ctx, id)
			return 0, err
		}
	}
	if _, err := a.Rebuild(ctx); err != nil {
		a.compensateInsert(ctx, id)
		return 0, err
	}
	applog.Verbosef("recorded transaction %d (%s %s %s)\n", id, tx.Side, tx.Quantity, tx.Symbol)
	return id, nil
}

func (a *App) compensateInsert(ctx context.Context, id int64) {
	if err := a.Store.DeleteTransaction(ctx, id); err != nil {
		a.ErrPrinter.F("warning: could not roll back transaction %d: %v\n", id, err)
	}
}

// EditTrade replaces a transaction's fields and rebuilds. A rebuild failure
// (for instance an edit that reorders timestamps and starves a later sell)
// restores the prior row and leaves all derived state untouched.
func (a *App) EditTrade(ctx context.Context, tx *ledger.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	prior, err := a.Store.GetTransaction(ctx, tx.ID)
	if err != nil {
		return err
	}
	if err := a.Store.UpdateTransaction(ctx, tx); err != nil {
		return err
	}
	if _, err := a.Rebuild(ctx); err != nil {
		if restoreErr := a.Store.UpdateTransaction(ctx, prior); restoreErr != nil {
			a.ErrPrinter.F("warning: could not restore transaction %d: %v\n", tx.ID, restoreErr)
		}
		return err
	}
	return nil
}

// DeleteTrade removes a transaction and rebuilds, restoring the row when the
// remaining ledger no longer replays cleanly. Deleting the transaction
// cascades away any derived rows referencing it, so a failed rebuild also
// replays the restored ledger to regenerate them.
func (a *App) DeleteTrade(ctx context.Context, id int64) error {
	prior, err := a.Store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if err := a.Store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	if _, err := a.Rebuild(ctx); err != nil {
		if restoreErr := a.Store.RestoreTransaction(ctx, prior); restoreErr != nil {
			a.ErrPrinter.F("warning: could not restore transaction %d: %v\n", id, restoreErr)
			return err
		}
		// The prior ledger replayed cleanly before, so this cannot fail.
		if _, rebuildErr := a.Rebuild(ctx); rebuildErr != nil {
			a.ErrPrinter.F("warning: rebuild after restore failed: %v\n", rebuildErr)
		}
		return err
	}
	return nil
}

func (a *App) priceService() *prices.Service {
	if a.priceSvc == nil {
		provider := prices.NewHTTPProvider(a.Cfg.Prices.ProviderURL, a.Cfg.Prices.ExchangeSuffixMap)
		a.priceSvc = prices.NewService(provider, a.Cfg.CacheTTL(), a.Cfg.StaleAfter())
	}
	return a.priceSvc
}

// Positions aggregates open lots, with market values when withPrices is set
// and a price provider is configured.
func (a *App) Positions(ctx context.Context, withPrices bool) ([]ledger.Position, map[string]prices.Quote, error) {
	lots, err := a.Store.ListLots(ctx, "")
	if err != nil {
		return nil, nil, err
	}

	var quotes map[string]prices.Quote
	priceMap := make(map[string]decimal.Decimal)
	if withPrices && a.Cfg.Prices.ProviderURL != "" {
		symbols := openSymbols(lots)
		quotes, err = a.priceService().Quotes(ctx, symbols)
		if err != nil {
			// Reports degrade to cost-only rather than failing outright.
			a.ErrPrinter.F("warning: price lookup failed: %v\n", err)
		}
		for symbol, q := range quotes {
			priceMap[symbol] = q.Price
		}
	}
	return ledger.ComputePositions(lots, priceMap), quotes, nil
}

// CGTReport summarizes realized gains by Australian financial year.
func (a *App) CGTReport(ctx context.Context) ([]ledger.YearGains, error) {
	disposals, err := a.Store.ListDisposals(ctx)
	if err != nil {
		return nil, err
	}
	sells, err := a.sellIndex(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.SummarizeByFinancialYear(disposals, sells), nil
}

// DisposalsTable builds the disposal ledger display model.
func (a *App) DisposalsTable(ctx context.Context) (*ledger.RenderTable, error) {
	disposals, err := a.Store.ListDisposals(ctx)
	if err != nil {
		return nil, err
	}
	sells, err := a.sellIndex(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.DisposalsRenderTable(disposals, sells, a.Cfg.RoundingPlaces), nil
}

func (a *App) sellIndex(ctx context.Context) (map[int64]*ledger.Transaction, error) {
	txs, err := a.Store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	sells := make(map[int64]*ledger.Transaction)
	for _, tx := range txs {
		if tx.Side == ledger.SELL {
			sells[tx.ID] = tx
		}
	}
	return sells, nil
}

// EvaluateActionables runs the rule pack over current derived state and
// persists the outcome.
func (a *App) EvaluateActionables(ctx context.Context) ([]*rules.Actionable, error) {
	lots, err := a.Store.ListLots(ctx, "")
	if err != nil {
		return nil, err
	}
	positions, _, err := a.Positions(ctx, true)
	if err != nil {
		return nil, err
	}
	existing, err := a.Store.ListActionables(ctx, "")
	if err != nil {
		return nil, err
	}

	loc, err := a.Cfg.Location()
	if err != nil {
		return nil, err
	}
	evaluator := rules.NewEvaluator(rules.DefaultRules())
	rc := rules.Context{
		AsOf:          evaluator.Now().In(loc),
		Lots:          lots,
		Positions:     positions,
		TargetWeights: a.Cfg.TargetWeights,
		Thresholds:    a.Cfg.Thresholds(),
	}
	actionables := evaluator.Evaluate(rc, existing)
	if err := a.Store.UpsertActionables(ctx, actionables); err != nil {
		return nil, err
	}
	return actionables, nil
}

func openSymbols(lots []*ledger.Lot) []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, lot := range lots {
		if lot.Open() && !seen[lot.Symbol] {
			seen[lot.Symbol] = true
			symbols = append(symbols, lot.Symbol)
		}
	}
	return symbols
}
