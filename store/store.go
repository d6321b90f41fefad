package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/Millstreamu/StockTrak/ledger"
)

const timeFormat = time.RFC3339Nano

// Store is the SQLite-backed ledger repository. Transactions are the source
// of truth; lots and disposals are derived state, replaced wholesale by each
// rebuild inside a single SQL transaction.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}
	// The rebuild holds exclusive write access for its whole replace; a
	// single connection keeps sqlite's locking semantics simple.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- transactions ---------------------------------------------------------

func (s *Store) InsertTransaction(ctx context.Context, t *ledger.Transaction) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions
		 (timestamp, side, symbol, quantity, price, fees, broker_ref, exchange, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Timestamp.Format(timeFormat), t.Side.String(), t.Symbol,
		t.Quantity.String(), t.Price.String(), t.Fees.String(),
		t.BrokerRef, t.Exchange, t.Notes)
	if err != nil {
		return 0, fmt.Errorf("inserting transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted transaction id: %w", err)
	}
	t.ID = id
	return id, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t *ledger.Transaction) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET timestamp = ?, side = ?, symbol = ?, quantity = ?,
		 price = ?, fees = ?, broker_ref = ?, exchange = ?, notes = ? WHERE id = ?`,
		t.Timestamp.Format(timeFormat), t.Side.String(), t.Symbol,
		t.Quantity.String(), t.Price.String(), t.Fees.String(),
		t.BrokerRef, t.Exchange, t.Notes, t.ID)
	if err != nil {
		return fmt.Errorf("updating transaction %d: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("transaction %d does not exist", t.ID)
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting transaction %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("transaction %d does not exist", id)
	}
	return nil
}

// RestoreTransaction re-inserts a previously deleted row with its original
// id, so compensating a failed delete preserves replay order.
func (s *Store) RestoreTransaction(ctx context.Context, t *ledger.Transaction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions
		 (id, timestamp, side, symbol, quantity, price, fees, broker_ref, exchange, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Timestamp.Format(timeFormat), t.Side.String(), t.Symbol,
		t.Quantity.String(), t.Price.String(), t.Fees.String(),
		t.BrokerRef, t.Exchange, t.Notes)
	if err != nil {
		return fmt.Errorf("restoring transaction %d: %w", t.ID, err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*ledger.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, timestamp, side, symbol, quantity, price, fees, broker_ref, exchange, notes
		 FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction %d does not exist", id)
	}
	return t, err
}

// ListTransactions returns the full ledger in (timestamp, id) replay order.
func (s *Store) ListTransactions(ctx context.Context) ([]*ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, side, symbol, quantity, price, fees, broker_ref, exchange, notes
		 FROM transactions ORDER BY timestamp, id`)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (*ledger.Transaction, error) {
	var t ledger.Transaction
	var ts, side, qty, price, fees string
	err := row.Scan(&t.ID, &ts, &side, &t.Symbol, &qty, &price, &fees,
		&t.BrokerRef, &t.Exchange, &t.Notes)
	if err != nil {
		return nil, err
	}
	if t.Timestamp, err = time.Parse(timeFormat, ts); err != nil {
		return nil, fmt.Errorf("transaction %d has bad timestamp %q: %w", t.ID, ts, err)
	}
	if t.Side, err = ledger.ParseSide(side); err != nil {
		return nil, fmt.Errorf("transaction %d: %w", t.ID, err)
	}
	if t.Quantity, err = decimal.NewFromString(qty); err != nil {
		return nil, fmt.Errorf("transaction %d has bad quantity %q: %w", t.ID, qty, err)
	}
	if t.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("transaction %d has bad price %q: %w", t.ID, price, err)
	}
	if t.Fees, err = decimal.NewFromString(fees); err != nil {
		return nil, fmt.Errorf("transaction %d has bad fees %q: %w", t.ID, fees, err)
	}
	return &t, nil
}

// --- derived state --------------------------------------------------------

// ReplaceDerivedState swaps the stored lots and disposals for the given set
// in one SQL transaction. Readers never observe a partially rebuilt state;
// on error the previous state stands untouched.
func (s *Store) ReplaceDerivedState(ctx context.Context, lots []*ledger.Lot, disposals []*ledger.Disposal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM disposals`); err != nil {
		return fmt.Errorf("clearing disposals: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM lots`); err != nil {
		return fmt.Errorf("clearing lots: %w", err)
	}
	for _, lot := range lots {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO lots
			 (id, symbol, acquired_at, original_qty, qty_remaining, total_cost_base,
			  discount_threshold, source_txn_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			lot.ID, lot.Symbol, lot.AcquiredAt.Format(timeFormat),
			lot.OriginalQuantity.String(), lot.QuantityRemaining.String(),
			lot.TotalCostBase.String(), lot.DiscountThresholdDate.Format(timeFormat),
			lot.SourceTransactionID)
		if err != nil {
			return fmt.Errorf("inserting lot %d: %w", lot.ID, err)
		}
	}
	for _, d := range disposals {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO disposals
			 (sell_txn_id, lot_id, quantity, proceeds, cost_base_alloc, gain_loss,
			  eligible_for_discount)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			d.SellTransactionID, d.LotID, d.Quantity.String(), d.Proceeds.String(),
			d.CostBaseAllocated.String(), d.GainLoss.String(),
			boolToInt(d.EligibleForDiscount))
		if err != nil {
			return fmt.Errorf("inserting disposal for sell %d lot %d: %w",
				d.SellTransactionID, d.LotID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) ListLots(ctx context.Context, symbol string) ([]*ledger.Lot, error) {
	query := `SELECT id, symbol, acquired_at, original_qty, qty_remaining,
	          total_cost_base, discount_threshold, source_txn_id FROM lots`
	var args []interface{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing lots: %w", err)
	}
	defer rows.Close()

	var lots []*ledger.Lot
	for rows.Next() {
		var lot ledger.Lot
		var acquired, origQty, remQty, costBase, threshold string
		err := rows.Scan(&lot.ID, &lot.Symbol, &acquired, &origQty, &remQty,
			&costBase, &threshold, &lot.SourceTransactionID)
		if err != nil {
			return nil, err
		}
		if lot.AcquiredAt, err = time.Parse(timeFormat, acquired); err != nil {
			return nil, fmt.Errorf("lot %d has bad acquired_at %q: %w", lot.ID, acquired, err)
		}
		if lot.DiscountThresholdDate, err = time.Parse(timeFormat, threshold); err != nil {
			return nil, fmt.Errorf("lot %d has bad discount_threshold %q: %w", lot.ID, threshold, err)
		}
		if lot.OriginalQuantity, err = decimal.NewFromString(origQty); err != nil {
			return nil, err
		}
		if lot.QuantityRemaining, err = decimal.NewFromString(remQty); err != nil {
			return nil, err
		}
		if lot.TotalCostBase, err = decimal.NewFromString(costBase); err != nil {
			return nil, err
		}
		lots = append(lots, &lot)
	}
	return lots, rows.Err()
}

// ListDisposals returns disposals in replay order.
func (s *Store) ListDisposals(ctx context.Context) ([]*ledger.Disposal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sell_txn_id, lot_id, quantity, proceeds, cost_base_alloc,
		 gain_loss, eligible_for_discount FROM disposals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing disposals: %w", err)
	}
	defer rows.Close()

	var disposals []*ledger.Disposal
	for rows.Next() {
		var d ledger.Disposal
		var qty, proceeds, cost, gain string
		var eligible int
		err := rows.Scan(&d.SellTransactionID, &d.LotID, &qty, &proceeds,
			&cost, &gain, &eligible)
		if err != nil {
			return nil, err
		}
		if d.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if d.Proceeds, err = decimal.NewFromString(proceeds); err != nil {
			return nil, err
		}
		if d.CostBaseAllocated, err = decimal.NewFromString(cost); err != nil {
			return nil, err
		}
		if d.GainLoss, err = decimal.NewFromString(gain); err != nil {
			return nil, err
		}
		d.EligibleForDiscount = eligible != 0
		disposals = append(disposals, &d)
	}
	return disposals, rows.Err()
}

// --- specific-id selections -----------------------------------------------

// SaveSelection records the durable specific-id picks for a sell. Selections
// reference the originating BUY transactions, which stay valid across
// rebuilds.
func (s *Store) SaveSelection(ctx context.Context, sellID int64, picks []ledger.SourceLot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning selection save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM lot_selections WHERE sell_txn_id = ?`, sellID); err != nil {
		return fmt.Errorf("clearing selections for sell %d: %w", sellID, err)
	}
	for seq, pick := range picks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO lot_selections (sell_txn_id, buy_txn_id, quantity, seq)
			 VALUES (?, ?, ?, ?)`,
			sellID, pick.BuyTransactionID, pick.Quantity.String(), seq)
		if err != nil {
			return fmt.Errorf("saving selection for sell %d: %w", sellID, err)
		}
	}
	return tx.Commit()
}

// ListSelections returns all recorded specific-id selections keyed by sell
// transaction id, each in its recorded order.
func (s *Store) ListSelections(ctx context.Context) (map[int64][]ledger.SourceLot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sell_txn_id, buy_txn_id, quantity FROM lot_selections
		 ORDER BY sell_txn_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("listing selections: %w", err)
	}
	defer rows.Close()

	selections := make(map[int64][]ledger.SourceLot)
	for rows.Next() {
		var sellID, buyID int64
		var qty string
		if err := rows.Scan(&sellID, &buyID, &qty); err != nil {
			return nil, err
		}
		q, err := decimal.NewFromString(qty)
		if err != nil {
			return nil, err
		}
		selections[sellID] = append(selections[sellID],
			ledger.SourceLot{BuyTransactionID: buyID, Quantity: q})
	}
	return selections, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
