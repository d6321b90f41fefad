package store

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	side TEXT NOT NULL CHECK (side IN ('BUY','SELL')),
	symbol TEXT NOT NULL,
	quantity TEXT NOT NULL,
	price TEXT NOT NULL,
	fees TEXT NOT NULL DEFAULT '0',
	broker_ref TEXT NOT NULL DEFAULT '',
	exchange TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS lots (
	id INTEGER PRIMARY KEY,
	symbol TEXT NOT NULL,
	acquired_at TEXT NOT NULL,
	original_qty TEXT NOT NULL,
	qty_remaining TEXT NOT NULL,
	total_cost_base TEXT NOT NULL,
	discount_threshold TEXT NOT NULL,
	source_txn_id INTEGER NOT NULL REFERENCES transactions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS disposals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sell_txn_id INTEGER NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
	lot_id INTEGER NOT NULL REFERENCES lots(id) ON DELETE CASCADE,
	quantity TEXT NOT NULL,
	proceeds TEXT NOT NULL,
	cost_base_alloc TEXT NOT NULL,
	gain_loss TEXT NOT NULL,
	eligible_for_discount INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS lot_selections (
	sell_txn_id INTEGER NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
	buy_txn_id INTEGER NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
	quantity TEXT NOT NULL,
	seq INTEGER NOT NULL,
	PRIMARY KEY (sell_txn_id, buy_txn_id)
);

CREATE TABLE IF NOT EXISTS actionables (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	symbol TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open',
	context TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	snoozed_until TEXT
);

CREATE INDEX IF NOT EXISTS idx_lots_symbol ON lots(symbol);
CREATE INDEX IF NOT EXISTS idx_disposals_sell ON disposals(sell_txn_id);
CREATE INDEX IF NOT EXISTS idx_disposals_lot ON disposals(lot_id);
`
