package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Millstreamu/StockTrak/util"
)

type _PrintHelper struct {
	Precision int32
}

func (h _PrintHelper) CurrStr(val decimal.Decimal) string {
	return val.StringFixed(h.Precision)
}

func (h _PrintHelper) DollarStr(val decimal.Decimal) string {
	return "$" + h.CurrStr(val)
}

func (h _PrintHelper) PlusMinusDollar(val decimal.Decimal) string {
	if val.IsNegative() {
		return fmt.Sprintf("-$%s", h.CurrStr(val.Neg()))
	}
	return fmt.Sprintf("$%s", h.CurrStr(val))
}

func (h _PrintHelper) OptDollarStr(val util.Optional[decimal.Decimal]) string {
	if !val.Present() {
		return "-"
	}
	return h.DollarStr(val.MustGet())
}

func strOrDash(useStr bool, str string) string {
	return util.Tern(useStr, str, "-")
}

// RenderTable is the output model shared by the std, CSV and Markdown
// writers.
type RenderTable struct {
	Header []string
	Rows   [][]string
	Footer []string
	Notes  []string
	Errors []error
}

// LotsRenderTable lists every lot, consumed ones included, in creation order.
func LotsRenderTable(lots []*Lot, precision int32) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"Lot", "Symbol", "Acquired", "Original Qty",
		"Remaining", "Cost Base", "Unit Cost", "Discount From", "Source Txn"}

	ph := _PrintHelper{Precision: precision}
	for _, lot := range lots {
		table.Rows = append(table.Rows, []string{
			fmt.Sprintf("%d", lot.ID),
			lot.Symbol,
			lot.AcquiredAt.Format("2006-01-02"),
			lot.OriginalQuantity.String(),
			lot.QuantityRemaining.String(),
			ph.DollarStr(lot.TotalCostBase),
			ph.DollarStr(lot.UnitCost()),
			lot.DiscountThresholdDate.Format("2006-01-02"),
			fmt.Sprintf("%d", lot.SourceTransactionID),
		})
	}
	return table
}

// DisposalsRenderTable lists disposals in replay order with running totals.
func DisposalsRenderTable(disposals []*Disposal, sells map[int64]*Transaction, precision int32) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"Sell Txn", "Date", "Symbol", "Lot", "Qty",
		"Proceeds", "Cost Base", "Gain (Loss)", "Discount"}

	ph := _PrintHelper{Precision: precision}
	totalGain := decimal.Zero
	sawDiscount := false
	for _, d := range disposals {
		sell := sells[d.SellTransactionID]
		dateStr := "-"
		symbol := "-"
		if sell != nil {
			dateStr = sell.Timestamp.Format("2006-01-02")
			symbol = sell.Symbol
		}
		totalGain = totalGain.Add(d.GainLoss)
		sawDiscount = sawDiscount || d.EligibleForDiscount
		table.Rows = append(table.Rows, []string{
			fmt.Sprintf("%d", d.SellTransactionID),
			dateStr,
			symbol,
			fmt.Sprintf("%d", d.LotID),
			d.Quantity.String(),
			ph.DollarStr(d.Proceeds),
			ph.DollarStr(d.CostBaseAllocated),
			ph.PlusMinusDollar(d.GainLoss),
			strOrDash(d.EligibleForDiscount, "yes *"),
		})
	}
	table.Footer = []string{"", "", "", "", "", "", "Total",
		ph.PlusMinusDollar(totalGain), ""}
	if sawDiscount {
		table.Notes = append(table.Notes,
			" * Held past the CGT discount threshold at the time of sale")
	}
	return table
}

// PositionsRenderTable lists open positions with optional market values.
func PositionsRenderTable(positions []Position, precision int32) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"Symbol", "Qty", "Avg Cost", "Cost Base",
		"Market Value", "Weight"}

	ph := _PrintHelper{Precision: precision}
	totalCost := decimal.Zero
	totalMV := decimal.Zero
	anyMV := false
	for _, p := range positions {
		weightStr := "-"
		if p.Weight.Present() {
			weightStr = p.Weight.MustGet().Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
		}
		if p.MarketValue.Present() {
			totalMV = totalMV.Add(p.MarketValue.MustGet())
			anyMV = true
		}
		totalCost = totalCost.Add(p.CostBase)
		table.Rows = append(table.Rows, []string{
			p.Symbol,
			p.Quantity.String(),
			ph.DollarStr(p.AvgCost),
			ph.DollarStr(p.CostBase),
			ph.OptDollarStr(p.MarketValue),
			weightStr,
		})
	}
	table.Footer = []string{"Total", "", "", ph.DollarStr(totalCost),
		strOrDash(anyMV, ph.DollarStr(totalMV)), ""}
	return table
}

/*
GainsByYearRenderTable renders to this:
| Year      | Gains   | Losses  | Discountable | Net     |
+-----------+---------+---------+--------------+---------+
| FY2023-24 | xxxx.xx | xxxx.xx | xxxx.xx      | xxxx.xx |
*/
func GainsByYearRenderTable(years []YearGains, precision int32) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"Year", "Gains", "Losses", "Discountable", "Net"}

	ph := _PrintHelper{Precision: precision}
	net := decimal.Zero
	for _, yg := range years {
		net = net.Add(yg.Net)
		table.Rows = append(table.Rows, []string{
			yg.Year.String(),
			ph.PlusMinusDollar(yg.Gains),
			ph.PlusMinusDollar(yg.Losses),
			ph.PlusMinusDollar(yg.DiscountEligibleGains),
			ph.PlusMinusDollar(yg.Net),
		})
	}
	table.Footer = []string{"Since inception", "", "", "", ph.PlusMinusDollar(net)}
	table.Notes = append(table.Notes,
		" Discountable gains are gross, before applying the CGT discount rate")
	return table
}

// TransactionsRenderTable lists the raw ledger in replay order.
func TransactionsRenderTable(txs []*Transaction, precision int32) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"Txn", "Date", "Side", "Symbol", "Qty", "Price",
		"Fees", "Broker Ref", "Notes"}

	ph := _PrintHelper{Precision: precision}
	for _, tx := range txs {
		table.Rows = append(table.Rows, []string{
			fmt.Sprintf("%d", tx.ID),
			tx.Timestamp.Format("2006-01-02"),
			tx.Side.String(),
			tx.Symbol,
			tx.Quantity.String(),
			ph.DollarStr(tx.Price),
			strOrDash(!tx.Fees.IsZero(), ph.DollarStr(tx.Fees)),
			strOrDash(tx.BrokerRef != "", tx.BrokerRef),
			strOrDash(tx.Notes != "", tx.Notes),
		})
	}
	return table
}
