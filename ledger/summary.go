package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Millstreamu/StockTrak/date"
	"github.com/Millstreamu/StockTrak/util"
)

// Position aggregates a symbol's open lots. Market value and weight are only
// present when a current price was supplied for the symbol.
type Position struct {
	Symbol      string
	Quantity    decimal.Decimal
	CostBase    decimal.Decimal
	AvgCost     decimal.Decimal
	MarketValue util.Optional[decimal.Decimal]
	Weight      util.Optional[decimal.Decimal]
}

// ComputePositions rolls open lots up per symbol, sorted by symbol. Prices
// are optional; weights are relative to the total market value of the priced
// positions.
func ComputePositions(lots []*Lot, priceBySymbol map[string]decimal.Decimal) []Position {
	type agg struct {
		qty  decimal.Decimal
		cost decimal.Decimal
	}
	aggs := make(map[string]*agg)
	for _, lot := range lots {
		if !lot.Open() {
			continue
		}
		a, ok := aggs[lot.Symbol]
		if !ok {
			a = &agg{qty: decimal.Zero, cost: decimal.Zero}
			aggs[lot.Symbol] = a
		}
		a.qty = a.qty.Add(lot.QuantityRemaining)
		// Undisposed share of the tranche's fixed cost base.
		a.cost = a.cost.Add(
			lot.TotalCostBase.Mul(lot.QuantityRemaining).Div(lot.OriginalQuantity))
	}

	positions := make([]Position, 0, len(aggs))
	totalMV := decimal.Zero
	for symbol, a := range aggs {
		p := Position{
			Symbol:   symbol,
			Quantity: a.qty,
			CostBase: a.cost,
			AvgCost:  a.cost.Div(a.qty),
		}
		if price, ok := priceBySymbol[symbol]; ok {
			mv := price.Mul(a.qty)
			p.MarketValue = util.NewOptional(mv)
			totalMV = totalMV.Add(mv)
		}
		positions = append(positions, p)
	}
	if totalMV.IsPositive() {
		for i := range positions {
			if positions[i].MarketValue.Present() {
				positions[i].Weight.Set(positions[i].MarketValue.MustGet().Div(totalMV))
			}
		}
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})
	return positions
}

// YearGains totals realized outcomes for one Australian financial year.
type YearGains struct {
	Year                  date.FinancialYear
	Gains                 decimal.Decimal
	Losses                decimal.Decimal
	DiscountEligibleGains decimal.Decimal
	Net                   decimal.Decimal
}

// SummarizeByFinancialYear groups disposals by the financial year of their
// sell transaction, sorted by year ascending.
func SummarizeByFinancialYear(disposals []*Disposal, sells map[int64]*Transaction) []YearGains {
	byYear := make(map[date.FinancialYear]*YearGains)
	for _, d := range disposals {
		sell, ok := sells[d.SellTransactionID]
		if !ok {
			continue
		}
		fy := date.FinancialYearOf(sell.Timestamp)
		yg, ok := byYear[fy]
		if !ok {
			yg = &YearGains{
				Year:                  fy,
				Gains:                 decimal.Zero,
				Losses:                decimal.Zero,
				DiscountEligibleGains: decimal.Zero,
				Net:                   decimal.Zero,
			}
			byYear[fy] = yg
		}
		if d.GainLoss.IsNegative() {
			yg.Losses = yg.Losses.Add(d.GainLoss)
		} else {
			yg.Gains = yg.Gains.Add(d.GainLoss)
			if d.EligibleForDiscount {
				yg.DiscountEligibleGains = yg.DiscountEligibleGains.Add(d.GainLoss)
			}
		}
		yg.Net = yg.Net.Add(d.GainLoss)
	}

	years := make([]YearGains, 0, len(byYear))
	for _, yg := range byYear {
		years = append(years, *yg)
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Year < years[j].Year })
	return years
}
