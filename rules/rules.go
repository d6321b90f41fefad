// Package rules evaluates read-only actionable rules over rebuilt ledger
// state. Rules never mutate lots or disposals; they only produce reminders.
package rules

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Millstreamu/StockTrak/ledger"
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusSnoozed   Status = "snoozed"
	StatusDismissed Status = "dismissed"
	StatusDone      Status = "done"
)

// Actionable is a persisted reminder produced by a rule evaluation.
type Actionable struct {
	ID           uuid.UUID
	Type         string
	Symbol       string
	Message      string
	Status       Status
	Context      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	SnoozedUntil *time.Time
}

// Thresholds are the tunable rule limits, passed in from configuration.
type Thresholds struct {
	CGTWindowDays      int
	OverweightBand     float64
	ConcentrationLimit float64
	LossThresholdPct   float64
}

// Context is the snapshot a rule evaluation reads. All fields are derived
// state; rules have no access to the ledger itself.
type Context struct {
	AsOf          time.Time
	Lots          []*ledger.Lot
	Positions     []ledger.Position
	TargetWeights map[string]float64
	Thresholds    Thresholds
}

// Candidate is one rule's proposed actionable.
type Candidate struct {
	Type    string
	Symbol  string
	Message string
	Context string
}

type Rule func(Context) []Candidate

// DefaultRules is the starter rule pack.
func DefaultRules() []Rule {
	return []Rule{CGTWindowRule, ConcentrationRule, OverweightRule, LossThresholdRule}
}

// CGTWindowRule flags open lots whose discount threshold falls within the
// configured window, so a planned sale can be held back to qualify.
func CGTWindowRule(rc Context) []Candidate {
	if rc.Thresholds.CGTWindowDays <= 0 {
		return nil
	}
	horizon := rc.AsOf.AddDate(0, 0, rc.Thresholds.CGTWindowDays)
	var out []Candidate
	for _, lot := range rc.Lots {
		if !lot.Open() {
			continue
		}
		if lot.DiscountThresholdDate.After(rc.AsOf) && !lot.DiscountThresholdDate.After(horizon) {
			// Context keys on the originating buy, which is stable across
			// rebuilds; lot ids are not.
			out = append(out, Candidate{
				Type:   "cgt_window",
				Symbol: lot.Symbol,
				Message: fmt.Sprintf(
					"%s bought %s reaches its CGT discount threshold on %s",
					lot.Symbol, lot.AcquiredAt.Format("2006-01-02"),
					lot.DiscountThresholdDate.Format("2006-01-02")),
				Context: fmt.Sprintf("buy_txn_id=%d", lot.SourceTransactionID),
			})
		}
	}
	return out
}

// ConcentrationRule flags positions whose weight exceeds the concentration
// limit. Requires priced positions.
func ConcentrationRule(rc Context) []Candidate {
	if rc.Thresholds.ConcentrationLimit <= 0 {
		return nil
	}
	limit := decimal.NewFromFloat(rc.Thresholds.ConcentrationLimit)
	var out []Candidate
	for _, p := range rc.Positions {
		if !p.Weight.Present() {
			continue
		}
		w := p.Weight.MustGet()
		if w.GreaterThan(limit) {
			out = append(out, Candidate{
				Type:   "concentration",
				Symbol: p.Symbol,
				Message: fmt.Sprintf("%s is %s%% of the portfolio, above the %s%% limit",
					p.Symbol,
					w.Mul(decimal.NewFromInt(100)).StringFixed(1),
					limit.Mul(decimal.NewFromInt(100)).StringFixed(1)),
			})
		}
	}
	return out
}

// OverweightRule flags positions outside the band around their target weight.
func OverweightRule(rc Context) []Candidate {
	if rc.Thresholds.OverweightBand <= 0 || len(rc.TargetWeights) == 0 {
		return nil
	}
	band := decimal.NewFromFloat(rc.Thresholds.OverweightBand)
	var out []Candidate
	for _, p := range rc.Positions {
		target, ok := rc.TargetWeights[p.Symbol]
		if !ok || !p.Weight.Present() {
			continue
		}
		diff := p.Weight.MustGet().Sub(decimal.NewFromFloat(target))
		if diff.GreaterThan(band) {
			out = append(out, Candidate{
				Type:   "overweight",
				Symbol: p.Symbol,
				Message: fmt.Sprintf("%s is %s%% above its target weight",
					p.Symbol, diff.Mul(decimal.NewFromInt(100)).StringFixed(1)),
			})
		}
	}
	return out
}

// LossThresholdRule flags priced positions whose unrealized return is below
// the loss threshold (a negative fraction, e.g. -0.15).
func LossThresholdRule(rc Context) []Candidate {
	if rc.Thresholds.LossThresholdPct >= 0 {
		return nil
	}
	threshold := decimal.NewFromFloat(rc.Thresholds.LossThresholdPct)
	var out []Candidate
	for _, p := range rc.Positions {
		if !p.MarketValue.Present() || !p.CostBase.IsPositive() {
			continue
		}
		ret := p.MarketValue.MustGet().Sub(p.CostBase).Div(p.CostBase)
		if ret.LessThan(threshold) {
			out = append(out, Candidate{
				Type:   "loss_threshold",
				Symbol: p.Symbol,
				Message: fmt.Sprintf("%s is down %s%% against its cost base",
					p.Symbol, ret.Mul(decimal.NewFromInt(-100)).StringFixed(1)),
			})
		}
	}
	return out
}

// Evaluator runs a rule pack and reconciles candidates against previously
// persisted actionables, preserving ids and snooze/dismiss statuses.
type Evaluator struct {
	Rules []Rule
	Now   func() time.Time
}

func NewEvaluator(rules []Rule) *Evaluator {
	return &Evaluator{Rules: rules, Now: time.Now}
}

// Evaluate returns the full actionable set after this run: refreshed matches
// of existing records, new ones for unseen candidates, and open records whose
// condition no longer fires resolved to done. Snoozed records whose snooze has
// lapsed reopen; dismissed ones stay dismissed; a done record whose condition
// returns reopens. Records match candidates on (type, symbol, context).
func (e *Evaluator) Evaluate(rc Context, existing []*Actionable) []*Actionable {
	now := e.Now()
	key := func(typ, symbol, context string) string {
		return typ + "|" + symbol + "|" + context
	}
	byKey := make(map[string]*Actionable, len(existing))
	for _, a := range existing {
		byKey[key(a.Type, a.Symbol, a.Context)] = a
	}

	matched := make(map[string]bool)
	var out []*Actionable
	for _, rule := range e.Rules {
		for _, c := range rule(rc) {
			k := key(c.Type, c.Symbol, c.Context)
			matched[k] = true
			prev, ok := byKey[k]
			if !ok {
				out = append(out, &Actionable{
					ID:        uuid.New(),
					Type:      c.Type,
					Symbol:    c.Symbol,
					Message:   c.Message,
					Status:    StatusOpen,
					Context:   c.Context,
					CreatedAt: now,
					UpdatedAt: now,
				})
				continue
			}
			refreshed := *prev
			refreshed.Message = c.Message
			refreshed.UpdatedAt = now
			if refreshed.Status == StatusDone {
				refreshed.Status = StatusOpen
			}
			if refreshed.Status == StatusSnoozed &&
				(refreshed.SnoozedUntil == nil || !now.Before(*refreshed.SnoozedUntil)) {
				refreshed.Status = StatusOpen
				refreshed.SnoozedUntil = nil
			}
			out = append(out, &refreshed)
		}
	}

	// Open records with no matching candidate resolved this run.
	for _, a := range existing {
		if a.Status != StatusOpen || matched[key(a.Type, a.Symbol, a.Context)] {
			continue
		}
		resolved := *a
		resolved.Status = StatusDone
		resolved.UpdatedAt = now
		out = append(out, &resolved)
	}
	return out
}

// RenderTable builds the display model for an actionable list.
func RenderTable(actionables []*Actionable) *ledger.RenderTable {
	table := &ledger.RenderTable{}
	table.Header = []string{"ID", "Type", "Symbol", "Status", "Message", "Snoozed Until"}
	for _, a := range actionables {
		snoozed := "-"
		if a.SnoozedUntil != nil {
			snoozed = a.SnoozedUntil.Format("2006-01-02")
		}
		symbol := a.Symbol
		if symbol == "" {
			symbol = "-"
		}
		table.Rows = append(table.Rows, []string{
			a.ID.String()[:8], a.Type, symbol, string(a.Status), a.Message, snoozed,
		})
	}
	return table
}
