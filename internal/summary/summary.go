// Package summary derives balances, monthly totals, category breakdowns and
// progress values from raw transaction, goal and gamification lists.
//
// Every function is pure: inputs are never mutated and results depend only
// on the arguments. Months are zero-based (0 = January) and dates are
// matched on their calendar fields, never as instants, so a transaction
// dated 2024-01-31 belongs to January in every timezone.
package summary

import (
	"sort"
	"strings"

	"finanquest/internal/core"
)

// DefaultTopCategories is how many categories the dashboard shows.
const DefaultTopCategories = 5

// Balance is the lifetime signed sum: income adds, expense subtracts.
func Balance(txs []core.Transaction) core.Money {
	total := core.Zero
	for _, t := range txs {
		total = total.Add(t.Signed())
	}
	return total
}

// MonthlyTotals sums income and expense for transactions dated in the
// given year and zero-based month.
func MonthlyTotals(txs []core.Transaction, year, month int) core.MonthlyTotals {
	p := core.Period{Year: year, Month: month}
	out := core.MonthlyTotals{Income: core.Zero, Expense: core.Zero}
	for _, t := range txs {
		if !p.Contains(t.Date) {
			continue
		}
		switch t.Type {
		case core.Income:
			out.Income = out.Income.Add(t.Amount)
		case core.Expense:
			out.Expense = out.Expense.Add(t.Amount)
		}
	}
	return out
}

// GroupExpensesByDescription totals the month's expenses per description,
// largest first. Equal totals keep the order in which the description was
// first seen. topN <= 0 returns every category.
func GroupExpensesByDescription(txs []core.Transaction, year, month, topN int) []core.CategoryTotal {
	p := core.Period{Year: year, Month: month}
	index := map[string]int{}
	var out []core.CategoryTotal
	for _, t := range txs {
		if t.Type != core.Expense || !p.Contains(t.Date) {
			continue
		}
		label := strings.TrimSpace(t.Description)
		i, ok := index[label]
		if !ok {
			i = len(out)
			index[label] = i
			out = append(out, core.CategoryTotal{Label: label, Total: core.Zero})
		}
		out[i].Total = out[i].Total.Add(t.Amount)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.Cmp(out[j].Total) > 0
	})

	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// MonthTransactions returns the month's transactions newest first, ties
// broken by descending id, as the ledger lists them. The input slice is
// left untouched.
func MonthTransactions(txs []core.Transaction, year, month int) []core.Transaction {
	p := core.Period{Year: year, Month: month}
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if p.Contains(t.Date) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// MonthlySummaryFor builds the dashboard view for one month. Balance is
// lifetime; everything else is scoped to the month.
func MonthlySummaryFor(txs []core.Transaction, year, month, topN int) core.MonthlySummary {
	totals := MonthlyTotals(txs, year, month)
	categories := GroupExpensesByDescription(txs, year, month, topN)
	if categories == nil {
		categories = []core.CategoryTotal{}
	}
	return core.MonthlySummary{
		Period:       core.Period{Year: year, Month: month},
		Income:       totals.Income,
		Expense:      totals.Expense,
		MonthBalance: totals.Income.Sub(totals.Expense),
		Balance:      Balance(txs),
		Categories:   categories,
	}
}

// ChangeMonth moves a zero-based month cursor by direction months,
// wrapping into the previous or next year.
func ChangeMonth(year, month, direction int) (int, int) {
	p := core.Period{Year: year, Month: month}.Shift(direction)
	return p.Year, p.Month
}
