package sheets

import (
	"fmt"
	"strings"

	"finanquest/internal/core"
)

// TotalLabel marks the totals row of a report.
const TotalLabel = "TOTAL"

// Header is the column layout of the report sheet.
var Header = []any{"Period", "Label", "Income", "Expense", "Month balance", "Balance"}

// ReportRows lays out a summary as one row per category (expense column
// only) followed by a totals row. Amounts are plain decimal strings so the
// sheet parses them regardless of locale.
func ReportRows(s core.MonthlySummary) [][]any {
	period := s.Period.String()
	rows := make([][]any, 0, len(s.Categories)+1)
	for _, c := range s.Categories {
		rows = append(rows, []any{period, c.Label, "", c.Total.String(), "", ""})
	}
	rows = append(rows, []any{
		period,
		TotalLabel,
		s.Income.String(),
		s.Expense.String(),
		s.MonthBalance.String(),
		s.Balance.String(),
	})
	return rows
}

// ExportedPeriods scans rows laid out by ReportRows and returns the periods
// that have a totals row. Header and malformed rows are skipped.
func ExportedPeriods(values [][]any) map[core.Period]bool {
	out := map[core.Period]bool{}
	for _, row := range values {
		cols := toStrings(row)
		if len(cols) < 2 || !strings.EqualFold(cols[1], TotalLabel) {
			continue
		}
		p, err := core.ParsePeriod(cols[0])
		if err != nil {
			continue
		}
		out[p] = true
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
