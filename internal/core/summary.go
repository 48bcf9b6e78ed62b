package core

// CategoryTotal is an expense total keyed by a category label.
type CategoryTotal struct {
	Label string `json:"label"`
	Total Money  `json:"total"`
}

// MonthlyTotals holds income and expense sums for one month.
type MonthlyTotals struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
}

// MonthlySummary is a derived view for a specific year+month. It is never
// persisted.
type MonthlySummary struct {
	Period       Period          `json:"period"`
	Income       Money           `json:"income"`
	Expense      Money           `json:"expense"`
	MonthBalance Money           `json:"monthBalance"`
	Balance      Money           `json:"balance"` // lifetime, not month-scoped
	Categories   []CategoryTotal `json:"categories"`
}
