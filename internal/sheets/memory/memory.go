// Package memory is an in-process report destination used when no
// spreadsheet is configured, and in tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"finanquest/internal/core"
	ports "finanquest/internal/sheets"
)

var _ ports.Exporter = (*Store)(nil)

// Store keeps report rows grouped by year, one slice per yearly sheet.
type Store struct {
	mu   sync.Mutex
	rows map[int][][]any
}

func New() *Store {
	return &Store{rows: map[int][][]any{}}
}

// AppendReport stores the summary rows and returns a synthetic range
// reference.
func (s *Store) AppendReport(_ context.Context, sum core.MonthlySummary) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	year := sum.Period.Year
	if len(s.rows[year]) == 0 {
		s.rows[year] = append(s.rows[year], ports.Header)
	}
	first := len(s.rows[year]) + 1
	s.rows[year] = append(s.rows[year], ports.ReportRows(sum)...)
	return fmt.Sprintf("mem:%d!%d:%d", year, first, len(s.rows[year])), nil
}

func (s *Store) ExportedPeriods(_ context.Context, year int) (map[core.Period]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ports.ExportedPeriods(s.rows[year]), nil
}

// Rows returns a copy of the rows written for year, header included.
func (s *Store) Rows(year int) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows[year]))
	for i, r := range s.rows[year] {
		out[i] = slices.Clone(r)
	}
	return out
}
