package memory

import (
	"context"
	"testing"

	"finanquest/internal/core"
)

func TestStoreAppendAndIndex(t *testing.T) {
	s := New()
	ctx := context.Background()

	sum := core.MonthlySummary{
		Period:     core.Period{Year: 2024, Month: 4},
		Expense:    core.MustParseMoney("10"),
		Categories: []core.CategoryTotal{{Label: "Coffee", Total: core.MustParseMoney("10")}},
	}
	ref, err := s.AppendReport(ctx, sum)
	if err != nil || ref != "mem:2024!2:3" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	rows := s.Rows(2024)
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %v", rows)
	}
	if rows[0][0] != "Period" {
		t.Fatalf("first row should be the header: %v", rows[0])
	}

	got, err := s.ExportedPeriods(ctx, 2024)
	if err != nil {
		t.Fatalf("ExportedPeriods: %v", err)
	}
	if !got[core.Period{Year: 2024, Month: 4}] || len(got) != 1 {
		t.Fatalf("unexpected periods: %v", got)
	}

	if other, _ := s.ExportedPeriods(ctx, 2023); len(other) != 0 {
		t.Fatalf("other years should be empty: %v", other)
	}
}

func TestStoreRowsIsACopy(t *testing.T) {
	s := New()
	_, _ = s.AppendReport(context.Background(), core.MonthlySummary{Period: core.Period{Year: 2024}})

	rows := s.Rows(2024)
	rows[1][1] = "mutated"
	if s.Rows(2024)[1][1] == "mutated" {
		t.Fatal("Rows must not expose internal state")
	}
}
