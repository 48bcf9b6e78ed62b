package sheets_test

import (
	"context"
	"errors"
	"testing"

	"finanquest/internal/core"
	"finanquest/internal/sheets"
	"finanquest/internal/sheets/memory"
)

type failingIndex struct{ *memory.Store }

func (failingIndex) ExportedPeriods(context.Context, int) (map[core.Period]bool, error) {
	return nil, errors.New("unavailable")
}

func TestExportSkipsAlreadyExported(t *testing.T) {
	ctx := context.Background()
	dst := memory.New()
	s := core.MonthlySummary{Period: core.Period{Year: 2024, Month: 6}}

	if _, err := sheets.Export(ctx, dst, s, false); err != nil {
		t.Fatalf("first export: %v", err)
	}
	if _, err := sheets.Export(ctx, dst, s, false); !errors.Is(err, sheets.ErrAlreadyExported) {
		t.Fatalf("second export err = %v, want ErrAlreadyExported", err)
	}
	if _, err := sheets.Export(ctx, dst, s, true); err != nil {
		t.Fatalf("forced export: %v", err)
	}
	if n := len(dst.Rows(2024)); n != 3 {
		t.Fatalf("expected header plus two totals rows, got %d", n)
	}
}

func TestExportIndexFailure(t *testing.T) {
	dst := failingIndex{memory.New()}
	_, err := sheets.Export(context.Background(), dst, core.MonthlySummary{}, false)
	if err == nil {
		t.Fatal("expected error")
	}
	if n := len(dst.Rows(0)); n != 0 {
		t.Fatalf("nothing should be written, got %d rows", n)
	}
}
