package sheets

import (
	"context"
	"errors"
	"fmt"

	"finanquest/internal/core"
	applog "finanquest/internal/log"
)

// ErrAlreadyExported is returned by Export when the period already has a
// totals row and force is not set.
var ErrAlreadyExported = errors.New("period already exported")

// Export writes the summary unless its period was exported before. With
// force the index is not consulted.
func Export(ctx context.Context, dst Exporter, s core.MonthlySummary, force bool) (string, error) {
	if !force {
		done, err := dst.ExportedPeriods(ctx, s.Period.Year)
		if err != nil {
			return "", fmt.Errorf("check exported periods: %w", err)
		}
		if done[s.Period] {
			applog.FromContext(ctx).WithComponent(applog.ComponentSheets).InfoContext(ctx, "Skipping exported period",
				applog.NewFields().WithOperation(applog.OpExport).WithPeriod(s.Period.Year, s.Period.Month+1).ToSlice()...)
			return "", fmt.Errorf("%w: %s", ErrAlreadyExported, s.Period)
		}
	}
	return dst.AppendReport(ctx, s)
}
