// Package sheets turns monthly summaries into spreadsheet rows and defines
// the ports the export adapters implement.
package sheets

import (
	"context"

	"finanquest/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportWriter appends a monthly summary and returns a reference to the
	// written range.
	ReportWriter interface {
		AppendReport(ctx context.Context, s core.MonthlySummary) (rowRef string, err error)
	}

	// ReportIndex tells which periods already have a totals row.
	ReportIndex interface {
		ExportedPeriods(ctx context.Context, year int) (map[core.Period]bool, error)
	}

	// Exporter is a destination that supports both.
	Exporter interface {
		ReportWriter
		ReportIndex
	}
)
