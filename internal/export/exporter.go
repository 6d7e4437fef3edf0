// Package export writes the bill collection to an Excel workbook for
// the accounting side.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/billed-fr/billed-server/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// SheetName is the single sheet holding the exported rows.
const SheetName = "Notes de frais"

var headers = []string{"Type", "Nom", "Date", "Montant", "TVA", "Pct", "Statut", "Email", "Justificatif"}

// Exporter renders display rows into an xlsx workbook.
type Exporter struct {
	logger *zap.Logger
}

// NewExporter creates a bill exporter.
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Write streams a workbook with one row per bill to w. Rows keep the
// order they were given (the listing pipeline already sorted them).
func (e *Exporter) Write(rows []entity.DisplayRow, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, row := range rows {
		values := []any{
			row.Type,
			row.Name,
			row.Date,
			amountCell(row.Amount),
			row.Vat,
			strconv.Itoa(row.Pct),
			row.Status,
			row.Email,
			row.FileName,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("failed to compute cell: %w", err)
			}
			if err := f.SetCellValue(SheetName, cell, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", i+1, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Debug("Bill export written", zap.Int("rows", len(rows)))
	return nil
}

// amountCell renders a parsed amount, leaving the cell empty for the
// non-numeric error state.
func amountCell(amount *int) any {
	if amount == nil {
		return ""
	}
	return *amount
}
