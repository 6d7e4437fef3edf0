// Package listing turns the raw bill collection into display-ready,
// chronologically ordered rows.
package listing

import (
	"context"
	"sort"

	"github.com/billed-fr/billed-server/internal/billstore"
	"github.com/billed-fr/billed-server/internal/domain/entity"
	"github.com/billed-fr/billed-server/internal/format"
	"go.uber.org/zap"
)

// NoReceiptFallback is the preview text shown when a bill has no
// receipt attached.
const NoReceiptFallback = "Pas de justificatif disponible pour cette note de frais"

// Pipeline fetches bills and normalizes them for presentation.
type Pipeline struct {
	store  billstore.Store
	logger *zap.Logger
}

// NewPipeline creates a listing pipeline over the given store.
func NewPipeline(store billstore.Store, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:  store,
		logger: logger,
	}
}

// Bills returns the display rows, most recent date first.
//
// Store failures propagate with their message untouched so the page
// layer can pattern-match known error classes ("Erreur 404",
// "Erreur 500"). A record whose date cannot be parsed is logged and kept
// with its raw date; no record is ever dropped.
func (p *Pipeline) Bills(ctx context.Context) ([]entity.DisplayRow, error) {
	bills, err := p.store.List(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]entity.DisplayRow, 0, len(bills))
	for _, bill := range bills {
		date, err := format.Date(bill.Date)
		if err != nil {
			p.logger.Warn("Keeping raw date for corrupted bill record",
				zap.String("id", bill.ID),
				zap.String("date", bill.Date),
				zap.Error(err))
			date = bill.Date
		}
		rows = append(rows, entity.DisplayRow{
			Bill:   bill,
			Date:   date,
			Status: format.Status(bill.Status),
		})
	}

	// Most recent first. The display date is ISO-shaped, so a reverse
	// lexicographic comparison orders chronologically without parsing.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date > rows[j].Date
	})
	return rows, nil
}

// ReceiptPreview returns the value the receipt modal consumes: the
// receipt URL when one exists, the fallback text otherwise.
func ReceiptPreview(bill entity.Bill) string {
	if bill.HasReceipt() {
		return bill.FileURL
	}
	return NoReceiptFallback
}

// PreviewAlt returns the image alt text for a receipt preview.
func PreviewAlt(bill entity.Bill) string {
	if bill.FileName != "" {
		return bill.FileName
	}
	return "Justificatif"
}
