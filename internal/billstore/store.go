// Package billstore defines the bill store contract consumed by the
// submission and listing paths, together with its HTTP implementation.
package billstore

import (
	"context"
	"io"

	"github.com/billed-fr/billed-server/internal/domain/entity"
)

// ReceiptAsset is the result of a successful receipt upload: the public
// URL of the stored file and the key of the bill record the store opened
// for it.
type ReceiptAsset struct {
	FileURL string `json:"fileUrl"`
	Key     string `json:"key"`
}

// Store is the remote bill store contract.
//
// List failures carry a human-readable message (observed forms include
// "Erreur 404" and "Erreur 500") which callers pass through verbatim so
// the page layer can pattern-match known error classes.
type Store interface {
	// List returns every bill visible to the signed-in context, in no
	// particular order.
	List(ctx context.Context) ([]entity.Bill, error)

	// CreateReceipt uploads a receipt file together with the submitter's
	// email and returns the created asset.
	CreateReceipt(ctx context.Context, fileName string, content io.Reader, email string) (*ReceiptAsset, error)

	// Update persists the bill under the record identified by selector.
	Update(ctx context.Context, bill entity.Bill, selector string) (*entity.Bill, error)
}
