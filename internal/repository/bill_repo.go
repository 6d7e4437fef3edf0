// Package repository implements the bill store contract over the local
// SQLite database, for deployments that run without a remote store.
package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"path"

	"github.com/billed-fr/billed-server/internal/billstore"
	"github.com/billed-fr/billed-server/internal/domain/entity"
	"github.com/billed-fr/billed-server/internal/storage"
	"github.com/billed-fr/billed-server/pkg/database"
	"go.uber.org/zap"
)

// BillRepository is a billstore.Store backed by SQLite and local
// receipt files.
type BillRepository struct {
	db        *database.DB
	receipts  *storage.ReceiptStorage
	publicURL string
	logger    *zap.Logger
}

// NewBillRepository creates a local bill store. publicURL is the prefix
// under which stored receipt files are served.
func NewBillRepository(db *database.DB, receipts *storage.ReceiptStorage, publicURL string, logger *zap.Logger) billstore.Store {
	return &BillRepository{
		db:        db,
		receipts:  receipts,
		publicURL: publicURL,
		logger:    logger,
	}
}

const billColumns = "id, email, type, name, amount, date, vat, pct, commentary, file_url, file_name, status, comment_admin"

// List returns every stored bill.
func (r *BillRepository) List(ctx context.Context) ([]entity.Bill, error) {
	query := "SELECT " + billColumns + " FROM bills"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	var bills []entity.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	return bills, rows.Err()
}

// CreateReceipt stores the receipt file and opens a pending bill record
// for it, keyed by a fresh identifier.
func (r *BillRepository) CreateReceipt(ctx context.Context, fileName string, content io.Reader, email string) (*billstore.ReceiptAsset, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt content: %w", err)
	}

	key := newKey()
	if _, err := r.receipts.Save(path.Join(key, fileName), data); err != nil {
		return nil, err
	}

	fileURL := r.publicURL + "/" + key + "/" + fileName

	query := `
		INSERT INTO bills (id, email, date, vat, file_url, file_name, status)
		VALUES (?, ?, '', '', ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, key, email, fileURL, fileName, entity.StatusPending); err != nil {
		return nil, fmt.Errorf("failed to create bill record: %w", err)
	}

	r.logger.Debug("Receipt stored",
		zap.String("key", key),
		zap.String("file_name", fileName))

	return &billstore.ReceiptAsset{FileURL: fileURL, Key: key}, nil
}

// Update persists the bill under selector. An empty selector means no
// receipt upload ever opened a record, so a fresh one is inserted: a
// submission without a receipt is still allowed to persist.
func (r *BillRepository) Update(ctx context.Context, bill entity.Bill, selector string) (*entity.Bill, error) {
	if selector == "" {
		selector = newKey()
		query := `
			INSERT INTO bills (id, email, type, name, amount, date, vat, pct, commentary, file_url, file_name, status, comment_admin)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := r.db.ExecContext(ctx, query,
			selector, bill.Email, bill.Type, bill.Name, nullableInt(bill.Amount), bill.Date,
			bill.Vat, bill.Pct, bill.Commentary, bill.FileURL, bill.FileName, bill.Status, bill.CommentAdmin)
		if err != nil {
			return nil, fmt.Errorf("failed to insert bill: %w", err)
		}
	} else {
		query := `
			UPDATE bills
			SET email = ?, type = ?, name = ?, amount = ?, date = ?, vat = ?, pct = ?,
				commentary = ?, file_url = ?, file_name = ?, status = ?, comment_admin = ?
			WHERE id = ?
		`
		result, err := r.db.ExecContext(ctx, query,
			bill.Email, bill.Type, bill.Name, nullableInt(bill.Amount), bill.Date, bill.Vat,
			bill.Pct, bill.Commentary, bill.FileURL, bill.FileName, bill.Status, bill.CommentAdmin,
			selector)
		if err != nil {
			return nil, fmt.Errorf("failed to update bill: %w", err)
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			return nil, fmt.Errorf("bill not found: %s", selector)
		}
	}

	return r.getByID(ctx, selector)
}

func (r *BillRepository) getByID(ctx context.Context, id string) (*entity.Bill, error) {
	query := "SELECT " + billColumns + " FROM bills WHERE id = ?"

	bill, err := scanBill(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("bill not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return &bill, nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBill(row scanner) (entity.Bill, error) {
	var bill entity.Bill
	var amount sql.NullInt64
	var fileURL, fileName, commentAdmin sql.NullString

	err := row.Scan(
		&bill.ID, &bill.Email, &bill.Type, &bill.Name, &amount, &bill.Date,
		&bill.Vat, &bill.Pct, &bill.Commentary, &fileURL, &fileName,
		&bill.Status, &commentAdmin)
	if err != nil {
		return entity.Bill{}, err
	}

	if amount.Valid {
		n := int(amount.Int64)
		bill.Amount = &n
	}
	bill.FileURL = fileURL.String
	bill.FileName = fileName.String
	bill.CommentAdmin = commentAdmin.String
	return bill, nil
}

func nullableInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

// newKey returns a random 16-byte hex identifier.
func newKey() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("failed to generate bill key: %v", err))
	}
	return hex.EncodeToString(buf)
}
