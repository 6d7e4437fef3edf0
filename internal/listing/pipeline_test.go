package listing

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/billed-fr/billed-server/internal/billstore"
	"github.com/billed-fr/billed-server/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStore struct {
	bills []entity.Bill
	err   error
}

func (s *stubStore) List(ctx context.Context) ([]entity.Bill, error) {
	return s.bills, s.err
}

func (s *stubStore) CreateReceipt(ctx context.Context, fileName string, content io.Reader, email string) (*billstore.ReceiptAsset, error) {
	return nil, errors.New("not implemented")
}

func (s *stubStore) Update(ctx context.Context, bill entity.Bill, selector string) (*entity.Bill, error) {
	return nil, errors.New("not implemented")
}

func TestBillsOrdersMostRecentFirst(t *testing.T) {
	store := &stubStore{bills: []entity.Bill{
		{ID: "a", Date: "2004-04-04", Status: "pending"},
		{ID: "b", Date: "2023-01-01", Status: "accepted"},
		{ID: "c", Date: "2021-05-12", Status: "refused"},
	}}
	pipeline := NewPipeline(store, zap.NewNop())

	rows, err := pipeline.Bills(context.Background())
	require.NoError(t, err)

	dates := make([]string, 0, len(rows))
	for _, row := range rows {
		dates = append(dates, row.Date)
	}
	assert.Equal(t, []string{"2023-01-01", "2021-05-12", "2004-04-04"}, dates)
}

func TestBillsFormatsStatusLabels(t *testing.T) {
	store := &stubStore{bills: []entity.Bill{
		{ID: "a", Date: "2021-01-01", Status: "pending"},
		{ID: "b", Date: "2021-01-02", Status: "accepted"},
		{ID: "c", Date: "2021-01-03", Status: "refused"},
	}}
	pipeline := NewPipeline(store, zap.NewNop())

	rows, err := pipeline.Bills(context.Background())
	require.NoError(t, err)

	byID := make(map[string]entity.DisplayRow)
	for _, row := range rows {
		byID[row.ID] = row
	}
	assert.Equal(t, "En attente", byID["a"].Status)
	assert.Equal(t, "Accepté", byID["b"].Status)
	assert.Equal(t, "Refusé", byID["c"].Status)
}

func TestBillsKeepsCorruptedRecords(t *testing.T) {
	store := &stubStore{bills: []entity.Bill{
		{ID: "ok", Date: "2021-05-12", Status: "pending"},
		{ID: "corrupt", Date: "n'est pas une date", Status: "refused"},
		{ID: "ok2", Date: "2004-04-04", Status: "accepted"},
	}}
	pipeline := NewPipeline(store, zap.NewNop())

	rows, err := pipeline.Bills(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3, "corrupted records are never dropped")

	var corrupt *entity.DisplayRow
	for i := range rows {
		if rows[i].ID == "corrupt" {
			corrupt = &rows[i]
		}
	}
	require.NotNil(t, corrupt)
	assert.Equal(t, "n'est pas une date", corrupt.Date, "raw date survives formatting failure")
	assert.Equal(t, "Refusé", corrupt.Status, "status is still labelled")
}

func TestBillsNormalizesTolerantDateShapes(t *testing.T) {
	store := &stubStore{bills: []entity.Bill{
		{ID: "a", Date: "2021/05/12", Status: "pending"},
	}}
	pipeline := NewPipeline(store, zap.NewNop())

	rows, err := pipeline.Bills(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2021-05-12", rows[0].Date)
}

func TestBillsPropagatesStoreErrorsVerbatim(t *testing.T) {
	for _, msg := range []string{"Erreur 404", "Erreur 500"} {
		t.Run(msg, func(t *testing.T) {
			pipeline := NewPipeline(&stubStore{err: errors.New(msg)}, zap.NewNop())

			_, err := pipeline.Bills(context.Background())
			require.Error(t, err)
			assert.Equal(t, msg, err.Error())
		})
	}
}

func TestBillsEmptyStore(t *testing.T) {
	pipeline := NewPipeline(&stubStore{}, zap.NewNop())

	rows, err := pipeline.Bills(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReceiptPreview(t *testing.T) {
	withReceipt := entity.Bill{FileURL: "https://store/receipts/a.jpg", FileName: "a.jpg"}
	assert.Equal(t, "https://store/receipts/a.jpg", ReceiptPreview(withReceipt))
	assert.Equal(t, "a.jpg", PreviewAlt(withReceipt))

	withoutReceipt := entity.Bill{}
	assert.Equal(t, NoReceiptFallback, ReceiptPreview(withoutReceipt))
	assert.Equal(t, "Justificatif", PreviewAlt(withoutReceipt))
}
