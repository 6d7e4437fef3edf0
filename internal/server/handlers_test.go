package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/billed-fr/billed-server/internal/billstore"
	"github.com/billed-fr/billed-server/internal/domain/entity"
	"github.com/billed-fr/billed-server/internal/nav"
	"github.com/billed-fr/billed-server/internal/submission"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStore struct {
	mu sync.Mutex

	bills   []entity.Bill
	listErr error

	createErr error
	updateErr error

	updated  []entity.Bill
	uploaded []string
}

func (s *stubStore) List(ctx context.Context) ([]entity.Bill, error) {
	return s.bills, s.listErr
}

func (s *stubStore) CreateReceipt(ctx context.Context, fileName string, content io.Reader, email string) (*billstore.ReceiptAsset, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.mu.Lock()
	s.uploaded = append(s.uploaded, fileName)
	s.mu.Unlock()
	return &billstore.ReceiptAsset{FileURL: "https://store/receipts/" + fileName, Key: "key-1"}, nil
}

func (s *stubStore) Update(ctx context.Context, bill entity.Bill, selector string) (*entity.Bill, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.mu.Lock()
	s.updated = append(s.updated, bill)
	s.mu.Unlock()
	return &bill, nil
}

func newTestRouter(store billstore.Store) (*gin.Engine, *Server, *nav.History) {
	gin.SetMode(gin.TestMode)
	history := nav.NewHistory()
	srv := New(store, history, zap.NewNop())
	router := gin.New()
	srv.Register(router)
	return router, srv, history
}

func withUser(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{
		Name:  "user",
		Value: url.QueryEscape(`{"type":"Employee","email":"employee@test.tld"}`),
	})
	return req
}

func TestListBillsRequiresAuthentication(t *testing.T) {
	router, _, _ := newTestRouter(&stubStore{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/bills", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListBillsReturnsOrderedRows(t *testing.T) {
	store := &stubStore{bills: []entity.Bill{
		{ID: "a", Date: "2004-04-04", Status: "pending"},
		{ID: "b", Date: "2023-01-01", Status: "accepted"},
		{ID: "c", Date: "2021-05-12", Status: "refused"},
	}}
	router, _, _ := newTestRouter(store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/bills", nil)))

	require.Equal(t, http.StatusOK, w.Code)
	var rows []entity.DisplayRow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "2023-01-01", rows[0].Date)
	assert.Equal(t, "2021-05-12", rows[1].Date)
	assert.Equal(t, "2004-04-04", rows[2].Date)
}

func TestListBillsErrorKeepsMessageText(t *testing.T) {
	tests := []struct {
		message    string
		wantStatus int
	}{
		{message: "Erreur 404", wantStatus: http.StatusNotFound},
		{message: "Erreur 500", wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			router, _, _ := newTestRouter(&stubStore{listErr: errors.New(tt.message)})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/bills", nil)))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.message)
		})
	}
}

func multipartReceipt(t *testing.T, fileName string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte("image bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestUploadReceiptAcceptsValidFile(t *testing.T) {
	store := &stubStore{}
	router, _, _ := newTestRouter(store)

	body, contentType := multipartReceipt(t, "receipt.jpg")
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/bills/receipt", body))
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "key-1", resp["key"])
	assert.Equal(t, "receipt.jpg", resp["fileName"])
	assert.Equal(t, []string{"receipt.jpg"}, store.uploaded)
}

func TestUploadReceiptRejectsBadExtension(t *testing.T) {
	store := &stubStore{}
	router, _, _ := newTestRouter(store)

	body, contentType := multipartReceipt(t, "receipt.pdf")
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/bills/receipt", body))
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), submission.MsgInvalidExtension)
	assert.Empty(t, store.uploaded, "no store call on validation failure")
}

func TestUploadReceiptStoreFailure(t *testing.T) {
	router, _, _ := newTestRouter(&stubStore{createErr: errors.New("Erreur 500")})

	body, contentType := multipartReceipt(t, "receipt.png")
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/bills/receipt", body))
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), submission.MsgUploadFailed)
}

func TestSubmitBillNavigatesAndTearsDownSession(t *testing.T) {
	tests := []struct {
		name      string
		updateErr error
	}{
		{name: "persist succeeds"},
		{name: "persist rejects", updateErr: errors.New("Erreur 500")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{updateErr: tt.updateErr}
			router, _, history := newTestRouter(store)

			form := url.Values{}
			form.Set("expense-type", "Transports")
			form.Set("expense-name", "Vol Paris Londres")
			form.Set("datepicker", "2023-01-01")
			form.Set("amount", "348")
			form.Set("vat", "70")
			form.Set("pct", "20")
			form.Set("commentary", "séminaire")

			req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/bills",
				strings.NewReader(form.Encode())))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, nav.RouteBills, resp["navigateTo"])
			assert.Zero(t, history.SubscriberCount(), "submission session released its back registration")
		})
	}
}

func TestSubmitBillPersistsFormFields(t *testing.T) {
	store := &stubStore{}
	router, _, _ := newTestRouter(store)

	form := url.Values{}
	form.Set("expense-type", "Transports")
	form.Set("expense-name", "Vol Paris Londres")
	form.Set("datepicker", "2023-01-01")
	form.Set("amount", "348")
	form.Set("pct", "abc")

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/bills",
		strings.NewReader(form.Encode())))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, store.updated, 1)
	bill := store.updated[0]
	assert.Equal(t, entity.StatusPending, bill.Status)
	assert.Equal(t, "employee@test.tld", bill.Email)
	assert.Equal(t, 20, bill.Pct)
	require.NotNil(t, bill.Amount)
	assert.Equal(t, 348, *bill.Amount)
}

func TestPreviewReceipt(t *testing.T) {
	store := &stubStore{bills: []entity.Bill{
		{ID: "with", Date: "2021-05-12", Status: "pending",
			FileURL: "https://store/receipts/a.jpg", FileName: "a.jpg"},
		{ID: "without", Date: "2021-05-13", Status: "pending"},
	}}
	router, _, _ := newTestRouter(store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/bills/with/preview", nil)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://store/receipts/a.jpg")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/bills/without/preview", nil)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Pas de justificatif disponible pour cette note de frais")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/bills/missing/preview", nil)))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportBillsStreamsWorkbook(t *testing.T) {
	store := &stubStore{bills: []entity.Bill{
		{ID: "a", Date: "2021-05-12", Status: "pending", Name: "Taxi"},
	}}
	router, _, _ := newTestRouter(store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/bills/export", nil)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "notes-de-frais.xlsx")
	assert.NotZero(t, w.Body.Len())
}

func TestNavigateBack(t *testing.T) {
	router, srv, _ := newTestRouter(&stubStore{})

	// Open a form session so a controller is listening.
	session := srv.sessions.Get(entity.User{Type: "Employee", Email: "employee@test.tld"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, withUser(httptest.NewRequest(http.MethodPost, "/api/v1/navigation/back", nil)))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, nav.RouteBills, session.route())
}
