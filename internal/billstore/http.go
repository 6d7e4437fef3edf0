package billstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/billed-fr/billed-server/internal/domain/entity"
	"go.uber.org/zap"
)

// HTTPStore talks to a remote bill store over its JSON/multipart API.
type HTTPStore struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// HTTPConfig holds the remote store connection settings.
type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewHTTPStore creates an HTTP-backed bill store client.
func NewHTTPStore(cfg HTTPConfig, logger *zap.Logger) *HTTPStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPStore{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// List fetches the full bill collection. Non-2xx responses surface as
// "Erreur <status>" so the caller sees the store's error class verbatim.
func (s *HTTPStore) List(ctx context.Context) ([]entity.Bill, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/bills", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build list request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn("Bill store list rejected",
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("Erreur %d", resp.StatusCode)
	}

	var bills []entity.Bill
	if err := json.NewDecoder(resp.Body).Decode(&bills); err != nil {
		return nil, fmt.Errorf("failed to decode bill list: %w", err)
	}
	return bills, nil
}

// CreateReceipt uploads the receipt as a multipart payload carrying the
// file and the submitter email. The request content type comes solely
// from the multipart encoder, which owns the boundary.
func (s *HTTPStore) CreateReceipt(ctx context.Context, fileName string, content io.Reader, email string) (*ReceiptAsset, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart file part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to copy receipt content: %w", err)
	}
	if err := writer.WriteField("email", email); err != nil {
		return nil, fmt.Errorf("failed to write email field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/bills", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload receipt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn("Bill store create rejected",
			zap.String("file_name", fileName),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("Erreur %d", resp.StatusCode)
	}

	var asset ReceiptAsset
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		return nil, fmt.Errorf("failed to decode create response: %w", err)
	}

	s.logger.Debug("Receipt uploaded",
		zap.String("file_name", fileName),
		zap.String("key", asset.Key))
	return &asset, nil
}

// Update persists the bill under the record identified by selector.
func (s *HTTPStore) Update(ctx context.Context, bill entity.Bill, selector string) (*entity.Bill, error) {
	payload, err := json.Marshal(bill)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bill: %w", err)
	}

	target := s.baseURL + "/bills/" + url.PathEscape(selector)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to update bill: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logger.Warn("Bill store update rejected",
			zap.String("selector", selector),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("Erreur %d", resp.StatusCode)
	}

	var updated entity.Bill
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return nil, fmt.Errorf("failed to decode update response: %w", err)
	}
	return &updated, nil
}
