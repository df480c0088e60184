// Package proposal hands constructed transaction field sets to the
// external signing service. The engine never signs or submits anything
// itself — it only proposes, and the user's wallet authorizes
// asynchronously.
package proposal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/xrplquantum/dex-engine/internal/dexerr"
)

// Service creates transaction proposals from prepared field sets.
type Service interface {
	// CreateProposal submits the transaction fields and returns the
	// proposal's identifier.
	CreateProposal(ctx context.Context, tx any) (string, error)
}

// HTTPService posts proposals to a signing-service HTTP endpoint.
type HTTPService struct {
	url       string
	apiKey    string
	apiSecret string
	http      *retryablehttp.Client
}

// NewHTTPService creates a proposal client for the given endpoint.
func NewHTTPService(url, apiKey, apiSecret string, timeout time.Duration) *HTTPService {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil
	return &HTTPService{url: url, apiKey: apiKey, apiSecret: apiSecret, http: rc}
}

type createPayload struct {
	TxJSON any `json:"txjson"`
}

type createResponse struct {
	UUID string `json:"uuid"`
}

func (s *HTTPService) CreateProposal(ctx context.Context, tx any) (string, error) {
	body, err := json.Marshal(createPayload{TxJSON: tx})
	if err != nil {
		return "", fmt.Errorf("proposal: marshal payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("proposal: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", s.apiKey)
	req.Header.Set("X-API-Secret", s.apiSecret)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: proposal service: %v", dexerr.ErrUpstreamQuery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: proposal service: http %d", dexerr.ErrUpstreamQuery, resp.StatusCode)
	}

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.UUID == "" {
		return "", fmt.Errorf("%w: proposal service: missing uuid in response", dexerr.ErrUpstreamQuery)
	}
	return out.UUID, nil
}

// MemoryService records proposals in memory. Used for testing and
// development.
type MemoryService struct {
	mu        sync.Mutex
	Proposals map[string]any
}

// NewMemoryService creates an in-memory proposal recorder.
func NewMemoryService() *MemoryService {
	return &MemoryService{Proposals: make(map[string]any)}
}

func (s *MemoryService) CreateProposal(_ context.Context, tx any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.Proposals[id] = tx
	return id, nil
}
