package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	shared "UpWatch/internal/shared/models"
)

var ErrUnauthorized = errors.New("backend rejected the worker api key")

// APIClient talks to the backend's claim protocol endpoints.
type APIClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewAPIClient(baseURL, apiKey string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type claimEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Checks []shared.ClaimTicket `json:"checks"`
	} `json:"data"`
}

// Claim asks the scheduler for up to count due monitors.
func (a *APIClient) Claim(ctx context.Context, count int) ([]shared.ClaimTicket, error) {
	body, err := json.Marshal(shared.ClaimRequest{Count: count})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal claim request: %w", err)
	}

	resp, err := a.post(ctx, "/api/v1/checks/claim", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var envelope claimEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode claim response: %w", err)
	}
	return envelope.Data.Checks, nil
}

// SubmitResult reports one observed outcome back to the recorder.
func (a *APIClient) SubmitResult(ctx context.Context, result shared.ResultRequest) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result request: %w", err)
	}

	resp, err := a.post(ctx, "/api/v1/checks/result", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func (a *APIClient) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= 400:
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return nil
}
