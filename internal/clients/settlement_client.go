package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"mixpool-backend/internal/config"
)

// SettlementClient talks to the settlement service that executes the
// pool's transfer intents. The pool only hands transfers over; whatever
// the settlement service does with them afterwards is out of scope.
type SettlementClient struct {
	BaseURL string
	Client  *http.Client
}

// NewSettlementClient creates a new settlement client
func NewSettlementClient(baseURL string) *SettlementClient {
	timeout := 30 * time.Second

	if config.AppConfig != nil && config.AppConfig.Settlement.Timeout > 0 {
		timeout = time.Duration(config.AppConfig.Settlement.Timeout) * time.Second
	}

	client := &SettlementClient{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: timeout,
		},
	}

	fmt.Printf("🔧 [Settlement] Create client: BaseURL=%s, Timeout=%v\n", baseURL, timeout)

	return client
}

// TransferRequest is one fee or payout transfer handed to settlement
type TransferRequest struct {
	ID           string `json:"id"`
	WithdrawalID string `json:"withdrawal_id"`
	Kind         string `json:"kind"`      // fee | payout
	Recipient    string `json:"recipient"` // destination address
	Amount       string `json:"amount"`    // base-unit decimal string
}

// TransferResponse is the settlement service acknowledgement
type TransferResponse struct {
	Accepted  bool   `json:"accepted"`
	Reference string `json:"reference,omitempty"`
	Message   string `json:"message,omitempty"`
}

// SubmitTransfer hands one transfer to the settlement service
func (c *SettlementClient) SubmitTransfer(ctx context.Context, transfer *TransferRequest) (*TransferResponse, error) {
	jsonData, err := json.Marshal(transfer)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transfer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/api/v1/transfers", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		log.Printf("❌ [Settlement] SubmitTransfer failed: id=%s status=%d", transfer.ID, resp.StatusCode)
		log.Printf("   Response body: %s", string(body))
		return nil, fmt.Errorf("settlement service returned error (status %d): %s", resp.StatusCode, string(body))
	}

	var result TransferResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !result.Accepted {
		return nil, fmt.Errorf("settlement service rejected transfer %s: %s", transfer.ID, result.Message)
	}

	return &result, nil
}

// Health checks whether the settlement service is reachable
func (c *SettlementClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("settlement service unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("settlement service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
