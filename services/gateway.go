package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/saliftankoano/roogo-web-sub000/models"
	"github.com/saliftankoano/roogo-web-sub000/utils"
)

// PaymentGateway talks to the mobile-money deposit API. Credentials and
// base URL come from the injected config, never from the environment
// directly, so tests can point it at a stub server.
type PaymentGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewPaymentGateway(cfg utils.Config) *PaymentGateway {
	return &PaymentGateway{
		baseURL: cfg.GatewayBaseURL,
		apiKey:  cfg.GatewayAPIKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type DepositRequest struct {
	DepositID   string `json:"depositId"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	PhoneNumber string `json:"payer"`
	Provider    string `json:"correspondent"` // orange_money, moov_money
	Description string `json:"statementDescription"`
}

type DepositResult struct {
	DepositID     string `json:"depositId"`
	Status        string `json:"status"`
	FailureReason string `json:"failureReason"`
}

// InitiateDeposit submits a deposit request. The deposit id is generated
// by us beforehand, so retrying a failed HTTP call is idempotent on the
// gateway side.
func (g *PaymentGateway) InitiateDeposit(req DepositRequest) (*DepositResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, g.baseURL+"/deposits", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway unreachable: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var result DepositResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("gateway returned unparseable response (%d): %s", resp.StatusCode, string(raw))
	}

	if resp.StatusCode >= 400 {
		if result.FailureReason == "" {
			result.FailureReason = fmt.Sprintf("gateway returned %d", resp.StatusCode)
		}
		return &result, fmt.Errorf("deposit rejected: %s", result.FailureReason)
	}

	return &result, nil
}

// MapDepositStatus maps the gateway's status vocabulary onto the internal
// ledger statuses. Pure lookup, no I/O.
func MapDepositStatus(gatewayStatus string) string {
	switch gatewayStatus {
	case "COMPLETED":
		return models.TransactionStatusCompleted
	case "ACCEPTED", "SUBMITTED":
		return models.TransactionStatusSubmitted
	case "FAILED", "CANCELLED", "REJECTED":
		return models.TransactionStatusFailed
	case "REFUNDED":
		return models.TransactionStatusRefunded
	default:
		return models.TransactionStatusPending
	}
}
