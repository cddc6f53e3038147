package funding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"footy_go/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Client talks to a Paystack-shaped payment processor. It implements
// domain.FundingProvider: a wallet is only credited after VerifyDeposit
// confirms a reference.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient creates a funding client for the given processor endpoint.
func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type initializeResponse struct {
	Status bool `json:"status"`
	Data   struct {
		Reference        string `json:"reference"`
		AuthorizationURL string `json:"authorization_url"`
	} `json:"data"`
}

type verifyResponse struct {
	Status bool `json:"status"`
	Data   struct {
		Status string `json:"status"`
		Amount int64  `json:"amount"` // smallest currency unit
	} `json:"data"`
}

type transferResponse struct {
	Status bool `json:"status"`
	Data   struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

// InitializeDeposit opens a deposit with the processor and returns the
// reference the caller must later verify.
func (c *Client) InitializeDeposit(ctx context.Context, accountID string, amount decimal.Decimal) (string, error) {
	body := map[string]any{
		// Processor expects the smallest currency unit.
		"amount":    amount.Mul(decimal.NewFromInt(100)).IntPart(),
		"reference": uuid.NewString(),
		"metadata":  map[string]string{"account_id": accountID},
	}
	var resp initializeResponse
	if err := c.post(ctx, "/transaction/initialize", body, &resp); err != nil {
		return "", err
	}
	if !resp.Status || resp.Data.Reference == "" {
		return "", domain.ErrFundingUnconfirmed
	}
	return resp.Data.Reference, nil
}

// VerifyDeposit fetches the processor's verdict for a reference.
func (c *Client) VerifyDeposit(ctx context.Context, reference string) (domain.FundingConfirmation, error) {
	var resp verifyResponse
	if err := c.get(ctx, "/transaction/verify/"+reference, &resp); err != nil {
		return domain.FundingConfirmation{}, err
	}
	return domain.FundingConfirmation{
		Reference: reference,
		Success:   resp.Status && resp.Data.Status == "success",
		Amount:    decimal.NewFromInt(resp.Data.Amount).Div(decimal.NewFromInt(100)),
	}, nil
}

// Transfer moves funds out to the account's registered recipient.
func (c *Client) Transfer(ctx context.Context, accountID string, amount decimal.Decimal) (string, error) {
	body := map[string]any{
		"source":    "balance",
		"amount":    amount.Mul(decimal.NewFromInt(100)).IntPart(),
		"recipient": accountID,
		"reason":    "withdrawal",
	}
	var resp transferResponse
	if err := c.post(ctx, "/transfer", body, &resp); err != nil {
		return "", err
	}
	if !resp.Status {
		return "", fmt.Errorf("transfer rejected for account %s", accountID)
	}
	return resp.Data.Reference, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
