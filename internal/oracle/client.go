package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"usdt-settlement-go/internal/networks"
)

// Client talks to the chain gateway over HTTP. The gateway fronts the
// actual node RPC endpoints and exposes a uniform JSON API per network.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, requestTimeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

type balanceResponse struct {
	Address string          `json:"address"`
	Network string          `json:"network"`
	Balance decimal.Decimal `json:"balance"`
}

type transferRequest struct {
	Network   string `json:"network"`
	ToAddress string `json:"to_address"`
	Amount    string `json:"amount"`
}

type transferResponse struct {
	TxHash string `json:"tx_hash"`
}

type transactionResponse struct {
	TxHash    string          `json:"tx_hash"`
	ToAddress string          `json:"to_address"`
	Amount    decimal.Decimal `json:"amount"`
	Confirmed bool            `json:"confirmed"`
}

func (c *Client) GetBalance(ctx context.Context, address string, network networks.Network) (decimal.Decimal, error) {
	query := url.Values{}
	query.Set("address", address)
	query.Set("network", string(network))

	var response balanceResponse
	if err := c.get(ctx, "/v1/balance?"+query.Encode(), &response); err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch balance for %s on %s: %w", address, network, err)
	}
	return response.Balance, nil
}

func (c *Client) GetPlatformBalance(ctx context.Context, network networks.Network) (decimal.Decimal, error) {
	query := url.Values{}
	query.Set("network", string(network))

	var response balanceResponse
	if err := c.get(ctx, "/v1/platform/balance?"+query.Encode(), &response); err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch platform balance on %s: %w", network, err)
	}
	return response.Balance, nil
}

func (c *Client) Send(ctx context.Context, network networks.Network, toAddress string, amount decimal.Decimal) (string, error) {
	request := transferRequest{
		Network:   string(network),
		ToAddress: toAddress,
		Amount:    amount.String(),
	}

	var response transferResponse
	if err := c.post(ctx, "/v1/transfers", request, &response); err != nil {
		return "", fmt.Errorf("failed to broadcast transfer on %s: %w", network, err)
	}
	if response.TxHash == "" {
		return "", fmt.Errorf("gateway returned empty transaction hash for transfer on %s", network)
	}
	return response.TxHash, nil
}

func (c *Client) Verify(ctx context.Context, txHash string, expectedAmount decimal.Decimal, toAddress string, network networks.Network) (bool, decimal.Decimal, error) {
	query := url.Values{}
	query.Set("network", string(network))

	var response transactionResponse
	if err := c.get(ctx, "/v1/transactions/"+url.PathEscape(txHash)+"?"+query.Encode(), &response); err != nil {
		return false, decimal.Zero, fmt.Errorf("failed to fetch transaction %s on %s: %w", txHash, network, err)
	}

	if !response.Confirmed {
		return false, response.Amount, nil
	}
	if !strings.EqualFold(response.ToAddress, toAddress) {
		return false, response.Amount, nil
	}
	return true, response.Amount, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
