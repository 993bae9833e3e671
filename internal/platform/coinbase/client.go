// Package coinbase is the authenticated REST client for the Coinbase Pro
// exchange API. It covers only the operations one position cycle needs:
// profiles, profile transfers, order placement, order status, cancellation,
// plus the ticker and account-balance reads that seed a cycle.
package coinbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Mikesteam1234/crypfinder/internal/crypto"
	"github.com/Mikesteam1234/crypfinder/internal/domain"
)

// authRetryLimit is how many additional attempts a call makes when the
// exchange answers 401. The occasional spurious unauthorized response is a
// known quirk of the API; anything other than a 401 is never retried.
const authRetryLimit = 3

// Client is the REST client for the exchange API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *crypto.Signer
}

// NewClient creates a new exchange REST client.
//
// baseURL is the API root, e.g. "https://api.exchange.coinbase.com".
func NewClient(baseURL string, signer *crypto.Signer) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		signer: signer,
	}
}

// GetProfiles returns the sub-account profiles available to the credential.
func (c *Client) GetProfiles(ctx context.Context) ([]domain.Profile, error) {
	respBody, err := c.doSignedRequest(ctx, http.MethodGet, "/profiles", nil)
	if err != nil {
		return nil, fmt.Errorf("coinbase: get profiles: %w", err)
	}

	var apiProfiles []APIProfile
	if err := json.Unmarshal(respBody, &apiProfiles); err != nil {
		return nil, fmt.Errorf("coinbase: decode profiles: %w", err)
	}

	profiles := make([]domain.Profile, 0, len(apiProfiles))
	for i := range apiProfiles {
		profiles = append(profiles, apiProfiles[i].ToDomainProfile())
	}
	return profiles, nil
}

// ProfileTransfer moves an amount of currency between two profiles owned by
// the same credential. The source profile must be the one linked to the API
// key. The amount is quoted to 2 decimal places on the wire.
func (c *Client) ProfileTransfer(ctx context.Context, from, to, currency string, amount float64) (domain.Transfer, error) {
	body := map[string]string{
		"from":     from,
		"to":       to,
		"currency": currency,
		"amount":   FormatAmount(amount),
	}

	respBody, err := c.doSignedRequest(ctx, http.MethodPost, "/profiles/transfer", body)
	if err != nil {
		return domain.Transfer{}, fmt.Errorf("coinbase: profile transfer: %w", err)
	}

	var result APITransferResult
	// The endpoint historically returns an empty body on success; tolerate
	// both shapes.
	if len(respBody) > 0 {
		_ = json.Unmarshal(respBody, &result)
	}

	t := domain.Transfer{
		ID:        result.ID,
		From:      from,
		To:        to,
		Currency:  currency,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	return t, nil
}

// PlaceOrder submits a limit order and returns the exchange's view of it.
func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.Order, error) {
	body := map[string]string{
		"side":       string(req.Side),
		"price":      FormatPrice(req.Price),
		"size":       FormatSize(req.Size),
		"product_id": req.ProductID,
	}
	if req.ClientOID != "" {
		body["client_oid"] = req.ClientOID
	}

	respBody, err := c.doSignedRequest(ctx, http.MethodPost, "/orders", body)
	if err != nil {
		return domain.Order{}, fmt.Errorf("coinbase: place %s order: %w", req.Side, err)
	}

	var apiOrder APIOrder
	if err := json.Unmarshal(respBody, &apiOrder); err != nil {
		return domain.Order{}, fmt.Errorf("coinbase: decode order: %w", err)
	}

	return apiOrder.ToDomainOrder(), nil
}

// GetOrder retrieves a single order by ID.
func (c *Client) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	path := fmt.Sprintf("/orders/%s", url.PathEscape(orderID))

	respBody, err := c.doSignedRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("coinbase: get order %s: %w", orderID, err)
	}

	var apiOrder APIOrder
	if err := json.Unmarshal(respBody, &apiOrder); err != nil {
		return domain.Order{}, fmt.Errorf("coinbase: decode order: %w", err)
	}

	return apiOrder.ToDomainOrder(), nil
}

// CancelOrder cancels an order by ID and returns the identifier the exchange
// acknowledged. Callers must compare it to the submitted identifier; a
// mismatch means the cancellation cannot be trusted.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (string, error) {
	path := fmt.Sprintf("/orders/%s", url.PathEscape(orderID))

	respBody, err := c.doSignedRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return "", fmt.Errorf("coinbase: cancel order %s: %w", orderID, err)
	}

	// The exchange answers with the cancelled id as a JSON string, or as a
	// one-element array on some deployments.
	var single string
	if err := json.Unmarshal(respBody, &single); err == nil {
		return single, nil
	}
	var many []string
	if err := json.Unmarshal(respBody, &many); err == nil && len(many) > 0 {
		return many[0], nil
	}
	return "", fmt.Errorf("coinbase: decode cancel response %q", string(respBody))
}

// GetTicker returns the last traded price for a product.
func (c *Client) GetTicker(ctx context.Context, productID string) (float64, error) {
	path := fmt.Sprintf("/products/%s/ticker", url.PathEscape(productID))

	respBody, err := c.doSignedRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, fmt.Errorf("coinbase: get ticker %s: %w", productID, err)
	}

	var ticker APITicker
	if err := json.Unmarshal(respBody, &ticker); err != nil {
		return 0, fmt.Errorf("coinbase: decode ticker: %w", err)
	}

	price := parseFloat(ticker.Price)
	if price <= 0 {
		return 0, fmt.Errorf("coinbase: ticker %s returned price %q", productID, ticker.Price)
	}
	return price, nil
}

// GetAvailableBalance returns the available (not held) balance of the given
// currency's account.
func (c *Client) GetAvailableBalance(ctx context.Context, currency string) (float64, error) {
	respBody, err := c.doSignedRequest(ctx, http.MethodGet, "/accounts", nil)
	if err != nil {
		return 0, fmt.Errorf("coinbase: get accounts: %w", err)
	}

	var accounts []APIAccount
	if err := json.Unmarshal(respBody, &accounts); err != nil {
		return 0, fmt.Errorf("coinbase: decode accounts: %w", err)
	}

	for i := range accounts {
		if accounts[i].Currency == currency {
			return parseFloat(accounts[i].Available), nil
		}
	}
	return 0, fmt.Errorf("coinbase: no %s account: %w", currency, domain.ErrNotFound)
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doSignedRequest builds, signs, sends, and reads an HTTP request against the
// exchange API, returning the raw response body. On a 401 response the whole
// operation is re-signed with a fresh timestamp and retried up to
// authRetryLimit additional times; any other failure is returned immediately
// (a rejected request may already have taken effect on the exchange, so blind
// retry is unsafe).
func (c *Client) doSignedRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	var respBody []byte
	err := withRetry(ctx, 1+authRetryLimit,
		func(err error) bool { return errors.Is(err, domain.ErrUnauthorized) },
		func() error {
			var attemptErr error
			respBody, attemptErr = c.doOnce(ctx, method, path, bodyBytes)
			return attemptErr
		},
	)
	if errors.Is(err, domain.ErrUnauthorized) {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthRetryExhausted, err)
	}
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

// doOnce performs a single signed attempt. The signature carries a fresh
// timestamp each time so a retried attempt is never replayed bytes.
func (c *Client) doOnce(ctx context.Context, method, path string, bodyBytes []byte) ([]byte, error) {
	var bodyReader io.Reader
	if bodyBytes != nil {
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if bodyBytes != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	headers, err := c.signer.Headers(method, path, string(bodyBytes))
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
