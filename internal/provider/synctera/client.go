// Package synctera is the real HTTP adapter for the card/BaaS platform,
// implementing internal/provider.Provider. Grounded on the retry +
// circuit-breaker shape of tobi-techy-RAIL-BACKEND-SERVICE's
// internal/adapters/alpaca/client.go, using sony/gobreaker.
package synctera

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/poolcard/ledger-core/internal/provider"
	"github.com/poolcard/ledger-core/pkg/mlog"
)

const (
	defaultTimeout = 10 * time.Second
	maxRetries     = 2
	baseBackoff    = 200 * time.Millisecond
	replayWindow   = 5 * time.Minute
)

// Config configures a Client.
type Config struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	Timeout       time.Duration
}

// Client is the HTTP adapter for Synctera's card issuing/payout API.
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	logger         mlog.Logger
}

// NewClient constructs a Client with a 10s timeout and a circuit breaker
// that opens once more than 5 consecutive failures have occurred (on the
// sixth).
func NewClient(config Config, logger mlog.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	st := gobreaker.Settings{
		Name:        "SyncteraAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Infof("circuit breaker %s: %s -> %s", name, from, to)
		},
	}

	return &Client{
		config:         config,
		httpClient:     httpClient,
		circuitBreaker: gobreaker.NewCircuitBreaker(st),
		logger:         logger,
	}
}

// Name implements provider.Provider.
func (c *Client) Name() string { return "synctera" }

type ensureCustomerRequest struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	LegalName string `json:"legalName,omitempty"`
}

type ensureCustomerResponse struct {
	ExternalCustomerID string `json:"externalCustomerId"`
}

// EnsureCustomer implements provider.Provider.
func (c *Client) EnsureCustomer(ctx context.Context, userID, email, legalName string) (provider.Customer, error) {
	var resp ensureCustomerResponse

	err := c.do(ctx, "POST", "/v1/customers", ensureCustomerRequest{UserID: userID, Email: email, LegalName: legalName}, &resp)
	if err != nil {
		return provider.Customer{}, err
	}

	return provider.Customer{ExternalCustomerID: resp.ExternalCustomerID}, nil
}

type ensureAccountRequest struct {
	ExternalCustomerID string `json:"externalCustomerId"`
	Currency           string `json:"currency"`
	TemplateID         string `json:"templateId,omitempty"`
}

type ensureAccountResponse struct {
	ExternalAccountID string `json:"externalAccountId"`
	Status            string `json:"status"`
	Last4             string `json:"last4"`
}

// EnsureAccount implements provider.Provider.
func (c *Client) EnsureAccount(ctx context.Context, externalCustomerID, currency, templateID string) (provider.Account, error) {
	var resp ensureAccountResponse

	err := c.do(ctx, "POST", "/v1/accounts", ensureAccountRequest{
		ExternalCustomerID: externalCustomerID, Currency: currency, TemplateID: templateID,
	}, &resp)
	if err != nil {
		return provider.Account{}, err
	}

	return provider.Account{ExternalAccountID: resp.ExternalAccountID, Status: resp.Status, Last4: resp.Last4}, nil
}

type createCardRequest struct {
	ExternalCustomerID string `json:"externalCustomerId"`
	ExternalAccountID  string `json:"externalAccountId"`
	ProductID          string `json:"productId"`
	CardType           string `json:"cardType"`
	EmbossName         string `json:"embossName,omitempty"`
}

type createCardResponse struct {
	ExternalCardID string `json:"externalCardId"`
	Last4          string `json:"last4"`
	Status         string `json:"status"`
}

// CreateCard implements provider.Provider.
func (c *Client) CreateCard(ctx context.Context, externalCustomerID, externalAccountID, productID, cardType, embossName string) (provider.CardResult, error) {
	var resp createCardResponse

	err := c.do(ctx, "POST", "/v1/cards", createCardRequest{
		ExternalCustomerID: externalCustomerID, ExternalAccountID: externalAccountID,
		ProductID: productID, CardType: cardType, EmbossName: embossName,
	}, &resp)
	if err != nil {
		return provider.CardResult{}, err
	}

	return provider.CardResult{ExternalCardID: resp.ExternalCardID, Last4: resp.Last4, Status: resp.Status}, nil
}

type initiatePayoutRequest struct {
	SourceAccountID      string `json:"sourceAccountId"`
	DestinationCardToken string `json:"destinationCardToken"`
	AmountMinor          int64  `json:"amountMinor"`
	Currency             string `json:"currency"`
	Reference            string `json:"reference"`
}

type initiatePayoutResponse struct {
	ExternalTransferID string `json:"externalTransferId"`
	Status             string `json:"status"`
}

// InitiatePayout implements provider.Provider.
func (c *Client) InitiatePayout(ctx context.Context, req provider.PayoutRequest) (provider.Payout, error) {
	var resp initiatePayoutResponse

	err := c.do(ctx, "POST", "/v1/payouts", initiatePayoutRequest{
		SourceAccountID:      req.SourceAccountID,
		DestinationCardToken: req.DestinationCardToken,
		AmountMinor:          req.AmountMinor,
		Currency:             req.Currency,
		Reference:            req.Reference,
	}, &resp)
	if err != nil {
		return provider.Payout{}, err
	}

	return provider.Payout{ExternalTransferID: resp.ExternalTransferID, Status: resp.Status}, nil
}

// VerifyWebhookSignature implements provider.Provider. It supports
// comma-separated signatures for secret rotation and rejects a timestamp
// more than replayWindow away from now in either direction.
func (c *Client) VerifyWebhookSignature(rawBody []byte, headers map[string]string) bool {
	timestamp := headers["X-Synctera-Timestamp"]
	signatureHeader := headers["X-Synctera-Signature"]

	if timestamp == "" || signatureHeader == "" {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}

	age := time.Since(time.Unix(ts, 0))
	if age > replayWindow || age < -replayWindow {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.config.WebhookSecret))
	mac.Write([]byte(timestamp + "." + string(rawBody)))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range strings.Split(signatureHeader, ",") {
		if hmac.Equal([]byte(strings.TrimSpace(candidate)), []byte(expected)) {
			return true
		}
	}

	return false
}

// do executes one request through the circuit breaker with up to maxRetries
// retries on 429/5xx, exponential backoff between attempts.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	_, err := c.circuitBreaker.Execute(func() (any, error) {
		return nil, c.doWithRetry(ctx, method, path, body, out)
	})

	return err
}

func (c *Client) doWithRetry(ctx context.Context, method, path string, body, out any) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(baseBackoff * time.Duration(1<<uint(attempt-1))):
			}
		}

		status, err := c.doOnce(ctx, method, path, body, out)
		if err == nil {
			return nil
		}

		lastErr = err

		if status != 429 && (status < 500 || status >= 600) {
			return err
		}
	}

	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out any) (int, error) {
	var buf bytes.Buffer

	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, &buf)
	if err != nil {
		return 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}

	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("synctera: %s %s returned %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, err
		}
	}

	return resp.StatusCode, nil
}

var _ provider.Provider = (*Client)(nil)
