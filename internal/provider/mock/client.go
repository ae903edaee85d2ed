// Package mock is a deterministic stand-in for internal/provider.Provider,
// used in tests and local/dev bootstrap.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/poolcard/ledger-core/internal/provider"
)

// Client is a deterministic, in-memory provider.Provider.
type Client struct {
	mu   sync.Mutex
	seq  int
	fail bool
}

// NewClient constructs a mock client.
func NewClient() *Client { return &Client{} }

// FailNext makes the next InitiatePayout call return an error, to exercise
// the withdrawal coordinator's reversal path.
func (c *Client) FailNext() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fail = true
}

func (c *Client) next(prefix string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++

	return fmt.Sprintf("%s-%d", prefix, c.seq)
}

// Name implements provider.Provider.
func (c *Client) Name() string { return "mock" }

// EnsureCustomer implements provider.Provider.
func (c *Client) EnsureCustomer(_ context.Context, _, _, _ string) (provider.Customer, error) {
	return provider.Customer{ExternalCustomerID: c.next("cust")}, nil
}

// EnsureAccount implements provider.Provider.
func (c *Client) EnsureAccount(_ context.Context, _, _, _ string) (provider.Account, error) {
	return provider.Account{ExternalAccountID: c.next("acct"), Status: "ACTIVE", Last4: "0000"}, nil
}

// CreateCard implements provider.Provider.
func (c *Client) CreateCard(_ context.Context, _, _, _, _, _ string) (provider.CardResult, error) {
	return provider.CardResult{ExternalCardID: c.next("card"), Last4: "4242", Status: "ACTIVE"}, nil
}

// InitiatePayout implements provider.Provider.
func (c *Client) InitiatePayout(_ context.Context, req provider.PayoutRequest) (provider.Payout, error) {
	c.mu.Lock()
	shouldFail := c.fail
	c.fail = false
	c.mu.Unlock()

	if shouldFail {
		return provider.Payout{}, fmt.Errorf("mock provider: simulated payout failure for reference %s", req.Reference)
	}

	return provider.Payout{ExternalTransferID: c.next("xfer"), Status: "PENDING"}, nil
}

// VerifyWebhookSignature implements provider.Provider. The mock accepts any
// payload carrying the header X-Mock-Signature: valid.
func (c *Client) VerifyWebhookSignature(_ []byte, headers map[string]string) bool {
	return headers["X-Mock-Signature"] == "valid"
}

var _ provider.Provider = (*Client)(nil)
