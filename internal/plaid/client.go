// Package plaid implements a typed client for the Plaid REST API, covering
// the three capabilities the backend depends on: link-token creation,
// public-token exchange and transaction retrieval.
package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Shawarmaa/BiggerNumbers/internal/core"
	applog "github.com/Shawarmaa/BiggerNumbers/internal/log"
)

// Environment selects which Plaid host the client talks to.
type Environment string

const (
	EnvSandbox     Environment = "sandbox"
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

var hosts = map[Environment]string{
	EnvSandbox:     "https://sandbox.plaid.com",
	EnvDevelopment: "https://development.plaid.com",
	EnvProduction:  "https://production.plaid.com",
}

// Config holds the credentials and link scope for a Client.
type Config struct {
	Environment Environment

	// BaseURL overrides the environment host when set. Used to point the
	// client at a mock server.
	BaseURL      string
	ClientID     string
	Secret       string
	ClientName   string
	Products     []string
	CountryCodes []string
	Language     string

	// Timeout bounds each HTTP call. Zero means 30s.
	Timeout time.Duration

	// PageSize is the transactions/get page size (Plaid caps it at 500).
	// Zero means 500.
	PageSize int

	// MaxConcurrentPages bounds parallel page fetches. Zero means 4.
	MaxConcurrentPages int
}

// Client talks to the Plaid API. Safe for concurrent use; holds no mutable
// state beyond the shared http.Client.
type Client struct {
	cfg    Config
	host   string
	client *http.Client
	logger *applog.Logger
}

// New validates the configuration and returns a ready Client.
func New(cfg Config, logger *applog.Logger) (*Client, error) {
	host := cfg.BaseURL
	if host == "" {
		var ok bool
		host, ok = hosts[cfg.Environment]
		if !ok {
			return nil, fmt.Errorf("unknown plaid environment %q", cfg.Environment)
		}
	}
	if cfg.ClientID == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("plaid client id and secret are required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageSize <= 0 || cfg.PageSize > 500 {
		cfg.PageSize = 500
	}
	if cfg.MaxConcurrentPages <= 0 {
		cfg.MaxConcurrentPages = 4
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Client{
		cfg:    cfg,
		host:   host,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.WithComponent(applog.ComponentPlaid),
	}, nil
}

type linkTokenRequest struct {
	ClientID     string        `json:"client_id"`
	Secret       string        `json:"secret"`
	ClientName   string        `json:"client_name"`
	User         linkTokenUser `json:"user"`
	Products     []string      `json:"products"`
	CountryCodes []string      `json:"country_codes"`
	Language     string        `json:"language"`
}

type linkTokenUser struct {
	ClientUserID string `json:"client_user_id"`
}

type linkTokenResponse struct {
	LinkToken  string `json:"link_token"`
	Expiration string `json:"expiration"`
	RequestID  string `json:"request_id"`
}

// CreateLinkToken initializes an account-linking session and returns the
// link token. An empty clientUserID gets a generated one.
func (c *Client) CreateLinkToken(ctx context.Context, clientUserID string) (string, error) {
	if clientUserID == "" {
		clientUserID = uuid.NewString()
	}
	req := linkTokenRequest{
		ClientID:     c.cfg.ClientID,
		Secret:       c.cfg.Secret,
		ClientName:   c.cfg.ClientName,
		User:         linkTokenUser{ClientUserID: clientUserID},
		Products:     c.cfg.Products,
		CountryCodes: c.cfg.CountryCodes,
		Language:     c.cfg.Language,
	}
	var resp linkTokenResponse
	if err := c.post(ctx, "/link/token/create", req, &resp); err != nil {
		return "", err
	}
	c.logger.DebugContext(ctx, "link token created", "request_id", resp.RequestID)
	return resp.LinkToken, nil
}

type exchangeRequest struct {
	ClientID    string `json:"client_id"`
	Secret      string `json:"secret"`
	PublicToken string `json:"public_token"`
}

type exchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
	RequestID   string `json:"request_id"`
}

// ExchangePublicToken exchanges a short-lived public token for a long-lived
// access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (string, error) {
	req := exchangeRequest{
		ClientID:    c.cfg.ClientID,
		Secret:      c.cfg.Secret,
		PublicToken: publicToken,
	}
	var resp exchangeResponse
	if err := c.post(ctx, "/item/public_token/exchange", req, &resp); err != nil {
		return "", err
	}
	c.logger.DebugContext(ctx, "public token exchanged", "item_id", resp.ItemID, "request_id", resp.RequestID)
	return resp.AccessToken, nil
}

type transactionsRequest struct {
	ClientID    string              `json:"client_id"`
	Secret      string              `json:"secret"`
	AccessToken string              `json:"access_token"`
	StartDate   string              `json:"start_date"`
	EndDate     string              `json:"end_date"`
	Options     transactionsOptions `json:"options"`
}

type transactionsOptions struct {
	Count  int `json:"count"`
	Offset int `json:"offset"`
}

type transactionsResponse struct {
	Transactions      []wireTransaction `json:"transactions"`
	TotalTransactions int               `json:"total_transactions"`
	RequestID         string            `json:"request_id"`
}

type wireTransaction struct {
	TransactionID   string      `json:"transaction_id"`
	Name            string      `json:"name"`
	Amount          json.Number `json:"amount"`
	Date            string      `json:"date"`
	ISOCurrencyCode string      `json:"iso_currency_code"`
}

// GetTransactions returns every transaction in the inclusive date range.
// Plaid pages transactions/get; the first page reports the total and the
// remaining pages are fetched concurrently, bounded by MaxConcurrentPages.
func (c *Client) GetTransactions(ctx context.Context, accessToken string, start, end core.Date) ([]core.Transaction, error) {
	first, err := c.transactionsPage(ctx, accessToken, start, end, 0)
	if err != nil {
		return nil, err
	}

	wire := first.Transactions
	if first.TotalTransactions > len(wire) {
		var offsets []int
		for off := len(wire); off < first.TotalTransactions; off += c.cfg.PageSize {
			offsets = append(offsets, off)
		}

		results := make([][]wireTransaction, len(offsets))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.cfg.MaxConcurrentPages)
		for i, off := range offsets {
			i, off := i, off
			g.Go(func() error {
				page, err := c.transactionsPage(gctx, accessToken, start, end, off)
				if err != nil {
					return err
				}
				results[i] = page.Transactions
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, page := range results {
			wire = append(wire, page...)
		}
	}

	txns := make([]core.Transaction, 0, len(wire))
	for _, wt := range wire {
		t, err := wt.toTransaction()
		if err != nil {
			return nil, &Error{Message: fmt.Sprintf("malformed transaction %s: %v", wt.TransactionID, err), Err: err}
		}
		txns = append(txns, t)
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].Date.Before(txns[j].Date.Time) })

	c.logger.DebugContext(ctx, "transactions fetched",
		"count", len(txns), "start", start.String(), "end", end.String())
	return txns, nil
}

func (c *Client) transactionsPage(ctx context.Context, accessToken string, start, end core.Date, offset int) (*transactionsResponse, error) {
	req := transactionsRequest{
		ClientID:    c.cfg.ClientID,
		Secret:      c.cfg.Secret,
		AccessToken: accessToken,
		StartDate:   start.String(),
		EndDate:     end.String(),
		Options:     transactionsOptions{Count: c.cfg.PageSize, Offset: offset},
	}
	var resp transactionsResponse
	if err := c.post(ctx, "/transactions/get", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// post sends a JSON request and decodes the response, translating every
// failure mode into *Error.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Message: "encode request: " + err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(payload))
	if err != nil {
		return &Error{Message: "build request: " + err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Message: "plaid request failed: " + err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: "read response: " + err.Error(), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var envelope errorEnvelope
		if jsonErr := json.Unmarshal(data, &envelope); jsonErr == nil && envelope.ErrorCode != "" {
			apiErr.ErrorType = envelope.ErrorType
			apiErr.ErrorCode = envelope.ErrorCode
			apiErr.Message = envelope.ErrorMessage
			apiErr.RequestID = envelope.RequestID
		} else {
			apiErr.Message = fmt.Sprintf("status %d: %s", resp.StatusCode, data)
		}
		c.logger.WarnContext(ctx, "plaid call failed",
			"path", path, "status", resp.StatusCode, "error_code", apiErr.ErrorCode)
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: "decode response: " + err.Error(), Err: err}
	}
	return nil
}

func (wt wireTransaction) toTransaction() (core.Transaction, error) {
	d, err := core.ParseDate(wt.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", core.ErrMissingDate, err)
	}
	amount, err := decimalFromNumber(wt.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
	}
	return core.Transaction{
		ID:       wt.TransactionID,
		Date:     d,
		Name:     wt.Name,
		Amount:   amount,
		Currency: wt.ISOCurrencyCode,
	}, nil
}
