package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Shawarmaa/BiggerNumbers/internal/core"
	"github.com/Shawarmaa/BiggerNumbers/internal/plaid"
)

type fakeUpstream struct {
	linkToken   string
	accessToken string
	txns        []core.Transaction
	err         error

	fetchCalls     int
	gotUserID      string
	gotPublicToken string
	gotAccessToken string
	gotStart       core.Date
	gotEnd         core.Date
}

func (f *fakeUpstream) CreateLinkToken(ctx context.Context, clientUserID string) (string, error) {
	f.gotUserID = clientUserID
	return f.linkToken, f.err
}

func (f *fakeUpstream) ExchangePublicToken(ctx context.Context, publicToken string) (string, error) {
	f.gotPublicToken = publicToken
	return f.accessToken, f.err
}

func (f *fakeUpstream) GetTransactions(ctx context.Context, accessToken string, start, end core.Date) ([]core.Transaction, error) {
	f.fetchCalls++
	f.gotAccessToken = accessToken
	f.gotStart, f.gotEnd = start, end
	if f.err != nil {
		return nil, f.err
	}
	return f.txns, nil
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
}

func newTestServer(up Upstream, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	return NewServer(":0", up, opts)
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestRootAndHealth(t *testing.T) {
	srv := newTestServer(&fakeUpstream{}, Options{})

	rr := do(t, srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("root status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "BiggerNumbers API is running") {
		t.Fatalf("root body = %s", rr.Body.String())
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
	}
}

func TestCreateLinkToken(t *testing.T) {
	up := &fakeUpstream{linkToken: "link-sandbox-123"}
	srv := newTestServer(up, Options{})

	rr := do(t, srv, http.MethodPost, "/create_link_token", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		LinkToken string `json:"link_token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.LinkToken != "link-sandbox-123" {
		t.Fatalf("link_token = %q", resp.LinkToken)
	}

	// Caller-supplied client_user_id is forwarded.
	do(t, srv, http.MethodPost, "/create_link_token", `{"client_user_id":"user-42"}`)
	if up.gotUserID != "user-42" {
		t.Fatalf("client_user_id = %q", up.gotUserID)
	}
}

func TestCreateLinkTokenUpstreamFailure(t *testing.T) {
	up := &fakeUpstream{err: &plaid.Error{ErrorCode: "INVALID_API_KEYS", Message: "invalid client_id"}}
	srv := newTestServer(up, Options{})

	rr := do(t, srv, http.MethodPost, "/create_link_token", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "invalid client_id") {
		t.Fatalf("provider message not embedded: %s", rr.Body.String())
	}
}

func TestExchangePublicToken(t *testing.T) {
	up := &fakeUpstream{accessToken: "access-xyz"}
	srv := newTestServer(up, Options{})

	rr := do(t, srv, http.MethodPost, "/exchange_public_token", `{"public_token":"public-abc"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if up.gotPublicToken != "public-abc" {
		t.Fatalf("public_token = %q", up.gotPublicToken)
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AccessToken != "access-xyz" {
		t.Fatalf("access_token = %q", resp.AccessToken)
	}
}

func TestExchangePublicTokenValidation(t *testing.T) {
	srv := newTestServer(&fakeUpstream{}, Options{})

	cases := []struct {
		name string
		body string
	}{
		{"missing field", `{}`},
		{"blank token", `{"public_token":"  "}`},
		{"invalid json", `{not json`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/exchange_public_token", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), "error") {
				t.Fatalf("body = %s", rr.Body.String())
			}
		})
	}
}

func TestSpending(t *testing.T) {
	// Reference date pinned to 2024-06-15; the worked scenario from the
	// response contract.
	up := &fakeUpstream{txns: []core.Transaction{
		{Date: core.NewDate(2024, 6, 15), Amount: decimal.RequireFromString("10.505")},
		{Date: core.NewDate(2024, 6, 10), Amount: decimal.RequireFromString("20.00")},
		{Date: core.NewDate(2024, 6, 14), Amount: decimal.RequireFromString("-5.00")},
		{Date: core.NewDate(2024, 5, 20), Amount: decimal.RequireFromString("100.00")},
	}}
	srv := newTestServer(up, Options{})

	rr := do(t, srv, http.MethodGet, "/spending/access-xyz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	if up.gotAccessToken != "access-xyz" {
		t.Fatalf("access_token = %q", up.gotAccessToken)
	}
	if up.gotStart != core.NewDate(2024, 5, 16) || up.gotEnd != core.NewDate(2024, 6, 15) {
		t.Fatalf("fetch window = %s..%s", up.gotStart, up.gotEnd)
	}

	var resp struct {
		Daily   float64 `json:"daily"`
		Weekly  float64 `json:"weekly"`
		Monthly float64 `json:"monthly"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Daily != 10.51 || resp.Weekly != 30.51 || resp.Monthly != 130.51 {
		t.Fatalf("got %v/%v/%v, want 10.51/30.51/130.51", resp.Daily, resp.Weekly, resp.Monthly)
	}
}

func TestSpendingEmptyWindow(t *testing.T) {
	srv := newTestServer(&fakeUpstream{}, Options{})

	rr := do(t, srv, http.MethodGet, "/spending/access-xyz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp map[string]float64
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, k := range []string{"daily", "weekly", "monthly"} {
		if resp[k] != 0 {
			t.Fatalf("%s = %v, want 0", k, resp[k])
		}
	}
}

func TestSpendingUpstreamFailure(t *testing.T) {
	up := &fakeUpstream{err: &plaid.Error{ErrorCode: "ITEM_LOGIN_REQUIRED", Message: "the login details have changed"}}
	srv := newTestServer(up, Options{})

	rr := do(t, srv, http.MethodGet, "/spending/expired-token", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "the login details have changed") {
		t.Fatalf("provider message not embedded: %s", rr.Body.String())
	}
}

func TestSpendingCustomLookback(t *testing.T) {
	up := &fakeUpstream{}
	srv := newTestServer(up, Options{LookbackDays: 60})

	do(t, srv, http.MethodGet, "/spending/access-xyz", "")
	if up.gotStart != core.NewDate(2024, 4, 16) {
		t.Fatalf("fetch start = %s, want 2024-04-16", up.gotStart)
	}
}

func TestSpendingCache(t *testing.T) {
	up := &fakeUpstream{txns: []core.Transaction{
		{Date: core.NewDate(2024, 6, 15), Amount: decimal.RequireFromString("1.00")},
	}}
	srv := newTestServer(up, Options{CacheTTL: time.Minute, CacheSize: 8})
	defer srv.Shutdown(context.Background())

	do(t, srv, http.MethodGet, "/spending/access-xyz", "")
	do(t, srv, http.MethodGet, "/spending/access-xyz", "")
	if up.fetchCalls != 1 {
		t.Fatalf("fetchCalls = %d, want 1 (second request served from cache)", up.fetchCalls)
	}

	// A different token is a different cache entry.
	do(t, srv, http.MethodGet, "/spending/other-token", "")
	if up.fetchCalls != 2 {
		t.Fatalf("fetchCalls = %d, want 2", up.fetchCalls)
	}
}

func TestSpendingNoCacheRefetches(t *testing.T) {
	up := &fakeUpstream{}
	srv := newTestServer(up, Options{})

	do(t, srv, http.MethodGet, "/spending/access-xyz", "")
	do(t, srv, http.MethodGet, "/spending/access-xyz", "")
	if up.fetchCalls != 2 {
		t.Fatalf("fetchCalls = %d, want 2 (caching disabled by default)", up.fetchCalls)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&fakeUpstream{}, Options{})

	rr := do(t, srv, http.MethodGet, "/create_link_token", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rr.Code)
	}
}
