// Package restapi implements the HTTP client for the finance backend,
// the opaque collaborator every aggregation run reads from.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ledgerview/internal/core"
	"ledgerview/internal/finance"
)

// ErrBackendStatus wraps any non-2xx response from the collaborator.
var ErrBackendStatus = errors.New("unexpected backend status")

// Client talks JSON to the REST backend. It is safe for concurrent use:
// independent aggregation runs share one client and one connection pool.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// Ensure interface conformance
var (
	_ finance.TransactionSource = (*Client)(nil)
	_ finance.ReportSource      = (*Client)(nil)
	_ finance.AccountSource     = (*Client)(nil)
	_ finance.CategorySource    = (*Client)(nil)
)

func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// ListTransactions implements finance.TransactionSource. The backend
// returns at most q.Limit records; filters are applied server-side.
func (c *Client) ListTransactions(ctx context.Context, q finance.TransactionQuery) ([]core.Transaction, error) {
	params := url.Values{}
	params.Set("skip", strconv.Itoa(q.Skip))
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.AccountID != "" {
		params.Set("account_id", q.AccountID)
	}
	if !q.StartDate.IsZero() {
		params.Set("start_date", q.StartDate.String())
	}
	if !q.EndDate.IsZero() {
		params.Set("end_date", q.EndDate.String())
	}

	var dtos []transactionDTO
	if err := c.getJSON(ctx, "/transactions/", params, &dtos); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return toCoreTransactions(dtos)
}

// TypeReport implements finance.ReportSource.
func (c *Client) TypeReport(ctx context.Context, q finance.ReportQuery) ([]core.Transaction, error) {
	req := reportRequest(q)
	for _, t := range q.Types {
		req.Types = append(req.Types, string(t))
	}

	var resp reportResponseDTO
	if err := c.postJSON(ctx, "/reports/type", req, &resp); err != nil {
		return nil, fmt.Errorf("type report: %w", err)
	}
	return toCoreTransactions(resp.Transactions)
}

// CategoryReport implements finance.ReportSource.
func (c *Client) CategoryReport(ctx context.Context, q finance.ReportQuery) ([]core.Transaction, error) {
	req := reportRequest(q)
	req.CategoryIDs = q.CategoryIDs

	var resp reportResponseDTO
	if err := c.postJSON(ctx, "/reports/category", req, &resp); err != nil {
		return nil, fmt.Errorf("category report: %w", err)
	}
	return toCoreTransactions(resp.Transactions)
}

// ListAccounts implements finance.AccountSource.
func (c *Client) ListAccounts(ctx context.Context) ([]core.Account, error) {
	var dtos []accountDTO
	if err := c.getJSON(ctx, "/accounts/", nil, &dtos); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return toCoreAccounts(dtos)
}

// ListDestinationAccounts implements finance.AccountSource.
func (c *Client) ListDestinationAccounts(ctx context.Context, skip, limit int) ([]core.Account, error) {
	params := url.Values{}
	params.Set("skip", strconv.Itoa(skip))
	params.Set("limit", strconv.Itoa(limit))

	var dtos []accountDTO
	if err := c.getJSON(ctx, "/accounts/destination", params, &dtos); err != nil {
		return nil, fmt.Errorf("list destination accounts: %w", err)
	}
	return toCoreAccounts(dtos)
}

// ListCategories implements finance.CategorySource.
func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	var dtos []categoryDTO
	if err := c.getJSON(ctx, "/categories/", nil, &dtos); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toCore())
	}
	return out, nil
}

func reportRequest(q finance.ReportQuery) reportRequestDTO {
	return reportRequestDTO{
		AccountID: q.AccountID,
		StartDate: q.StartDate.String(),
		EndDate:   q.EndDate.String(),
		Skip:      q.Skip,
		Limit:     q.Limit,
	}
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a snippet for the log line; the body is not part of the
		// error contract.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%w: %s %s: %d %s", ErrBackendStatus, req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}
