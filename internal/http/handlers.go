package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ledgerview/internal/amqp"
	"ledgerview/internal/core"
	"ledgerview/internal/export"
	"ledgerview/internal/finance"
	"ledgerview/internal/report"
)

type bucketResponse struct {
	Key        string  `json:"key"`
	Name       string  `json:"name"`
	Total      string  `json:"total"`
	Percentage float64 `json:"percentage"`
}

type breakdownResponse struct {
	AccountID  string           `json:"account_id"`
	Dimension  string           `json:"dimension"`
	Buckets    []bucketResponse `json:"buckets"`
	GrandTotal string           `json:"grand_total"`
}

type accountResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	BankName string `json:"bank_name,omitempty"`
	Currency string `json:"currency,omitempty"`
	Balance  string `json:"balance,omitempty"`
}

type dashboardResponse struct {
	Accounts     []accountResponse `json:"accounts"`
	Destinations int               `json:"destinations"`
}

type balanceResponse struct {
	AccountID  string    `json:"account_id"`
	Balance    string    `json:"balance"`
	ComputedAt time.Time `json:"computed_at"`
}

type refreshRequest struct {
	Scope     string `json:"scope"`
	AccountID string `json:"account_id,omitempty"`
}

// handleDashboard lists the user's own accounts and the destination count.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owned, err := s.directory.OwnedAccounts(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to load accounts")
		return
	}
	destinations, err := s.directory.DestinationAccounts(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to load accounts")
		return
	}

	resp := dashboardResponse{
		Accounts:     make([]accountResponse, 0, len(owned)),
		Destinations: len(destinations),
	}
	for _, a := range owned {
		resp.Accounts = append(resp.Accounts, accountResponse{
			ID:       a.ID,
			Name:     a.Name,
			BankName: a.BankName,
			Currency: a.Currency,
			Balance:  a.InitialBalance.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleBreakdown serves a breakdown summary for one account, cached per
// account+dimension+range.
func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	summary, status, msg := s.breakdownForRequest(r)
	if msg != "" {
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, toBreakdownResponse(r.PathValue("id"), summary))
}

// handleBalance recomputes one account's running balance on demand.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := r.PathValue("id")

	account, ok, err := s.findAccount(ctx, accountID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to load accounts")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	balance, err := s.balances.ComputeOne(ctx, account)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to load balance")
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{
		AccountID:  account.ID,
		Balance:    balance.Balance.String(),
		ComputedAt: balance.ComputedAt,
	})
}

// handleDestinationAccounts lists destination accounts with their last
// computed balances.
func (s *Server) handleDestinationAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	destinations, err := s.directory.DestinationAccounts(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to load accounts")
		return
	}
	stored, err := s.balances.StoredBalances(ctx)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to load balances")
		return
	}

	resp := make([]accountResponse, 0, len(destinations))
	for _, a := range destinations {
		ar := accountResponse{
			ID:       a.ID,
			Name:     a.Name,
			BankName: a.BankName,
			Currency: a.Currency,
		}
		if balance, ok := stored[a.ID]; ok {
			ar.Balance = balance.String()
		}
		resp = append(resp, ar)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExportCSV renders a breakdown summary as a CSV download.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	summary, status, msg := s.breakdownForQuery(r, accountID)
	if msg != "" {
		writeError(w, status, msg)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "breakdown-"+accountID+".csv"))
	if err := export.WriteSummaryCSV(w, summary); err != nil {
		// Headers are gone already; nothing better to do than log upstream.
		return
	}
}

// handleExportSheet appends a breakdown summary to the configured Google
// spreadsheet.
func (s *Server) handleExportSheet(w http.ResponseWriter, r *http.Request) {
	if s.sheets == nil {
		writeError(w, http.StatusServiceUnavailable, "sheet export is not configured")
		return
	}

	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	account, ok, err := s.findAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to load accounts")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	summary, status, msg := s.breakdownForQuery(r, accountID)
	if msg != "" {
		writeError(w, status, msg)
		return
	}

	if err := s.sheets.AppendSummary(r.Context(), account.Name, summary); err != nil {
		writeError(w, http.StatusBadGateway, "failed to export to sheet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "exported",
		"rows":   len(summary.Buckets),
	})
}

// handleRefresh publishes a scoped refresh event and drops the local
// caches it covers. The recomputation itself happens in the worker.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	msg := amqp.RefreshMessage{Scope: amqp.RefreshScope(req.Scope), AccountID: req.AccountID}
	if err := msg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch msg.Scope {
	case amqp.ScopeAccount:
		s.breakdownCache.DeletePrefix(req.AccountID + "/")
	case amqp.ScopeDestinations:
		s.breakdownCache.DeletePrefix("")
	case amqp.ScopeCategories:
		s.breakdownCache.DeletePrefix("")
		s.directory.Invalidate()
	}

	if s.publisher != nil {
		if err := s.publisher.PublishRefresh(ctx, msg.Scope, msg.AccountID); err != nil {
			writeError(w, http.StatusBadGateway, "failed to publish refresh event")
			return
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// breakdownForRequest computes (or serves from cache) the breakdown for a
// path-addressed account.
func (s *Server) breakdownForRequest(r *http.Request) (core.BreakdownSummary, int, string) {
	return s.breakdownForQuery(r, r.PathValue("id"))
}

func (s *Server) breakdownForQuery(r *http.Request, accountID string) (core.BreakdownSummary, int, string) {
	ctx := r.Context()
	q := r.URL.Query()

	dimension := core.Dimension(q.Get("dimension"))
	if dimension == "" {
		dimension = core.DimensionTargetAccount
	}
	if !dimension.Valid() {
		return core.BreakdownSummary{}, http.StatusBadRequest, "invalid dimension"
	}

	startDate, endDate, err := parseDateRange(q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		return core.BreakdownSummary{}, http.StatusBadRequest, err.Error()
	}
	categoryIDs := q["category_id"]

	cacheKey := fmt.Sprintf("%s/%s/%s/%s/%s", accountID, dimension, startDate, endDate, strings.Join(categoryIDs, ","))
	if cached, ok := s.breakdownCache.Get(cacheKey); ok {
		return cached, http.StatusOK, ""
	}

	names, err := s.namesFor(ctx, dimension)
	if err != nil {
		return core.BreakdownSummary{}, http.StatusBadGateway, "failed to load directory"
	}

	summary, err := s.engine.Breakdown(ctx, report.BreakdownQuery{
		Filter: report.Filter{
			AccountID:   accountID,
			StartDate:   startDate,
			EndDate:     endDate,
			CategoryIDs: categoryIDs,
		},
		Dimension: dimension,
		PageSize:  s.pageSize,
		Names:     names,
	})
	if err != nil {
		if errors.Is(err, report.ErrInvalidDimension) || errors.Is(err, report.ErrInvalidPageSize) {
			return core.BreakdownSummary{}, http.StatusBadRequest, err.Error()
		}
		return core.BreakdownSummary{}, http.StatusBadGateway, "failed to load breakdown"
	}

	s.breakdownCache.Set(cacheKey, summary)
	return summary, http.StatusOK, ""
}

func (s *Server) namesFor(ctx context.Context, dimension core.Dimension) (finance.NameLookup, error) {
	if dimension == core.DimensionCategory {
		return s.directory.CategoryNames(ctx)
	}
	return s.directory.AccountNames(ctx)
}

// findAccount resolves an account id against the directory snapshot,
// owned accounts first.
func (s *Server) findAccount(ctx context.Context, accountID string) (core.Account, bool, error) {
	owned, err := s.directory.OwnedAccounts(ctx)
	if err != nil {
		return core.Account{}, false, err
	}
	for _, a := range owned {
		if a.ID == accountID {
			return a, true, nil
		}
	}
	destinations, err := s.directory.DestinationAccounts(ctx)
	if err != nil {
		return core.Account{}, false, err
	}
	for _, a := range destinations {
		if a.ID == accountID {
			return a, true, nil
		}
	}
	return core.Account{}, false, nil
}

func toBreakdownResponse(accountID string, summary core.BreakdownSummary) breakdownResponse {
	resp := breakdownResponse{
		AccountID:  accountID,
		Dimension:  string(summary.Dimension),
		Buckets:    make([]bucketResponse, 0, len(summary.Buckets)),
		GrandTotal: summary.GrandTotal.String(),
	}
	for _, b := range summary.Buckets {
		resp.Buckets = append(resp.Buckets, bucketResponse{
			Key:        b.Key,
			Name:       b.Name,
			Total:      b.Total.String(),
			Percentage: b.Percentage,
		})
	}
	return resp
}
