package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"montra/internal/core"
	"montra/internal/ledger"
	"montra/internal/report"
)

type monthNavView struct {
	All     bool   `json:"all"`
	Current string `json:"current"`
	Prev    string `json:"prev,omitempty"`
	Next    string `json:"next,omitempty"`
	Label   string `json:"label"`
}

func newMonthNavView(n core.MonthNav) monthNavView {
	if n.All {
		return monthNavView{All: true, Label: n.Label}
	}
	return monthNavView{
		Current: core.MonthKey(n.Current),
		Prev:    core.MonthKey(n.Prev),
		Next:    core.MonthKey(n.Next),
		Label:   n.Label,
	}
}

type listFilters struct {
	Query    string `json:"q"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

type transactionList struct {
	Transactions []report.TransactionView `json:"transactions"`
	Page         PageInfo                 `json:"page"`
	Month        monthNavView             `json:"month"`
	Filters      listFilters              `json:"filters"`
	Categories   []report.CategoryView    `json:"categories"`
	Display      report.Display           `json:"display"`
}

// transactionFilter builds the list filter from the query string. Unknown
// type and category values are ignored.
func transactionFilter(uid int64, r *http.Request, nav core.MonthNav) (ledger.TransactionFilter, listFilters) {
	q := r.URL.Query()
	applied := listFilters{
		Query:    strings.TrimSpace(q.Get("q")),
		Type:     strings.TrimSpace(q.Get("type")),
		Category: strings.TrimSpace(q.Get("category")),
	}
	f := ledger.TransactionFilter{UserID: uid, Search: applied.Query}.InWindow(nav.Window())
	if t, err := core.ParseTransactionType(applied.Type); err == nil {
		f.Type = t
	}
	if id, err := strconv.ParseInt(applied.Category, 10, 64); err == nil && id > 0 {
		f.CategoryID = &id
	}
	return f, applied
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, uid := r.Context(), userID(r)
	q := r.URL.Query()

	nav := core.ResolveMonthNav(q.Get("month"), q.Get("all") == "1", s.ledger.Now())
	filter, applied := transactionFilter(uid, r, nav)

	total, err := s.ledger.Store().Transactions().Count(ctx, filter)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	page := ParsePage(q.Get("page"), total, pageSize)
	filter.Limit, filter.Offset = pageSize, page.Offset(pageSize)

	txs, err := s.ledger.Transactions.List(ctx, filter)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	cats, err := s.ledger.Categories.List(ctx, ledger.CategoryFilter{UserID: uid})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	prefs, err := s.reports.Preferences(ctx, uid)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	NewResponse().JSON(transactionList{
		Transactions: report.TransactionViews(txs, categoryIndex(cats), prefs),
		Page:         page,
		Month:        newMonthNavView(nav),
		Filters:      applied,
		Categories:   categoryViews(cats, uid),
		Display:      report.NewDisplay(prefs),
	}).Write(w)
}

// transactionFromForm reads the editable fields of a transaction. An empty
// date is left zero and defaults to now on create.
func (s *Server) transactionFromForm(r *http.Request, requireDate bool) (core.Transaction, error) {
	f, err := readForm(r, s.ledger.Location())
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		Amount:        f.Amount("amount"),
		Type:          f.TransactionType("type"),
		CategoryID:    f.OptionalID("category"),
		Date:          f.DateTime("date"),
		PaymentMethod: f.PaymentMethod("payment_method"),
		Notes:         f.String("notes"),
	}
	if requireDate && tx.Date.IsZero() {
		f.fail("date", msgRequired)
	}
	return tx, f.Err()
}

func (s *Server) transactionView(ctx context.Context, uid int64, tx core.Transaction) (report.TransactionView, error) {
	cats, err := s.reports.CategoryIndex(ctx, uid)
	if err != nil {
		return report.TransactionView{}, err
	}
	prefs, err := s.reports.Preferences(ctx, uid)
	if err != nil {
		return report.TransactionView{}, err
	}
	return report.NewTransactionView(tx, cats, prefs), nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, uid := r.Context(), userID(r)
	tx, err := s.transactionFromForm(r, false)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	created, err := s.ledger.Transactions.Create(ctx, uid, tx)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	atomic.AddInt64(&s.metrics.transactionsCreated, 1)
	view, err := s.transactionView(ctx, uid, created)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(view).Write(w)
}

type quickAddResult struct {
	Success     bool                    `json:"success"`
	Errors      map[string]string       `json:"errors,omitempty"`
	Transaction *report.TransactionView `json:"transaction,omitempty"`
}

// handleQuickAdd is the lightweight create used by the dashboard widget.
// Validation problems come back as {"success": false, "errors": {...}}.
func (s *Server) handleQuickAdd(w http.ResponseWriter, r *http.Request) {
	ctx, uid := r.Context(), userID(r)
	tx, err := s.transactionFromForm(r, false)
	if err == nil {
		tx, err = s.ledger.Transactions.Create(ctx, uid, tx)
	}
	if err != nil {
		status, msg, fields := errorStatus(err)
		if status >= http.StatusInternalServerError {
			WriteError(w, r, err)
			return
		}
		if fields == nil {
			fields = map[string]string{"__all__": msg}
		}
		NewResponse().Status(http.StatusBadRequest).JSON(quickAddResult{Errors: fields}).Write(w)
		return
	}
	atomic.AddInt64(&s.metrics.transactionsCreated, 1)
	view, err := s.transactionView(ctx, uid, tx)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponse().JSON(quickAddResult{Success: true, Transaction: &view}).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, uid := r.Context(), userID(r)
	id, err := ParsePathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	tx, err := s.ledger.Transactions.Get(ctx, uid, id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	view, err := s.transactionView(ctx, uid, tx)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponse().JSON(view).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, uid := r.Context(), userID(r)
	id, err := ParsePathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	tx, err := s.transactionFromForm(r, true)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	updated, err := s.ledger.Transactions.Update(ctx, uid, id, tx)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	view, err := s.transactionView(ctx, uid, updated)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponse().JSON(view).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := ParsePathID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := s.ledger.Transactions.Delete(r.Context(), userID(r), id); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
