package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/slices"

	"github.com/wgergely/expensetracker/cache"
	"github.com/wgergely/expensetracker/ledger"
	"github.com/wgergely/expensetracker/report"
	"github.com/wgergely/expensetracker/status"
	"github.com/wgergely/expensetracker/sync"
)

type statusResponse struct {
	Name         string `json:"name"`
	CacheState   string `json:"cache_state"`
	LastSync     string `json:"last_sync,omitempty"`
	PendingEdits int    `json:"pending_edits"`
	ReadOnly     bool   `json:"read_only"`
	Version      string `json:"version,omitempty"`
}

type transactionResponse struct {
	Row         int    `json:"row"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Account     string `json:"account"`
}

type summaryRow struct {
	Category    string  `json:"category"`
	DisplayName string  `json:"display_name"`
	Total       string  `json:"total"`
	Mean        string  `json:"mean"`
	Min         string  `json:"min"`
	Max         string  `json:"max"`
	Count       int     `json:"count"`
	Weight      float64 `json:"weight"`
}

type summaryResponse struct {
	From  string       `json:"from"`
	Span  int          `json:"span"`
	Rows  []summaryRow `json:"rows"`
	Total string       `json:"total"`
}

type trendPoint struct {
	Month    string  `json:"month"`
	Spending string  `json:"spending"`
	Smoothed float64 `json:"smoothed"`
}

type categoryResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Color       string `json:"color,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Excluded    bool   `json:"excluded"`
	Configured  bool   `json:"configured"`
}

type editResponse struct {
	ID      string `json:"id"`
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Orig    string `json:"orig"`
	Value   string `json:"value"`
	Created string `json:"created"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.settings.Ledger()

	resp := statusResponse{
		Name:       cfg.Metadata.Name,
		CacheState: s.store.Verify(cfg.Header).String(),
		ReadOnly:   s.ReadOnly,
		Version:    s.Version,
	}
	if last, ok := s.store.LastSync(); ok {
		resp.LastSync = last.Format(time.RFC3339)
	}
	if edits, err := s.store.Edits(); err == nil {
		resp.PendingEdits = len(edits)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	l, err := s.loadLedger()
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}

	out := make([]transactionResponse, 0, len(l.Transactions))
	for _, tx := range l.Transactions {
		out = append(out, transactionResponse{
			Row:         tx.Row,
			Date:        tx.Date.Format("2006-01-02"),
			Amount:      tx.Amount.String(),
			Description: tx.Description,
			Category:    tx.Category,
			Account:     tx.Account,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	cfg := s.settings.Ledger()

	month := r.URL.Query().Get("month")
	if month == "" {
		month = cfg.Metadata.YearMonth
	}
	span := cfg.Metadata.Span
	if raw := r.URL.Query().Get("span"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		span = parsed
	}

	l, err := s.loadLedger()
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	bd, err := report.NewBreakdown(l, month, span)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp := summaryResponse{
		From:  bd.From.Format("2006-01"),
		Span:  bd.Months,
		Rows:  make([]summaryRow, 0, len(bd.Rows)),
		Total: bd.Total.StringFixed(2),
	}
	for _, row := range bd.Rows {
		resp.Rows = append(resp.Rows, summaryRow{
			Category:    row.Category,
			DisplayName: row.DisplayName,
			Total:       row.Total.StringFixed(2),
			Mean:        row.Mean.StringFixed(2),
			Min:         row.Min.StringFixed(2),
			Max:         row.Max.StringFixed(2),
			Count:       row.Count,
			Weight:      row.Weight,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	l, err := s.loadLedger()
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	points, err := report.Trend(l, r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out := make([]trendPoint, 0, len(points))
	for _, p := range points {
		out = append(out, trendPoint{
			Month:    p.Month,
			Spending: p.Spending.StringFixed(2),
			Smoothed: p.Smoothed,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cfg := s.settings.Ledger()

	var out []categoryResponse
	seen := make(map[string]bool, len(cfg.Categories))
	for name, cat := range cfg.Categories {
		seen[name] = true
		out = append(out, categoryResponse{
			Name:        name,
			DisplayName: cfg.DisplayName(name),
			Color:       cat.Color,
			Icon:        cat.Icon,
			Excluded:    cat.Excluded,
			Configured:  true,
		})
	}

	// Categories present in the data but absent from the config.
	if l, err := s.loadLedger(); err == nil {
		for _, name := range l.Categories() {
			if !seen[name] {
				out = append(out, categoryResponse{Name: name, DisplayName: name})
			}
		}
	}

	sortCategories(out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListEdits(w http.ResponseWriter, r *http.Request) {
	edits, err := s.store.Edits()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]editResponse, 0, len(edits))
	for _, e := range edits {
		out = append(out, newEditResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleQueueEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Row      int    `json:"row"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	edit, err := sync.QueueCategory(s.store, s.settings.Ledger(), req.Row, req.Category)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	log.Info("edit queued", "row", edit.Row, "category", edit.Value)
	writeJSON(w, http.StatusCreated, newEditResponse(edit))
}

func (s *Server) loadLedger() (*ledger.Ledger, error) {
	switch state := s.store.Verify(s.settings.Ledger().Header); state {
	case cache.StateValid, cache.StateEmpty:
	default:
		return nil, status.New(status.CacheInvalid, "(cache is %s)", state)
	}
	columns, rows, err := s.store.Rows()
	if err != nil {
		return nil, err
	}
	return ledger.FromRows(s.settings.Ledger(), columns, rows)
}

func newEditResponse(e cache.Edit) editResponse {
	return editResponse{
		ID:      e.ID,
		Row:     e.Row,
		Column:  e.Column,
		Orig:    e.Orig,
		Value:   e.Value,
		Created: e.Created.Format(time.RFC3339),
	}
}

func sortCategories(categories []categoryResponse) {
	slices.SortFunc(categories, func(a, b categoryResponse) int {
		return strings.Compare(a.Name, b.Name)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
