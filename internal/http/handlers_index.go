package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"coinshelter/internal/core"
)

// handleIndex renders the catalog page. Guests get the same read-only
// view the API serves.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	state, err := parseViewState(r)
	if err != nil {
		state = core.DefaultViewState()
	}

	visible, stats, ok := s.shell.View(state)

	type row struct {
		Name      string
		Material  string
		Price     string
		Year      string
		Purchased string
	}
	data := struct {
		SignedIn bool
		Filter   string
		Sort     string
		HasData  bool
		Count    int
		Total    string
		Average  string
		Rows     []row
	}{
		SignedIn: s.provider.Current() != nil,
		Filter:   string(state.Filter),
		Sort:     string(state.Sort),
		HasData:  ok,
		Count:    stats.Count,
		Total:    formatEuros(stats.TotalCents),
		Average:  formatEuros(stats.AverageCents),
	}

	for _, rec := range visible {
		entry := row{
			Name:      rec.Name,
			Material:  string(rec.Material),
			Purchased: rec.PurchasedAt.ISO(),
		}
		if rec.Price != nil {
			entry.Price = formatEuros(rec.Price.Cents)
		}
		if rec.Year != nil {
			entry.Year = strconv.Itoa(*rec.Year)
		}
		data.Rows = append(data.Rows, entry)
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
