// This file shapes domain values into wire responses. Optional fields
// go out as pointers so absent stays distinguishable from zero.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"coinshelter/internal/core"
)

type coinResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Material    string   `json:"material"`
	PriceCents  *int64   `json:"price_cents"`
	Image       string   `json:"image,omitempty"`
	Description string   `json:"description,omitempty"`
	Mint        string   `json:"mint,omitempty"`
	Country     string   `json:"country,omitempty"`
	Year        *int     `json:"year"`
	Weight      *float64 `json:"weight"`
	Diameter    *float64 `json:"diameter"`
	Pieces      *int     `json:"pieces"`
	PurchasedAt string   `json:"purchased_at,omitempty"`
	Certificate bool     `json:"certificate"`
	CreatedAt   string   `json:"created_at"`
}

type coinListResponse struct {
	Coins []coinResponse `json:"coins"`
	Count int            `json:"count"`
}

type monthSpendResponse struct {
	Month string `json:"month"`
	Cents int64  `json:"cents"`
}

type statsResponse struct {
	NoData        bool                 `json:"no_data"`
	Count         int                  `json:"count"`
	TotalCents    int64                `json:"total_cents"`
	AverageCents  int64                `json:"average_cents"`
	Materials     map[string]float64   `json:"materials"`
	SpendByMonth  map[string]int64     `json:"spend_by_month"`
	HighestMonth  *monthSpendResponse  `json:"highest_month"`
	ThisMonth     int64                `json:"this_month_cents"`
	MostExpensive *coinResponse        `json:"most_expensive"`
}

type sessionResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toCoinResponse(rec core.CoinRecord) coinResponse {
	resp := coinResponse{
		ID:          rec.ID,
		Name:        rec.Name,
		Material:    string(rec.Material),
		Image:       rec.Image,
		Description: rec.Description,
		Mint:        rec.Mint,
		Country:     rec.Country,
		Year:        rec.Year,
		Weight:      rec.Weight,
		Diameter:    rec.Diameter,
		Pieces:      rec.Pieces,
		PurchasedAt: rec.PurchasedAt.ISO(),
		Certificate: rec.Certificate,
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.Price != nil {
		cents := rec.Price.Cents
		resp.PriceCents = &cents
	}
	return resp
}

func toCoinListResponse(records []core.CoinRecord) coinListResponse {
	resp := coinListResponse{
		Coins: make([]coinResponse, 0, len(records)),
		Count: len(records),
	}
	for _, rec := range records {
		resp.Coins = append(resp.Coins, toCoinResponse(rec))
	}
	return resp
}

func toStatsResponse(stats core.Snapshot, ok bool) statsResponse {
	resp := statsResponse{
		NoData:       !ok,
		Count:        stats.Count,
		TotalCents:   stats.TotalCents,
		AverageCents: stats.AverageCents,
		Materials: map[string]float64{
			"gold":     stats.Materials.Gold,
			"silver":   stats.Materials.Silver,
			"platinum": stats.Materials.Platinum,
			"copper":   stats.Materials.Copper,
			"other":    stats.Materials.Other,
		},
		SpendByMonth: stats.SpendByMonth,
		ThisMonth:    stats.ThisMonth,
	}
	if resp.SpendByMonth == nil {
		resp.SpendByMonth = map[string]int64{}
	}
	if stats.HighestMonth != nil {
		resp.HighestMonth = &monthSpendResponse{
			Month: stats.HighestMonth.Month,
			Cents: stats.HighestMonth.Cents,
		}
	}
	if stats.MostExpensive != nil {
		coin := toCoinResponse(*stats.MostExpensive)
		resp.MostExpensive = &coin
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
