// Package http provides the JSON API server.
//
// This file parses and validates request payloads. Numeric and date
// fields arrive as strings, matching what a form submits; empty strings
// mean absent, unparsable values are rejected before any store call.
package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"coinshelter/internal/core"
)

const maxBodySize = 1 << 20 // 1 MiB

// coinPayload is the wire form of a coin draft.
type coinPayload struct {
	Name        string `json:"name"`
	Material    string `json:"material"`
	Price       string `json:"price"`
	Image       string `json:"image"`
	Description string `json:"description"`
	Mint        string `json:"mint"`
	Country     string `json:"country"`
	Year        string `json:"year"`
	Weight      string `json:"weight"`
	Diameter    string `json:"diameter"`
	Pieces      string `json:"pieces"`
	PurchasedAt string `json:"purchased_at"`
	Certificate bool   `json:"certificate"`
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func decodeJSON(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodySize)
	defer io.Copy(io.Discard, body)

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// toDraft converts the payload into a validated draft. String numerics
// are parsed here so the core never sees raw input.
func (p coinPayload) toDraft() (core.CoinDraft, error) {
	material, err := core.ParseMaterial(p.Material)
	if err != nil {
		return core.CoinDraft{}, err
	}

	price, err := core.ParsePrice(p.Price)
	if err != nil {
		return core.CoinDraft{}, fmt.Errorf("price: %w", err)
	}

	year, err := parseOptionalInt(p.Year)
	if err != nil {
		return core.CoinDraft{}, fmt.Errorf("year: %w", err)
	}
	pieces, err := parseOptionalInt(p.Pieces)
	if err != nil {
		return core.CoinDraft{}, fmt.Errorf("pieces: %w", err)
	}
	weight, err := parseOptionalFloat(p.Weight)
	if err != nil {
		return core.CoinDraft{}, fmt.Errorf("weight: %w", err)
	}
	diameter, err := parseOptionalFloat(p.Diameter)
	if err != nil {
		return core.CoinDraft{}, fmt.Errorf("diameter: %w", err)
	}

	purchased, err := core.ParseDate(p.PurchasedAt)
	if err != nil {
		return core.CoinDraft{}, fmt.Errorf("purchased_at: %w", err)
	}

	draft := core.CoinDraft{
		Name:        sanitizeInput(p.Name),
		Material:    material,
		Price:       price,
		Image:       sanitizeInput(p.Image),
		Description: sanitizeInput(p.Description),
		Mint:        sanitizeInput(p.Mint),
		Country:     sanitizeInput(p.Country),
		Year:        year,
		Weight:      weight,
		Diameter:    diameter,
		Pieces:      pieces,
		PurchasedAt: purchased,
		Certificate: p.Certificate,
	}

	if err := draft.Validate(); err != nil {
		return core.CoinDraft{}, err
	}
	return draft, nil
}

func parseOptionalInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, core.ErrInvalidNumber
	}
	return &v, nil
}

func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return nil, core.ErrInvalidNumber
	}
	return &v, nil
}

// parseViewState reads material and sort from the query string.
func parseViewState(r *http.Request) (core.ViewState, error) {
	state := core.DefaultViewState()

	filter, ok := core.ParseMaterialFilter(r.URL.Query().Get("material"))
	if !ok {
		return state, fmt.Errorf("unknown material filter %q", r.URL.Query().Get("material"))
	}
	state.Filter = filter

	order, ok := core.ParseSortOrder(r.URL.Query().Get("sort"))
	if !ok {
		return state, fmt.Errorf("unknown sort order %q", r.URL.Query().Get("sort"))
	}
	state.Sort = order

	return state, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}
