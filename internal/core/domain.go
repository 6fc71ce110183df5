package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Gold     Material = "Gold"
	Silver   Material = "Silver"
	Platinum Material = "Platinum"
	Copper   Material = "Copper"
	Other    Material = "Other"
)

type (
	Material string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// CoinRecord is one physical item in a collection. ID and OwnerID are
	// assigned by the record store on creation and immutable afterwards.
	CoinRecord struct {
		ID          string
		OwnerID     string
		Name        string
		Material    Material
		Price       *Money // nil = unknown price, treated as 0 in aggregates
		Image       string
		Description string
		Mint        string
		Country     string
		Year        *int
		Weight      *float64 // grams
		Diameter    *float64 // millimeters
		Pieces      *int
		PurchasedAt Date // zero = unknown purchase date
		Certificate bool
		CreatedAt   time.Time
	}

	// CoinDraft carries user-submitted fields for create and full-record
	// update operations. There is no partial patch: an update replaces
	// every mutable field with the draft's values.
	CoinDraft struct {
		Name        string
		Material    Material
		Price       *Money
		Image       string
		Description string
		Mint        string
		Country     string
		Year        *int
		Weight      *float64
		Diameter    *float64
		Pieces      *int
		PurchasedAt Date
		Certificate bool
	}
)

var (
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidMaterial = errors.New("invalid material")
	ErrMissingPrice    = errors.New("missing price")
	ErrNegativePrice   = errors.New("negative price")
	ErrInvalidPieces   = errors.New("pieces must be positive")
	ErrInvalidNumber   = errors.New("invalid number")
	ErrInvalidDate     = errors.New("invalid date")
)

// ParseMaterial matches a label case-insensitively against the fixed set.
func ParseMaterial(s string) (Material, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gold":
		return Gold, nil
	case "silver":
		return Silver, nil
	case "platinum":
		return Platinum, nil
	case "copper":
		return Copper, nil
	case "other":
		return Other, nil
	default:
		return "", ErrInvalidMaterial
	}
}

// Key returns the lower-cased bucket name used by statistics. Absent or
// unrecognized materials fall into the "other" bucket.
func (m Material) Key() string {
	switch k := strings.ToLower(string(m)); k {
	case "gold", "silver", "platinum", "copper":
		return k
	default:
		return "other"
	}
}

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date ("2006-01-02"). An empty string
// yields the zero Date, meaning the date is absent.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// IsEmpty reports whether the date is absent.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// MonthKey returns the "YYYY-MM" grouping key, or "" for an absent date.
func (d Date) MonthKey() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01")
}

// ISO returns the "YYYY-MM-DD" form, or "" for an absent date.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func (d CoinDraft) Validate() error {
	if len(strings.TrimSpace(d.Name)) == 0 {
		return ErrEmptyName
	}
	if len(d.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if _, err := ParseMaterial(string(d.Material)); err != nil {
		return err
	}
	if d.Price == nil {
		return ErrMissingPrice
	}
	if d.Price.Cents < 0 {
		return ErrNegativePrice
	}
	if d.Pieces != nil && *d.Pieces <= 0 {
		return ErrInvalidPieces
	}
	return nil
}

// ApplyDraft replaces every mutable field of the record with the draft's
// values. Identity and creation time are untouched: updates are full-record
// replacements, not partial patches.
func (r *CoinRecord) ApplyDraft(d CoinDraft) {
	r.Name = d.Name
	r.Material = d.Material
	r.Price = d.Price
	r.Image = d.Image
	r.Description = d.Description
	r.Mint = d.Mint
	r.Country = d.Country
	r.Year = d.Year
	r.Weight = d.Weight
	r.Diameter = d.Diameter
	r.Pieces = d.Pieces
	r.PurchasedAt = d.PurchasedAt
	r.Certificate = d.Certificate
}

// PriceCents returns the record's price treating an unknown price as 0.
func (r CoinRecord) PriceCents() int64 {
	if r.Price == nil {
		return 0
	}
	return r.Price.Cents
}
