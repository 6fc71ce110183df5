package core

import "time"

type (
	// MaterialBreakdown holds percentage shares over the visible list.
	// Each value lies in [0,100]; together they sum to 100 (± rounding).
	MaterialBreakdown struct {
		Gold     float64
		Silver   float64
		Platinum float64
		Copper   float64
		Other    float64
	}

	// MonthSpend is a "YYYY-MM" group with its summed price.
	MonthSpend struct {
		Month string
		Cents int64
	}

	// Snapshot is the aggregate view over the visible (filtered) list.
	Snapshot struct {
		Count         int
		TotalCents    int64
		AverageCents  int64
		Materials     MaterialBreakdown
		SpendByMonth  map[string]int64
		HighestMonth  *MonthSpend
		ThisMonth     int64
		MostExpensive *CoinRecord
	}
)

func clampPct(n float64) float64 {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// Aggregate computes the statistics snapshot over the visible list.
// The second return value is false when the list is empty: there is no
// data and no averages to report, and callers must not divide by zero.
//
// Unknown prices count as 0. Records without a purchase date are excluded
// from the monthly groups. Ties are broken deterministically: the highest
// spending month prefers the earliest month key, and the most expensive
// record is the first occurrence in visible order.
func Aggregate(visible []CoinRecord, now time.Time) (Snapshot, bool) {
	total := len(visible)
	if total == 0 {
		return Snapshot{}, false
	}

	counts := make(map[string]int)
	byMonth := make(map[string]int64)
	var totalCents int64
	var mostExpensive *CoinRecord

	for i := range visible {
		r := visible[i]
		counts[r.Material.Key()]++
		totalCents += r.PriceCents()
		if key := r.PurchasedAt.MonthKey(); key != "" {
			byMonth[key] += r.PriceCents()
		}
		if mostExpensive == nil || r.PriceCents() > mostExpensive.PriceCents() {
			c := r
			mostExpensive = &c
		}
	}

	pct := func(key string) float64 {
		return clampPct(float64(counts[key]) / float64(total) * 100)
	}

	var highest *MonthSpend
	for month, cents := range byMonth {
		switch {
		case highest == nil,
			cents > highest.Cents,
			cents == highest.Cents && month < highest.Month:
			highest = &MonthSpend{Month: month, Cents: cents}
		}
	}

	snap := Snapshot{
		Count:      total,
		TotalCents: totalCents,
		// Half-up rounding keeps the average exact for even splits.
		AverageCents: (totalCents + int64(total)/2) / int64(total),
		Materials: MaterialBreakdown{
			Gold:     pct("gold"),
			Silver:   pct("silver"),
			Platinum: pct("platinum"),
			Copper:   pct("copper"),
			Other:    pct("other"),
		},
		SpendByMonth:  byMonth,
		HighestMonth:  highest,
		ThisMonth:     byMonth[now.Format("2006-01")],
		MostExpensive: mostExpensive,
	}
	return snap, true
}
