package core

import (
	"sort"
	"strings"
)

const (
	SortNone      SortOrder = "none"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortDateAsc   SortOrder = "date_asc"
	SortDateDesc  SortOrder = "date_desc"
)

const (
	FilterAll      MaterialFilter = "all"
	FilterGold     MaterialFilter = "gold"
	FilterSilver   MaterialFilter = "silver"
	FilterPlatinum MaterialFilter = "platinum"
	FilterCopper   MaterialFilter = "copper"
	FilterOther    MaterialFilter = "other"
)

type (
	SortOrder      string
	MaterialFilter string

	// ViewState is the purely local, never-persisted catalog state. It is
	// reset to defaults on navigation and drives the derived view.
	ViewState struct {
		Sort   SortOrder
		Filter MaterialFilter
	}
)

// DefaultViewState returns the catalog defaults: no sorting, no filter.
func DefaultViewState() ViewState {
	return ViewState{Sort: SortNone, Filter: FilterAll}
}

// ParseSortOrder maps a query value to a SortOrder. Empty means none.
func ParseSortOrder(s string) (SortOrder, bool) {
	switch SortOrder(strings.TrimSpace(s)) {
	case "":
		return SortNone, true
	case SortNone, SortPriceAsc, SortPriceDesc, SortDateAsc, SortDateDesc:
		return SortOrder(strings.TrimSpace(s)), true
	default:
		return SortNone, false
	}
}

// ParseMaterialFilter maps a query value to a MaterialFilter. Empty means all.
func ParseMaterialFilter(s string) (MaterialFilter, bool) {
	switch MaterialFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return FilterAll, true
	case FilterAll, FilterGold, FilterSilver, FilterPlatinum, FilterCopper, FilterOther:
		return MaterialFilter(strings.ToLower(strings.TrimSpace(s))), true
	default:
		return FilterAll, false
	}
}

// FilterByMaterial keeps records whose lower-cased material equals the
// filter. The result is a subsequence of the input: relative order is
// preserved. An absent material never matches a concrete filter.
func FilterByMaterial(records []CoinRecord, f MaterialFilter) []CoinRecord {
	if f == FilterAll {
		out := make([]CoinRecord, len(records))
		copy(out, records)
		return out
	}
	out := make([]CoinRecord, 0, len(records))
	for _, r := range records {
		if strings.ToLower(string(r.Material)) == string(f) {
			out = append(out, r)
		}
	}
	return out
}

// SortRecords returns a stably sorted copy of the input.
//
// Price orders treat an unknown price as 0. Date orders push records
// without a purchase date to the end under both directions: ascending
// treats the missing date as +infinity, descending as -infinity, so
// undated coins always trail the catalog.
func SortRecords(records []CoinRecord, order SortOrder) []CoinRecord {
	out := make([]CoinRecord, len(records))
	copy(out, records)

	switch order {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].PriceCents() < out[j].PriceCents()
		})
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].PriceCents() > out[j].PriceCents()
		})
	case SortDateAsc:
		sort.SliceStable(out, func(i, j int) bool {
			di, dj := out[i].PurchasedAt, out[j].PurchasedAt
			if di.IsEmpty() {
				return false // missing date = +inf, never earlier
			}
			if dj.IsEmpty() {
				return true
			}
			return di.Before(dj.Time)
		})
	case SortDateDesc:
		sort.SliceStable(out, func(i, j int) bool {
			di, dj := out[i].PurchasedAt, out[j].PurchasedAt
			if di.IsEmpty() {
				return false // missing date = -inf, never later
			}
			if dj.IsEmpty() {
				return true
			}
			return di.After(dj.Time)
		})
	}
	// SortNone: keep the store's descending-creation order untouched.
	return out
}

// VisibleList applies filter then sort, producing the catalog's visible
// sequence. It is a pure function of its inputs; callers recompute it after
// every change instead of patching a cached copy.
func VisibleList(records []CoinRecord, state ViewState) []CoinRecord {
	return SortRecords(FilterByMaterial(records, state.Filter), state.Sort)
}
