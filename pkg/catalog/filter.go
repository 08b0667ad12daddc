// Package catalog derives the visible browsing page from a raw listing
// collection entirely on the client. It is pure: no network, no cache, no
// clock - identical inputs always produce identical output.
package catalog

import (
	"strings"

	"github.com/illmade-knight/go-marketdata/pkg/types"
)

// DefaultPageSize matches the browsing grid of the reference UI.
const DefaultPageSize = 12

// FilterSpec describes one browsing request. Set fields select with OR
// within a field and AND across fields; empty sets and absent bounds do not
// filter. MinPrice and MaxPrice are in major currency units (the listing's
// minor-unit price is divided by 100 before comparison) and are inclusive.
type FilterSpec struct {
	Keyword    string
	Sizes      []string
	Colors     []string
	Conditions []string
	MinPrice   *float64
	MaxPrice   *float64
	// Page is 1-based. The engine does not clamp: a page past the end (or
	// below 1) yields an empty item slice, never an error.
	Page     int
	PageSize int
}

// Page is one visible slice of the filtered catalog.
type Page struct {
	Items      []types.Listing
	TotalCount int
	PageCount  int
}

// VisiblePage filters, then paginates. Sold listings never appear regardless
// of the other filter values. A PageSize of zero or less falls back to
// DefaultPageSize.
func VisiblePage(listings []types.Listing, spec FilterSpec) Page {
	pageSize := spec.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	filtered := make([]types.Listing, 0, len(listings))
	for _, l := range listings {
		if matches(l, spec) {
			filtered = append(filtered, l)
		}
	}

	total := len(filtered)
	pageCount := (total + pageSize - 1) / pageSize
	if pageCount < 1 {
		pageCount = 1
	}

	start := (spec.Page - 1) * pageSize
	end := start + pageSize
	var items []types.Listing
	if start >= 0 && start < total {
		if end > total {
			end = total
		}
		items = filtered[start:end]
	} else {
		items = []types.Listing{}
	}

	return Page{Items: items, TotalCount: total, PageCount: pageCount}
}

// matches applies the filter dimensions to one listing. The availability
// gate comes first and is unconditional.
func matches(l types.Listing, spec FilterSpec) bool {
	if !l.Available {
		return false
	}
	if spec.Keyword != "" && !matchesKeyword(l, spec.Keyword) {
		return false
	}
	if len(spec.Sizes) > 0 && !member(spec.Sizes, l.Size) {
		return false
	}
	if len(spec.Colors) > 0 && !member(spec.Colors, l.Color) {
		return false
	}
	if len(spec.Conditions) > 0 && !member(spec.Conditions, l.Condition) {
		return false
	}
	price := float64(l.Price) / 100
	if spec.MinPrice != nil && price < *spec.MinPrice {
		return false
	}
	if spec.MaxPrice != nil && price > *spec.MaxPrice {
		return false
	}
	return true
}

// matchesKeyword is a case-insensitive substring match ORed across the
// text-bearing listing fields.
func matchesKeyword(l types.Listing, keyword string) bool {
	q := strings.ToLower(keyword)
	return strings.Contains(strings.ToLower(l.Title), q) ||
		strings.Contains(strings.ToLower(l.Description), q) ||
		strings.Contains(strings.ToLower(l.Color), q) ||
		strings.Contains(strings.ToLower(l.Size), q)
}

func member(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
