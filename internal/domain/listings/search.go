package listings

import (
	"sort"
	"strings"
)

// SortKey defines a supported catalog ordering.
type SortKey string

const (
	SortRateLow    SortKey = "rate-low"
	SortRateHigh   SortKey = "rate-high"
	SortAmountLow  SortKey = "amount-low"
	SortAmountHigh SortKey = "amount-high"

	// TokenFilterAll disables the token filter.
	TokenFilterAll = "all"

	defaultSearchLimit = 24
	maxSearchLimit     = 100
)

// SortKeys lists the orderings offered to browsers.
func SortKeys() []SortKey {
	return []SortKey{SortRateLow, SortRateHigh, SortAmountLow, SortAmountHigh}
}

// SearchParams describe catalog filters and paging options.
type SearchParams struct {
	Query  string
	Token  string
	Sort   SortKey
	Limit  int
	Offset int
}

// Normalized returns a sanitized copy of params. Unrecognized sort keys are
// kept so they order as a no-op.
func (p SearchParams) Normalized() SearchParams {
	normalized := p
	normalized.Query = strings.TrimSpace(normalized.Query)
	normalized.Token = strings.TrimSpace(normalized.Token)
	if normalized.Token == "" || strings.EqualFold(normalized.Token, TokenFilterAll) {
		normalized.Token = TokenFilterAll
	}
	normalized.Sort = SortKey(strings.ToLower(strings.TrimSpace(string(normalized.Sort))))
	if normalized.Sort == "" {
		normalized.Sort = SortRateLow
	}
	if normalized.Limit <= 0 {
		normalized.Limit = defaultSearchLimit
	}
	if normalized.Limit > maxSearchLimit {
		normalized.Limit = maxSearchLimit
	}
	if normalized.Offset < 0 {
		normalized.Offset = 0
	}
	return normalized
}

// SearchResult wraps a page of hits with the total match count.
type SearchResult struct {
	Items []*Listing
	Total int
}

// Matches is the inclusion predicate of the browse pipeline.
func Matches(listing *Listing, query, tokenFilter string) bool {
	if listing == nil || !listing.IsAvailable {
		return false
	}
	if tokenFilter != TokenFilterAll && tokenFilter != "" && listing.TokenSymbol != tokenFilter {
		return false
	}
	if query == "" {
		return true
	}
	needle := strings.ToLower(query)
	return strings.Contains(strings.ToLower(listing.TokenSymbol), needle) ||
		strings.Contains(strings.ToLower(string(listing.Lender)), needle)
}

// FilterAndSort derives the displayed sequence. The input slice is left
// untouched and ties keep their input order.
func FilterAndSort(items []*Listing, query, tokenFilter string, key SortKey) []*Listing {
	out := make([]*Listing, 0, len(items))
	for _, listing := range items {
		if Matches(listing, query, tokenFilter) {
			out = append(out, listing)
		}
	}
	if less := comparator(key); less != nil {
		sort.SliceStable(out, func(i, j int) bool {
			return less(out[i], out[j])
		})
	}
	return out
}

// Search applies FilterAndSort and then the page window.
func Search(items []*Listing, params SearchParams) SearchResult {
	opts := params.Normalized()
	matches := FilterAndSort(items, opts.Query, opts.Token, opts.Sort)

	total := len(matches)
	start := opts.Offset
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}
	return SearchResult{Items: matches[start:end], Total: total}
}

func comparator(key SortKey) func(a, b *Listing) bool {
	switch key {
	case SortRateLow:
		return func(a, b *Listing) bool { return a.RentalRate.LessThan(b.RentalRate) }
	case SortRateHigh:
		return func(a, b *Listing) bool { return a.RentalRate.GreaterThan(b.RentalRate) }
	case SortAmountLow:
		return func(a, b *Listing) bool { return a.Amount.LessThan(b.Amount) }
	case SortAmountHigh:
		return func(a, b *Listing) bool { return a.Amount.GreaterThan(b.Amount) }
	default:
		return nil
	}
}
