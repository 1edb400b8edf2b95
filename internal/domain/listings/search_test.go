package listings

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(id int64, lender, symbol, amount, rate string, available bool) *Listing {
	return &Listing{
		ID:             ListingID(id),
		Lender:         LenderID(lender),
		TokenSymbol:    symbol,
		Amount:         decimal.RequireFromString(amount),
		RentalRate:     decimal.RequireFromString(rate),
		MinDuration:    1,
		MaxDuration:    30,
		CollateralRate: decimal.NewFromInt(15),
		IsAvailable:    available,
	}
}

func seedListings() []*Listing {
	return []*Listing{
		sample(1, "GABC...XYZ", "USDC", "1000", "3.5", true),
		sample(2, "GDEF...UVW", "XLM", "5000", "5.0", true),
		sample(3, "GHIJ...RST", "USDT", "2500", "4.2", true),
		sample(4, "GKLM...OPQ", "BTC", "0.5", "1.25", false),
	}
}

func ids(items []*Listing) []ListingID {
	out := make([]ListingID, 0, len(items))
	for _, l := range items {
		out = append(out, l.ID)
	}
	return out
}

func TestFilterAndSort(t *testing.T) {
	all := seedListings()

	t.Run("RateLow", func(t *testing.T) {
		assert.Equal(t, []ListingID{1, 3, 2}, ids(FilterAndSort(all, "", "all", SortRateLow)))
	})
	t.Run("RateHigh", func(t *testing.T) {
		assert.Equal(t, []ListingID{2, 3, 1}, ids(FilterAndSort(all, "", "all", SortRateHigh)))
	})
	t.Run("AmountLow", func(t *testing.T) {
		assert.Equal(t, []ListingID{1, 3, 2}, ids(FilterAndSort(all, "", "all", SortAmountLow)))
	})
	t.Run("AmountHigh", func(t *testing.T) {
		assert.Equal(t, []ListingID{2, 3, 1}, ids(FilterAndSort(all, "", "all", SortAmountHigh)))
	})
	t.Run("UnknownKeyKeepsInputOrder", func(t *testing.T) {
		assert.Equal(t, []ListingID{1, 2, 3}, ids(FilterAndSort(all, "", "all", SortKey("newest"))))
	})
	t.Run("TokenFilter", func(t *testing.T) {
		assert.Equal(t, []ListingID{2}, ids(FilterAndSort(all, "", "XLM", SortRateLow)))
		assert.Empty(t, FilterAndSort(all, "", "BTC", SortRateLow), "unavailable listings are hidden")
	})
	t.Run("QueryMatchesTokenCaseInsensitive", func(t *testing.T) {
		got := FilterAndSort([]*Listing{sample(9, "GABC...XYZ", "USDC", "1", "1", true)}, "usdc", "all", SortRateLow)
		assert.Equal(t, []ListingID{9}, ids(got))
	})
	t.Run("QueryMatchesLender", func(t *testing.T) {
		assert.Equal(t, []ListingID{2}, ids(FilterAndSort(all, "gdef", "all", SortRateLow)))
	})
	t.Run("QueryAndTokenCombine", func(t *testing.T) {
		assert.Empty(t, FilterAndSort(all, "gdef", "USDC", SortRateLow))
	})
	t.Run("DoesNotReorderInput", func(t *testing.T) {
		input := seedListings()
		_ = FilterAndSort(input, "", "all", SortRateHigh)
		assert.Equal(t, []ListingID{1, 2, 3, 4}, ids(input))
	})
	t.Run("NilEntriesSkipped", func(t *testing.T) {
		got := FilterAndSort([]*Listing{nil, sample(1, "a", "USDC", "1", "1", true)}, "", "all", SortRateLow)
		assert.Equal(t, []ListingID{1}, ids(got))
	})
}

func TestFilterAndSortStability(t *testing.T) {
	input := []*Listing{
		sample(1, "a", "USDC", "100", "2", true),
		sample(2, "b", "USDC", "100", "1", true),
		sample(3, "c", "USDC", "100", "2.0", true),
		sample(4, "d", "USDC", "100", "1.00", true),
		sample(5, "e", "USDC", "50", "2", true),
	}
	for _, key := range SortKeys() {
		t.Run(string(key), func(t *testing.T) {
			out := FilterAndSort(input, "", "all", key)
			pos := map[ListingID]int{}
			for i, l := range input {
				pos[l.ID] = i
			}
			for i := 1; i < len(out); i++ {
				a, b := out[i-1], out[i]
				if sortValue(a, key).Equal(sortValue(b, key)) {
					assert.Less(t, pos[a.ID], pos[b.ID], "tie between %d and %d reordered", a.ID, b.ID)
				}
			}
		})
	}
}

func sortValue(l *Listing, key SortKey) decimal.Decimal {
	switch key {
	case SortAmountLow, SortAmountHigh:
		return l.Amount
	default:
		return l.RentalRate
	}
}

func TestFilterAndSortProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	symbols := []string{"USDC", "XLM", "USDT", "BTC"}
	for round := 0; round < 50; round++ {
		n := rng.Intn(40)
		input := make([]*Listing, 0, n)
		for i := 0; i < n; i++ {
			input = append(input, sample(
				int64(i+1),
				fmt.Sprintf("G%03d", rng.Intn(20)),
				symbols[rng.Intn(len(symbols))],
				fmt.Sprintf("%d.%02d", rng.Intn(5000), rng.Intn(100)),
				fmt.Sprintf("%d.%d", rng.Intn(6), rng.Intn(10)),
				rng.Intn(4) != 0,
			))
		}

		out := FilterAndSort(input, "", "all", SortRateLow)
		for i := 1; i < len(out); i++ {
			require.False(t, out[i].RentalRate.LessThan(out[i-1].RentalRate), "round %d not non-decreasing", round)
		}

		var available []ListingID
		for _, l := range input {
			if l.IsAvailable {
				available = append(available, l.ID)
			}
		}
		assert.ElementsMatch(t, available, ids(out), "round %d not a permutation of the available subset", round)
	}
}

func TestSearchParamsNormalized(t *testing.T) {
	p := SearchParams{Query: "  usdc ", Token: "", Sort: "", Limit: 1000, Offset: -3}.Normalized()
	assert.Equal(t, "usdc", p.Query)
	assert.Equal(t, TokenFilterAll, p.Token)
	assert.Equal(t, SortRateLow, p.Sort)
	assert.Equal(t, maxSearchLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)

	p = SearchParams{Token: "ALL", Sort: "Rate-High"}.Normalized()
	assert.Equal(t, TokenFilterAll, p.Token)
	assert.Equal(t, SortRateHigh, p.Sort)
	assert.Equal(t, defaultSearchLimit, p.Limit)
}

func TestSearchPaging(t *testing.T) {
	all := seedListings()

	res := Search(all, SearchParams{Sort: SortRateLow, Limit: 2})
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, []ListingID{1, 3}, ids(res.Items))

	res = Search(all, SearchParams{Sort: SortRateLow, Limit: 2, Offset: 2})
	assert.Equal(t, []ListingID{2}, ids(res.Items))

	res = Search(all, SearchParams{Offset: 10})
	assert.Equal(t, 3, res.Total)
	assert.Empty(t, res.Items)
}
