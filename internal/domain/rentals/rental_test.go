package rentals

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrent/internal/domain/listings"
	"xrent/internal/domain/pricing"
)

func availableListing() *listings.Listing {
	return &listings.Listing{
		ID:             1,
		Lender:         "GLENDER",
		TokenSymbol:    "USDC",
		Amount:         decimal.NewFromInt(1000),
		RentalRate:     decimal.RequireFromString("3.5"),
		CollateralRate: decimal.NewFromInt(15),
		MinDuration:    1,
		MaxDuration:    30,
		IsAvailable:    true,
	}
}

func TestRequest(t *testing.T) {
	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

	t.Run("PricesRental", func(t *testing.T) {
		r, err := Request(RequestParams{ID: "r-1", Listing: availableListing(), Borrower: "GBORROWER", Duration: 10, Now: now})
		require.NoError(t, err)
		assert.Equal(t, StatusRequested, r.Status)
		assert.Equal(t, "508.75", r.Costs.Display().Total)
		assert.Equal(t, "USDC", r.TokenSymbol)
		assert.Empty(t, r.PendingEvents())
	})

	t.Run("Rejections", func(t *testing.T) {
		unavailable := availableListing()
		unavailable.IsAvailable = false

		cases := []struct {
			name   string
			params RequestParams
			want   error
		}{
			{"NoID", RequestParams{Listing: availableListing(), Borrower: "GB", Duration: 1}, ErrIDRequired},
			{"NoBorrower", RequestParams{ID: "r", Listing: availableListing(), Duration: 1}, ErrBorrowerRequired},
			{"NoListing", RequestParams{ID: "r", Borrower: "GB", Duration: 1}, listings.ErrNotFound},
			{"Unavailable", RequestParams{ID: "r", Listing: unavailable, Borrower: "GB", Duration: 1}, listings.ErrNotAvailable},
			{"OwnListing", RequestParams{ID: "r", Listing: availableListing(), Borrower: "GLENDER", Duration: 1}, ErrOwnListing},
			{"DurationTooLong", RequestParams{ID: "r", Listing: availableListing(), Borrower: "GB", Duration: 31}, pricing.ErrDurationOutOfRange},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := Request(tc.params)
				assert.ErrorIs(t, err, tc.want)
			})
		}
	})
}

func TestRentalTransitions(t *testing.T) {
	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	newRental := func(t *testing.T) *Rental {
		r, err := Request(RequestParams{ID: "r-1", Listing: availableListing(), Borrower: "GBORROWER", Duration: 5, Now: now})
		require.NoError(t, err)
		return r
	}

	t.Run("Confirm", func(t *testing.T) {
		r := newRental(t)
		assert.ErrorIs(t, r.Confirm(" ", now), ErrConfirmationMissing)
		require.NoError(t, r.Confirm("tx-123", now))
		assert.Equal(t, StatusConfirmed, r.Status)
		assert.Equal(t, now.AddDate(0, 0, 5), r.Period.End)
		assert.True(t, r.ActiveAt(now.Add(time.Hour)))
		assert.False(t, r.ActiveAt(now.AddDate(0, 0, 6)))

		evts := r.PendingEvents()
		require.Len(t, evts, 1)
		assert.Equal(t, "rental.confirmed", evts[0].EventName())
		assert.Equal(t, "r-1", evts[0].AggregateID())

		assert.ErrorIs(t, r.Confirm("tx-456", now), ErrInvalidState)
	})

	t.Run("ReturnOnTime", func(t *testing.T) {
		r := newRental(t)
		assert.ErrorIs(t, r.Return("GBORROWER", now), ErrNotActive)
		require.NoError(t, r.Confirm("tx", now))
		r.ClearEvents()

		assert.ErrorIs(t, r.Return("GSOMEONE", now), ErrNotBorrower)
		require.NoError(t, r.Return("GBORROWER", r.Period.End))
		assert.Equal(t, StatusCompleted, r.Status)
		assert.Equal(t, ClosureReturned, r.Closure)
		assert.False(t, r.Late)
		assert.Equal(t, "150", r.Settlement.Refund.String())
		assert.True(t, r.Settlement.Penalty.IsZero())
		assert.Equal(t, PhaseCompleted, r.PhaseAt(now))

		evts := r.PendingEvents()
		require.Len(t, evts, 1)
		assert.Equal(t, "rental.returned", evts[0].EventName())
		assert.ErrorIs(t, r.Return("GBORROWER", now), ErrNotActive)
	})

	t.Run("ReturnLate", func(t *testing.T) {
		r := newRental(t)
		require.NoError(t, r.Confirm("tx", now))
		require.NoError(t, r.Return("GBORROWER", r.Period.End.Add(time.Second)))
		assert.True(t, r.Late)
		assert.Equal(t, "135", r.Settlement.Refund.String())
		assert.Equal(t, "15", r.Settlement.Penalty.String())
	})

	t.Run("Reclaim", func(t *testing.T) {
		r := newRental(t)
		require.NoError(t, r.Confirm("tx", now))
		r.ClearEvents()

		assert.ErrorIs(t, r.Reclaim("GSOMEONE", now), ErrNotLender)
		assert.ErrorIs(t, r.Reclaim("GLENDER", r.Period.End), ErrStillActive)

		later := r.Period.End.Add(time.Hour)
		assert.Equal(t, PhaseExpired, r.PhaseAt(later))
		require.NoError(t, r.Reclaim("GLENDER", later))
		assert.Equal(t, ClosureReclaimed, r.Closure)
		assert.True(t, r.Settlement.Refund.IsZero())
		assert.Equal(t, "150", r.Settlement.Penalty.String())
		require.Len(t, r.PendingEvents(), 1)
		assert.Equal(t, "rental.reclaimed", r.PendingEvents()[0].EventName())
		assert.ErrorIs(t, r.Return("GBORROWER", later), ErrNotActive)
	})

	t.Run("Phases", func(t *testing.T) {
		r := newRental(t)
		assert.Equal(t, PhasePending, r.PhaseAt(now))
		require.NoError(t, r.Confirm("tx", now))
		assert.Equal(t, PhaseActive, r.PhaseAt(now.Add(time.Hour)))
	})

	t.Run("CloneDropsEvents", func(t *testing.T) {
		r := newRental(t)
		require.NoError(t, r.Confirm("tx", now))
		c := r.Clone()
		assert.Empty(t, c.PendingEvents())
		assert.Equal(t, r.ConfirmationRef, c.ConfirmationRef)
	})
}
