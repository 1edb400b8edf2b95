package browse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrent/internal/app/policies"
	domainlistings "xrent/internal/domain/listings"
	domainpricing "xrent/internal/domain/pricing"
	domainrentals "xrent/internal/domain/rentals"
)

func fixtures() []*domainlistings.Listing {
	mk := func(id int64, lender, symbol, amount, rate, collateral string, minDays, maxDays int) *domainlistings.Listing {
		return &domainlistings.Listing{
			ID:             domainlistings.ListingID(id),
			Lender:         domainlistings.LenderID(lender),
			TokenSymbol:    symbol,
			Amount:         decimal.RequireFromString(amount),
			RentalRate:     decimal.RequireFromString(rate),
			CollateralRate: decimal.RequireFromString(collateral),
			MinDuration:    minDays,
			MaxDuration:    maxDays,
			IsAvailable:    true,
		}
	}
	return []*domainlistings.Listing{
		mk(1, "GABC...XYZ", "USDC", "1000", "3.5", "15", 1, 30),
		mk(2, "GDEF...UVW", "XLM", "5000", "5.0", "20", 3, 14),
		mk(3, "GHIJ...RST", "USDT", "2500", "4.2", "12", 1, 60),
	}
}

func staticSource(items []*domainlistings.Listing) policies.ListingSource {
	return policies.ListingSourceFunc(func(context.Context) ([]*domainlistings.Listing, error) {
		return items, nil
	})
}

type settlementFunc func(ctx context.Context, req policies.SettlementRequest) (policies.SettlementConfirmation, error)

func (f settlementFunc) SubmitRentalRequest(ctx context.Context, req policies.SettlementRequest) (policies.SettlementConfirmation, error) {
	return f(ctx, req)
}

func blockingSettlement(started chan<- struct{}) settlementFunc {
	return func(ctx context.Context, _ policies.SettlementRequest) (policies.SettlementConfirmation, error) {
		if started != nil {
			close(started)
		}
		<-ctx.Done()
		return policies.SettlementConfirmation{}, ctx.Err()
	}
}

func ids(items []*domainlistings.Listing) []domainlistings.ListingID {
	out := make([]domainlistings.ListingID, 0, len(items))
	for _, l := range items {
		out = append(out, l.ID)
	}
	return out
}

func receive(t *testing.T, ch <-chan Outcome) (Outcome, bool) {
	t.Helper()
	select {
	case out, ok := <-ch:
		return out, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outcome")
		return Outcome{}, false
	}
}

func TestSessionBrowse(t *testing.T) {
	s := NewSession(Config{Source: staticSource(fixtures())})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	assert.Equal(t, []domainlistings.ListingID{1, 3, 2}, ids(s.Visible()))

	s.SetSort(domainlistings.SortAmountHigh)
	assert.Equal(t, []domainlistings.ListingID{2, 3, 1}, ids(s.Visible()))

	s.SetQuery("usdc")
	assert.Equal(t, []domainlistings.ListingID{1}, ids(s.Visible()))

	s.SetQuery("")
	s.SetTokenFilter("XLM")
	assert.Equal(t, []domainlistings.ListingID{2}, ids(s.Visible()))

	s.SetTokenFilter("")
	assert.Len(t, s.Visible(), 3)
}

func TestSessionLoadFailure(t *testing.T) {
	boom := errors.New("rpc unavailable")
	calls := 0
	source := policies.ListingSourceFunc(func(context.Context) ([]*domainlistings.Listing, error) {
		calls++
		if calls == 1 {
			return fixtures(), nil
		}
		return nil, boom
	})
	s := NewSession(Config{Source: source})
	defer s.Close()

	require.NoError(t, s.Load(context.Background()))
	require.Len(t, s.Visible(), 3)

	err := s.Load(context.Background())
	assert.ErrorIs(t, err, domainlistings.ErrLoadFailed)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.Visible())
}

func TestSessionDurationAndQuote(t *testing.T) {
	s := NewSession(Config{Source: staticSource(fixtures())})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	days, err := s.SelectedDuration(2)
	require.NoError(t, err)
	assert.Equal(t, 3, days)

	assert.ErrorIs(t, s.SelectDuration(2, 15), domainpricing.ErrDurationOutOfRange)
	assert.ErrorIs(t, s.SelectDuration(99, 1), ErrUnknownListing)

	require.NoError(t, s.SelectDuration(1, 10))
	costs, err := s.Quote(1)
	require.NoError(t, err)
	view := costs.Display()
	assert.Equal(t, "350.00", view.RentalFee)
	assert.Equal(t, "150.00", view.Collateral)
	assert.Equal(t, "8.75", view.PlatformFee)
	assert.Equal(t, "508.75", view.Total)
}

func TestSessionSubmit(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var got policies.SettlementRequest
		port := settlementFunc(func(_ context.Context, req policies.SettlementRequest) (policies.SettlementConfirmation, error) {
			got = req
			return policies.SettlementConfirmation{Reference: "tx-1", SettledAt: time.Now()}, nil
		})
		s := NewSession(Config{Source: staticSource(fixtures()), Settlement: port, Borrower: "GBORROWER"})
		defer s.Close()
		require.NoError(t, s.Load(context.Background()))
		require.NoError(t, s.SelectDuration(1, 10))

		ch, err := s.Submit(context.Background(), 1)
		require.NoError(t, err)
		out, ok := receive(t, ch)
		require.True(t, ok)
		require.NoError(t, out.Err)
		assert.Equal(t, "tx-1", out.Confirmation.Reference)
		assert.Equal(t, 10, out.Duration)
		assert.Equal(t, domainlistings.ListingID(1), got.ListingID)
		assert.Equal(t, 10, got.Duration)
		assert.NotEmpty(t, got.RequestID)

		_, more := <-ch
		assert.False(t, more, "exactly one outcome")
		assert.NotContains(t, ids(s.Visible()), domainlistings.ListingID(1))

		_, err = s.Submit(context.Background(), 1)
		assert.ErrorIs(t, err, domainlistings.ErrNotAvailable)
	})

	t.Run("Failure", func(t *testing.T) {
		port := settlementFunc(func(context.Context, policies.SettlementRequest) (policies.SettlementConfirmation, error) {
			return policies.SettlementConfirmation{}, errors.New("rejected")
		})
		s := NewSession(Config{Source: staticSource(fixtures()), Settlement: port, Borrower: "GBORROWER"})
		defer s.Close()
		require.NoError(t, s.Load(context.Background()))

		ch, err := s.Submit(context.Background(), 3)
		require.NoError(t, err)
		out, ok := receive(t, ch)
		require.True(t, ok)
		assert.ErrorIs(t, out.Err, domainrentals.ErrSubmissionFailed)
		assert.Contains(t, ids(s.Visible()), domainlistings.ListingID(3))
	})

	t.Run("Timeout", func(t *testing.T) {
		s := NewSession(Config{Source: staticSource(fixtures()), Settlement: blockingSettlement(nil), Borrower: "GBORROWER", Timeout: 20 * time.Millisecond})
		defer s.Close()
		require.NoError(t, s.Load(context.Background()))

		ch, err := s.Submit(context.Background(), 1)
		require.NoError(t, err)
		out, ok := receive(t, ch)
		require.True(t, ok)
		assert.ErrorIs(t, out.Err, domainrentals.ErrSubmissionFailed)
		assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
	})

	t.Run("RejectsConcurrentSubmitForSameListing", func(t *testing.T) {
		started := make(chan struct{})
		s := NewSession(Config{Source: staticSource(fixtures()), Settlement: blockingSettlement(started), Borrower: "GBORROWER"})
		require.NoError(t, s.Load(context.Background()))

		_, err := s.Submit(context.Background(), 1)
		require.NoError(t, err)
		<-started
		_, err = s.Submit(context.Background(), 1)
		assert.ErrorIs(t, err, ErrSubmitting)
		s.Close()
	})

	t.Run("Preconditions", func(t *testing.T) {
		s := NewSession(Config{Source: staticSource(fixtures())})
		defer s.Close()
		_, err := s.Submit(context.Background(), 1)
		assert.ErrorIs(t, err, ErrNoSettlement)

		s2 := NewSession(Config{Source: staticSource(fixtures()), Settlement: blockingSettlement(nil), Borrower: "GB"})
		defer s2.Close()
		require.NoError(t, s2.Load(context.Background()))
		_, err = s2.Submit(context.Background(), 42)
		assert.ErrorIs(t, err, ErrUnknownListing)
	})
}

func TestSessionCloseDropsOutcome(t *testing.T) {
	started := make(chan struct{})
	s := NewSession(Config{Source: staticSource(fixtures()), Settlement: blockingSettlement(started), Borrower: "GBORROWER"})
	require.NoError(t, s.Load(context.Background()))

	ch, err := s.Submit(context.Background(), 2)
	require.NoError(t, err)
	<-started
	s.Close()

	_, ok := receive(t, ch)
	assert.False(t, ok, "no outcome after close")

	_, err = s.Submit(context.Background(), 3)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Load(context.Background()), ErrClosed)
}
