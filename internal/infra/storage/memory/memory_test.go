package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "xrent/internal/app/outbox"
	"xrent/internal/app/policies"
	"xrent/internal/app/uow"
	"xrent/internal/domain/account"
	domainlistings "xrent/internal/domain/listings"
	domainrentals "xrent/internal/domain/rentals"
)

func newListing(id int64) *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:             domainlistings.ListingID(id),
		Lender:         "GLENDER",
		TokenSymbol:    "USDC",
		Amount:         decimal.NewFromInt(100),
		RentalRate:     decimal.NewFromInt(2),
		CollateralRate: decimal.NewFromInt(10),
		MinDuration:    1,
		MaxDuration:    5,
		IsAvailable:    true,
	}
}

func TestListingRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewListingRepository()

	_, err := repo.ByID(ctx, 1)
	assert.ErrorIs(t, err, domainlistings.ErrNotFound)

	require.NoError(t, repo.Save(ctx, newListing(7)))
	require.NoError(t, repo.Save(ctx, newListing(3)))

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, domainlistings.ListingID(3), all[0].ID)

	next, err := repo.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, domainlistings.ListingID(8), next)

	got, err := repo.ByID(ctx, 7)
	require.NoError(t, err)
	got.IsAvailable = false
	again, err := repo.ByID(ctx, 7)
	require.NoError(t, err)
	assert.True(t, again.IsAvailable, "callers work on copies")

	fetched, err := repo.FetchListings(ctx)
	require.NoError(t, err)
	assert.Len(t, fetched, 2)
}

func TestRentalRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRentalRepository()
	now := time.Now()

	for i, borrower := range []string{"GA", "GB", "GA"} {
		r, err := domainrentals.Request(domainrentals.RequestParams{
			ID:       domainrentals.RentalID(string(rune('a' + i))),
			Listing:  newListing(int64(i + 1)),
			Borrower: account.Key(borrower),
			Duration: 2,
			Now:      now.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, r))
	}

	mine, err := repo.ListByBorrower(ctx, "GA")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, domainrentals.RentalID("a"), mine[0].ID)

	lent, err := repo.ListByLender(ctx, newListing(2).Lender)
	require.NoError(t, err)
	assert.Len(t, lent, 3)
	none, err := repo.ListByLender(ctx, "GNOBODY")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = repo.ByID(ctx, "zzz")
	assert.ErrorIs(t, err, domainrentals.ErrNotFound)
}

func TestSimulatedSettlement(t *testing.T) {
	t.Run("Confirms", func(t *testing.T) {
		conf, err := SimulatedSettlement{Delay: time.Millisecond}.SubmitRentalRequest(context.Background(), policies.SettlementRequest{ListingID: 1, Duration: 2})
		require.NoError(t, err)
		assert.Contains(t, conf.Reference, "sim-")
	})
	t.Run("HonorsCancellation", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := SimulatedSettlement{Delay: time.Minute}.SubmitRentalRequest(ctx, policies.SettlementRequest{})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestOutboxFlushesToSink(t *testing.T) {
	var flushed []appoutbox.EventRecord
	box := NewOutbox()
	box.Sink = func(_ context.Context, records []appoutbox.EventRecord) error {
		flushed = append(flushed, records...)
		return nil
	}
	ctx := context.Background()
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "1", Name: "listing.created"}))
	assert.Len(t, box.Pending(), 1)
	require.NoError(t, box.Flush(ctx))
	assert.Empty(t, box.Pending())
	require.Len(t, flushed, 1)
	assert.Equal(t, "listing.created", flushed[0].Name)
}

func TestFactory(t *testing.T) {
	_, err := Factory{}.Begin(context.Background(), uow.TxOptions{})
	assert.ErrorIs(t, err, ErrFactoryMisconfigured)

	unit, err := Factory{ListingsRepo: NewListingRepository(), RentalsRepo: NewRentalRepository()}.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	assert.NotNil(t, unit.Listings())
	assert.NotNil(t, unit.Rentals())
}
