package listings

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrent/internal/app/commands"
	"xrent/internal/app/dto"
	"xrent/internal/app/middleware"
	appoutbox "xrent/internal/app/outbox"
	"xrent/internal/app/queries"
	"xrent/internal/domain/account"
	domainlistings "xrent/internal/domain/listings"
	domainpricing "xrent/internal/domain/pricing"
	"xrent/internal/domain/tokens"
	"xrent/internal/infra/storage/memory"
)

type fixture struct {
	repo    *memory.ListingRepository
	factory memory.Factory
	box     *memory.Outbox
	events  []appoutbox.EventRecord
	bus     commands.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{repo: memory.NewListingRepository(), box: memory.NewOutbox()}
	f.box.Sink = func(_ context.Context, records []appoutbox.EventRecord) error {
		f.events = append(f.events, records...)
		return nil
	}
	f.factory = memory.Factory{ListingsRepo: f.repo, RentalsRepo: memory.NewRentalRepository()}

	for _, l := range []*domainlistings.Listing{
		listing(1, "GABC...XYZ", "USDC", "1000", "3.5", "15", 1, 30),
		listing(2, "GDEF...UVW", "XLM", "5000", "5.0", "20", 3, 14),
		listing(3, "GHIJ...RST", "USDT", "2500", "4.2", "12", 1, 60),
	} {
		require.NoError(t, f.repo.Save(ctx, l))
	}

	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, CreateListingCommand{}.Key(), &CreateListingHandler{Tokens: tokens.Default(), Outbox: f.box})
	commands.RegisterHandler(bus, CancelListingCommand{}.Key(), &CancelListingHandler{Outbox: f.box})
	f.bus = middleware.ChainCommands(
		bus,
		middleware.Authorization(middleware.RequireWallet{}),
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Transaction(f.factory, nil),
		middleware.OutboxFlush(f.box),
	)
	return f
}

func listing(id int64, lender, symbol, amount, rate, collateral string, minDays, maxDays int) *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:             domainlistings.ListingID(id),
		Lender:         domainlistings.LenderID(lender),
		TokenSymbol:    symbol,
		TokenAddress:   symbol + "_ADDRESS",
		Amount:         decimal.RequireFromString(amount),
		RentalRate:     decimal.RequireFromString(rate),
		CollateralRate: decimal.RequireFromString(collateral),
		MinDuration:    minDays,
		MaxDuration:    maxDays,
		IsAvailable:    true,
	}
}

func validForm() dto.ListingForm {
	return dto.ListingForm{
		TokenAddress:   "BTC_ADDRESS",
		Amount:         "0.5",
		RentalRate:     "1.25",
		MinDuration:    "2",
		MaxDuration:    "10",
		CollateralRate: "25",
	}
}

func TestSearchCatalogHandler(t *testing.T) {
	f := newFixture(t)
	h := &SearchCatalogHandler{UoWFactory: f.factory}

	catalog, err := h.Handle(context.Background(), SearchCatalogQuery{Sort: "rate-high"})
	require.NoError(t, err)
	require.Len(t, catalog.Items, 3)
	assert.Equal(t, int64(2), catalog.Items[0].ID)
	assert.Equal(t, 3, catalog.Meta.Total)
	assert.Equal(t, "rate-high", catalog.Meta.Sort)
	assert.Equal(t, "all", catalog.Filters.Token)

	catalog, err = h.Handle(context.Background(), SearchCatalogQuery{Query: "usdc", Limit: 1})
	require.NoError(t, err)
	require.Len(t, catalog.Items, 1)
	assert.Equal(t, "USDC", catalog.Items[0].TokenSymbol)
	assert.Equal(t, "GABC...XYZ", catalog.Items[0].Lender)
}

func TestGetAndQuoteHandlers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	card, err := (&GetListingHandler{UoWFactory: f.factory}).Handle(ctx, GetListingQuery{ListingID: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}, card.DurationOptions)

	_, err = (&GetListingHandler{UoWFactory: f.factory}).Handle(ctx, GetListingQuery{ListingID: 99})
	assert.ErrorIs(t, err, domainlistings.ErrNotFound)

	quote, err := (&QuoteRentalHandler{UoWFactory: f.factory}).Handle(ctx, QuoteRentalQuery{ListingID: 1, Duration: 10})
	require.NoError(t, err)
	assert.Equal(t, "350.00", quote.RentalFee)
	assert.Equal(t, "150.00", quote.Collateral)
	assert.Equal(t, "8.75", quote.PlatformFee)
	assert.Equal(t, "508.75", quote.Total)

	_, err = (&QuoteRentalHandler{UoWFactory: f.factory}).Handle(ctx, QuoteRentalQuery{ListingID: 2, Duration: 1})
	assert.ErrorIs(t, err, domainpricing.ErrDurationOutOfRange)
}

func TestPreviewEarningsHandler(t *testing.T) {
	h := &PreviewEarningsHandler{Tokens: tokens.Default()}

	preview, err := h.Handle(context.Background(), PreviewEarningsQuery{Form: dto.ListingForm{
		TokenAddress:   "USDC_ADDRESS",
		Amount:         "1000",
		RentalRate:     "3.5",
		MinDuration:    "1",
		MaxDuration:    "30",
		CollateralRate: "15",
	}})
	require.NoError(t, err)
	assert.Equal(t, "1050.00", preview.MaxRentalIncome)
	assert.Equal(t, "150.00", preview.Collateral)
	assert.Equal(t, "1200.00", preview.Total)
	assert.Empty(t, preview.Errors)

	preview, err = h.Handle(context.Background(), PreviewEarningsQuery{Form: dto.ListingForm{Amount: "abc", MaxDuration: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "0.00", preview.Total)
	assert.Contains(t, preview.Errors, domainlistings.FieldAmount)
}

func TestCreateListing(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates", func(t *testing.T) {
		f := newFixture(t)
		card, err := commands.Dispatch[CreateListingCommand, *dto.ListingCard](ctx, f.bus, CreateListingCommand{Lender: "GNEWLENDER123", Form: validForm()})
		require.NoError(t, err)
		assert.Equal(t, int64(4), card.ID)
		assert.Equal(t, "BTC", card.TokenSymbol)
		assert.Equal(t, "GNEW...R123", card.LenderDisplay)

		stored, err := f.repo.ByID(ctx, 4)
		require.NoError(t, err)
		assert.True(t, stored.IsAvailable)

		require.Len(t, f.events, 1)
		assert.Equal(t, "listing.created", f.events[0].Name)
		assert.Equal(t, "4", f.events[0].Aggregate)
	})

	t.Run("ValidationFailure", func(t *testing.T) {
		f := newFixture(t)
		form := validForm()
		form.MinDuration, form.MaxDuration = "30", "1"
		_, err := commands.Dispatch[CreateListingCommand, *dto.ListingCard](ctx, f.bus, CreateListingCommand{Lender: "GNEW", Form: form})
		var fieldErrs domainlistings.FieldErrors
		require.ErrorAs(t, err, &fieldErrs)
		assert.Len(t, fieldErrs, 1)
		assert.Contains(t, fieldErrs, domainlistings.FieldMaxDuration)
		assert.Empty(t, f.events)

		all, err := f.repo.All(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("WalletRequired", func(t *testing.T) {
		f := newFixture(t)
		_, err := commands.Dispatch[CreateListingCommand, *dto.ListingCard](ctx, f.bus, CreateListingCommand{Form: validForm()})
		assert.ErrorIs(t, err, account.ErrKeyRequired)
	})
}

func TestCancelListing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := commands.Dispatch[CancelListingCommand, *dto.ListingCard](ctx, f.bus, CancelListingCommand{Lender: "GSOMEONE", ListingID: 1})
	assert.ErrorIs(t, err, domainlistings.ErrNotOwner)

	_, err = commands.Dispatch[CancelListingCommand, *dto.ListingCard](ctx, f.bus, CancelListingCommand{Lender: "GABC...XYZ"})
	assert.ErrorIs(t, err, ErrListingIDRequired)

	card, err := commands.Dispatch[CancelListingCommand, *dto.ListingCard](ctx, f.bus, CancelListingCommand{Lender: "GABC...XYZ", ListingID: 1})
	require.NoError(t, err)
	assert.False(t, card.IsAvailable)
	require.Len(t, f.events, 1)
	assert.Equal(t, "listing.cancelled", f.events[0].Name)

	catalog, err := (&SearchCatalogHandler{UoWFactory: f.factory}).Handle(ctx, SearchCatalogQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Meta.Total)
}

func TestListLenderListings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.repo.Save(ctx, listing(4, "GABC...XYZ", "XLM", "200", "2", "10", 1, 7)))
	_, err := commands.Dispatch[CancelListingCommand, *dto.ListingCard](ctx, f.bus, CancelListingCommand{Lender: "GABC...XYZ", ListingID: 1})
	require.NoError(t, err)

	h := &ListLenderListingsHandler{UoWFactory: f.factory}
	got, err := h.Handle(ctx, ListLenderListingsQuery{Lender: "GABC...XYZ"})
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, int64(4), got.Items[0].ID)
	assert.Equal(t, int64(1), got.Items[1].ID)
	assert.False(t, got.Items[1].IsAvailable, "cancelled listings stay on the lender view")

	none, err := h.Handle(ctx, ListLenderListingsQuery{Lender: "GNOBODY"})
	require.NoError(t, err)
	assert.Empty(t, none.Items)

	_, err = h.Handle(ctx, ListLenderListingsQuery{})
	assert.ErrorIs(t, err, account.ErrKeyRequired)
}

func TestQueryValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := queries.NewInMemoryBus()
	queries.RegisterHandler(base, QuoteRentalQuery{}.Key(), &QuoteRentalHandler{UoWFactory: f.factory})
	queries.RegisterHandler(base, GetListingQuery{}.Key(), &GetListingHandler{UoWFactory: f.factory})
	bus := middleware.ChainQueries(base, middleware.QueryValidation(middleware.SelfValidator{}))

	cases := []struct {
		name  string
		query QuoteRentalQuery
		want  error
	}{
		{"ZeroDuration", QuoteRentalQuery{ListingID: 1}, ErrDurationRequired},
		{"NegativeDuration", QuoteRentalQuery{ListingID: 1, Duration: -2}, ErrDurationRequired},
		{"NoListing", QuoteRentalQuery{Duration: 3}, ErrListingIDRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := queries.Ask[QuoteRentalQuery, dto.CostBreakdown](ctx, bus, tc.query)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("ValidQuotePasses", func(t *testing.T) {
		quote, err := queries.Ask[QuoteRentalQuery, dto.CostBreakdown](ctx, bus, QuoteRentalQuery{ListingID: 1, Duration: 10})
		require.NoError(t, err)
		assert.Equal(t, "508.75", quote.Total)
	})

	t.Run("GetRequiresID", func(t *testing.T) {
		_, err := queries.Ask[GetListingQuery, dto.ListingCard](ctx, bus, GetListingQuery{})
		assert.ErrorIs(t, err, ErrListingIDRequired)
	})
}
