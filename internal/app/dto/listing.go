package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"xrent/internal/domain/account"
	domainlistings "xrent/internal/domain/listings"
)

// ListingCard is what the browse view renders per listing.
type ListingCard struct {
	ID              int64           `json:"id"`
	Lender          string          `json:"lender"`
	LenderDisplay   string          `json:"lender_display"`
	TokenSymbol     string          `json:"token_symbol"`
	TokenAddress    string          `json:"token_address,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	RentalRate      decimal.Decimal `json:"rental_rate"`
	MinDuration     int             `json:"min_duration"`
	MaxDuration     int             `json:"max_duration"`
	CollateralRate  decimal.Decimal `json:"collateral_rate"`
	IsAvailable     bool            `json:"is_available"`
	DurationOptions []int           `json:"duration_options"`
	CreatedAt       time.Time       `json:"created_at"`
}

func MapListingCard(listing *domainlistings.Listing) ListingCard {
	if listing == nil {
		return ListingCard{}
	}
	return ListingCard{
		ID:              int64(listing.ID),
		Lender:          string(listing.Lender),
		LenderDisplay:   account.Key(listing.Lender).Truncated(),
		TokenSymbol:     listing.TokenSymbol,
		TokenAddress:    listing.TokenAddress,
		Amount:          listing.Amount,
		RentalRate:      listing.RentalRate,
		MinDuration:     listing.MinDuration,
		MaxDuration:     listing.MaxDuration,
		CollateralRate:  listing.CollateralRate,
		IsAvailable:     listing.IsAvailable,
		DurationOptions: listing.DurationOptions(),
		CreatedAt:       listing.CreatedAt,
	}
}

type ListingCollection struct {
	Items []ListingCard `json:"items"`
}

// ListingForm mirrors the lender form fields as submitted.
type ListingForm struct {
	TokenAddress   string `json:"tokenAddress"`
	TokenSymbol    string `json:"tokenSymbol"`
	Amount         string `json:"amount"`
	RentalRate     string `json:"rentalRate"`
	MinDuration    string `json:"minDuration"`
	MaxDuration    string `json:"maxDuration"`
	CollateralRate string `json:"collateralRate"`
}

func (f ListingForm) Domain() domainlistings.ListingForm {
	return domainlistings.ListingForm{
		TokenAddress:   f.TokenAddress,
		TokenSymbol:    f.TokenSymbol,
		Amount:         f.Amount,
		RentalRate:     f.RentalRate,
		MinDuration:    f.MinDuration,
		MaxDuration:    f.MaxDuration,
		CollateralRate: f.CollateralRate,
	}
}
