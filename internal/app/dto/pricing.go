package dto

import (
	"github.com/shopspring/decimal"

	domainpricing "xrent/internal/domain/pricing"
)

// CostBreakdown carries both the display strings and the exact values.
type CostBreakdown struct {
	ListingID   int64           `json:"listing_id"`
	Duration    int             `json:"duration"`
	TokenSymbol string          `json:"token_symbol"`
	RentalFee   string          `json:"rental_fee"`
	Collateral  string          `json:"collateral"`
	PlatformFee string          `json:"platform_fee"`
	Total       string          `json:"total"`
	Exact       ExactCostValues `json:"exact"`
}

type ExactCostValues struct {
	RentalFee   decimal.Decimal `json:"rental_fee"`
	Collateral  decimal.Decimal `json:"collateral"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
	Total       decimal.Decimal `json:"total"`
}

func MapCostBreakdown(listingID int64, symbol string, costs domainpricing.CostBreakdown) CostBreakdown {
	view := costs.Display()
	return CostBreakdown{
		ListingID:   listingID,
		Duration:    costs.Duration,
		TokenSymbol: symbol,
		RentalFee:   view.RentalFee,
		Collateral:  view.Collateral,
		PlatformFee: view.PlatformFee,
		Total:       view.Total,
		Exact: ExactCostValues{
			RentalFee:   costs.RentalFee,
			Collateral:  costs.Collateral,
			PlatformFee: costs.PlatformFee,
			Total:       costs.Total,
		},
	}
}

// EarningsPreview is shown beside the lender form while it is being filled.
type EarningsPreview struct {
	MaxRentalIncome string            `json:"max_rental_income"`
	Collateral      string            `json:"collateral"`
	Total           string            `json:"total"`
	Errors          map[string]string `json:"errors,omitempty"`
}

func MapEarningsPreview(e domainpricing.Earnings, fieldErrors map[string]string) EarningsPreview {
	return EarningsPreview{
		MaxRentalIncome: e.MaxRentalIncome.StringFixed(2),
		Collateral:      e.Collateral.StringFixed(2),
		Total:           e.Total.StringFixed(2),
		Errors:          fieldErrors,
	}
}
