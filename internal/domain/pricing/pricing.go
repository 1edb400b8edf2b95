package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"xrent/internal/domain/listings"
)

var (
	ErrListingRequired    = errors.New("pricing: listing is required")
	ErrDurationOutOfRange = errors.New("pricing: duration outside listing bounds")
)

// PlatformFeeRate is charged on the rental fee and paid by the borrower on top.
var PlatformFeeRate = decimal.RequireFromString("0.025")

const displayPlaces = 2

// CostBreakdown holds every component at full precision. Rounding happens
// only in Rounded and Display.
type CostBreakdown struct {
	Duration    int
	RentalFee   decimal.Decimal
	Collateral  decimal.Decimal
	PlatformFee decimal.Decimal
	Total       decimal.Decimal
}

// ComputeCosts prices a rental of listing for days.
func ComputeCosts(listing *listings.Listing, days int) (CostBreakdown, error) {
	if listing == nil {
		return CostBreakdown{}, ErrListingRequired
	}
	if !listing.AcceptsDuration(days) {
		return CostBreakdown{}, fmt.Errorf("%w: %d not in [%d, %d]", ErrDurationOutOfRange, days, listing.MinDuration, listing.MaxDuration)
	}
	return compute(listing.Amount, listing.RentalRate, listing.CollateralRate, days), nil
}

func compute(amount, rentalRate, collateralRate decimal.Decimal, days int) CostBreakdown {
	rentalFee := percentOf(amount.Mul(rentalRate).Mul(decimal.NewFromInt(int64(days))))
	collateral := percentOf(amount.Mul(collateralRate))
	platformFee := rentalFee.Mul(PlatformFeeRate)
	return CostBreakdown{
		Duration:    days,
		RentalFee:   rentalFee,
		Collateral:  collateral,
		PlatformFee: platformFee,
		Total:       rentalFee.Add(collateral).Add(platformFee),
	}
}

// percentOf divides by 100 without going through decimal division precision.
func percentOf(v decimal.Decimal) decimal.Decimal {
	return v.Shift(-2)
}

// Rounded returns the breakdown with every component rounded half away
// from zero to two places.
func (c CostBreakdown) Rounded() CostBreakdown {
	return CostBreakdown{
		Duration:    c.Duration,
		RentalFee:   c.RentalFee.Round(displayPlaces),
		Collateral:  c.Collateral.Round(displayPlaces),
		PlatformFee: c.PlatformFee.Round(displayPlaces),
		Total:       c.Total.Round(displayPlaces),
	}
}

// Display renders each component with exactly two decimals.
func (c CostBreakdown) Display() DisplayBreakdown {
	return DisplayBreakdown{
		RentalFee:   c.RentalFee.StringFixed(displayPlaces),
		Collateral:  c.Collateral.StringFixed(displayPlaces),
		PlatformFee: c.PlatformFee.StringFixed(displayPlaces),
		Total:       c.Total.StringFixed(displayPlaces),
	}
}

type DisplayBreakdown struct {
	RentalFee   string
	Collateral  string
	PlatformFee string
	Total       string
}

// Earnings previews what a lender stands to collect if a listing is rented
// for its longest duration.
type Earnings struct {
	MaxRentalIncome decimal.Decimal
	Collateral      decimal.Decimal
	Total           decimal.Decimal
}

// EarningsPreview is total over partially filled input: negative or zero
// components simply yield zero income.
func EarningsPreview(amount, rentalRate decimal.Decimal, maxDays int, collateralRate decimal.Decimal) Earnings {
	if maxDays < 0 {
		maxDays = 0
	}
	income := percentOf(amount.Mul(rentalRate).Mul(decimal.NewFromInt(int64(maxDays))))
	collateral := percentOf(amount.Mul(collateralRate))
	if income.IsNegative() {
		income = decimal.Zero
	}
	if collateral.IsNegative() {
		collateral = decimal.Zero
	}
	return Earnings{
		MaxRentalIncome: income,
		Collateral:      collateral,
		Total:           income.Add(collateral),
	}
}

// LatePenaltyRate is the percentage of collateral a late return forfeits to
// the lender.
var LatePenaltyRate = decimal.NewFromInt(10)

// CollateralSettlement splits a rental's collateral when it closes.
type CollateralSettlement struct {
	Refund  decimal.Decimal
	Penalty decimal.Decimal
}

// SettleReturn refunds the full collateral for an on-time return and keeps
// LatePenaltyRate percent of it for the lender otherwise.
func SettleReturn(collateral decimal.Decimal, late bool) CollateralSettlement {
	if !late {
		return CollateralSettlement{Refund: collateral, Penalty: decimal.Zero}
	}
	penalty := percentOf(collateral.Mul(LatePenaltyRate))
	return CollateralSettlement{Refund: collateral.Sub(penalty), Penalty: penalty}
}

// SettleReclaim forfeits the whole collateral to the lender.
func SettleReclaim(collateral decimal.Decimal) CollateralSettlement {
	return CollateralSettlement{Refund: decimal.Zero, Penalty: collateral}
}
