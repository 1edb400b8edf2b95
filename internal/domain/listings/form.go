package listings

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"xrent/internal/domain/tokens"
)

const (
	FieldTokenAddress   = "tokenAddress"
	FieldAmount         = "amount"
	FieldRentalRate     = "rentalRate"
	FieldMinDuration    = "minDuration"
	FieldMaxDuration    = "maxDuration"
	FieldCollateralRate = "collateralRate"
)

// ListingForm is the raw lender submission, all values as typed by the user.
type ListingForm struct {
	TokenAddress   string `json:"tokenAddress"`
	TokenSymbol    string `json:"tokenSymbol"`
	Amount         string `json:"amount"`
	RentalRate     string `json:"rentalRate"`
	MinDuration    string `json:"minDuration"`
	MaxDuration    string `json:"maxDuration"`
	CollateralRate string `json:"collateralRate"`
}

// DefaultForm mirrors the initial state of the lender form.
func DefaultForm() ListingForm {
	return ListingForm{
		TokenSymbol:    "USDC",
		MinDuration:    "1",
		MaxDuration:    "30",
		CollateralRate: "15",
	}
}

// FieldErrors maps a form field to its message. An empty set means the
// form is valid.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "listings: validation failed"
	}
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "listings: validation failed: " + strings.Join(parts, "; ")
}

func (e FieldErrors) add(field, message string) {
	if _, exists := e[field]; exists {
		return
	}
	e[field] = message
}

// ValidateForm checks a lender submission. It never panics; registry may be
// nil to skip the supported-token check.
func ValidateForm(form ListingForm, registry *tokens.Registry) FieldErrors {
	errs := FieldErrors{}

	if amount, ok := parseDecimal(form.Amount); !ok || !amount.IsPositive() {
		errs.add(FieldAmount, "Amount must be greater than 0")
	}
	if rate, ok := parseDecimal(form.RentalRate); !ok || !rate.IsPositive() {
		errs.add(FieldRentalRate, "Rental rate must be greater than 0")
	}

	minDays, minErr := strconv.Atoi(strings.TrimSpace(form.MinDuration))
	maxDays, maxErr := strconv.Atoi(strings.TrimSpace(form.MaxDuration))
	switch {
	case minErr != nil:
		errs.add(FieldMinDuration, "Min duration must be a whole number of days")
	case minDays < 1:
		errs.add(FieldMinDuration, "Min duration must be at least 1 day")
	}
	switch {
	case maxErr != nil:
		errs.add(FieldMaxDuration, "Max duration must be a whole number of days")
	case minErr == nil && minDays > maxDays:
		errs.add(FieldMaxDuration, "Max duration must be greater than min duration")
	case maxDays < 1:
		errs.add(FieldMaxDuration, "Max duration must be at least 1 day")
	case maxDays > MaxRentalDays:
		errs.add(FieldMaxDuration, "Max duration cannot exceed 365 days")
	}

	collateral, ok := parseDecimal(form.CollateralRate)
	if !ok || collateral.LessThan(MinCollateralRate) || collateral.GreaterThan(MaxCollateralRate) {
		errs.add(FieldCollateralRate, "Collateral must be between 10% and 50%")
	}

	address := strings.TrimSpace(form.TokenAddress)
	switch {
	case address == "":
		errs.add(FieldTokenAddress, "Please select a token")
	case registry != nil:
		if _, err := registry.ByAddress(address); err != nil {
			errs.add(FieldTokenAddress, "Token is not supported")
		}
	}
	return errs
}

func parseDecimal(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

// BuildListing validates form and, on success, creates the listing. The
// token symbol is resolved from the address through registry.
func BuildListing(id ListingID, lender LenderID, form ListingForm, registry *tokens.Registry, now time.Time) (*Listing, error) {
	if errs := ValidateForm(form, registry); len(errs) > 0 {
		return nil, errs
	}
	symbol := strings.TrimSpace(form.TokenSymbol)
	if registry != nil {
		descriptor, err := registry.ByAddress(form.TokenAddress)
		if err != nil {
			return nil, err
		}
		symbol = descriptor.Symbol
	}
	amount, _ := parseDecimal(form.Amount)
	rate, _ := parseDecimal(form.RentalRate)
	collateral, _ := parseDecimal(form.CollateralRate)
	minDays, _ := strconv.Atoi(strings.TrimSpace(form.MinDuration))
	maxDays, _ := strconv.Atoi(strings.TrimSpace(form.MaxDuration))

	return NewListing(CreateListingParams{
		ID:             id,
		Lender:         lender,
		TokenSymbol:    symbol,
		TokenAddress:   form.TokenAddress,
		Amount:         amount,
		RentalRate:     rate,
		MinDuration:    minDays,
		MaxDuration:    maxDays,
		CollateralRate: collateral,
		Now:            now,
	})
}
