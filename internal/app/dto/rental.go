package dto

import (
	"time"

	domainrentals "xrent/internal/domain/rentals"
)

// RentalSummary is one row of the borrower or lender dashboard. Settled
// collateral is filled in once the rental is completed.
type RentalSummary struct {
	ID                string        `json:"id"`
	ListingID         int64         `json:"listing_id"`
	Lender            string        `json:"lender"`
	BorrowerDisplay   string        `json:"borrower_display"`
	TokenSymbol       string        `json:"token_symbol"`
	Duration          int           `json:"duration"`
	Status            string        `json:"status"`
	Phase             string        `json:"phase"`
	ConfirmationRef   string        `json:"confirmation_ref,omitempty"`
	Costs             CostBreakdown `json:"costs"`
	StartsAt          *time.Time    `json:"starts_at,omitempty"`
	EndsAt            *time.Time    `json:"ends_at,omitempty"`
	Active            bool          `json:"active"`
	Closure           string        `json:"closure,omitempty"`
	ClosedAt          *time.Time    `json:"closed_at,omitempty"`
	Late              bool          `json:"late,omitempty"`
	CollateralRefund  string        `json:"collateral_refund,omitempty"`
	CollateralPenalty string        `json:"collateral_penalty,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

type RentalCollection struct {
	Items []RentalSummary `json:"items"`
}

func MapRentalSummary(r *domainrentals.Rental, now time.Time) RentalSummary {
	if r == nil {
		return RentalSummary{}
	}
	out := RentalSummary{
		ID:              string(r.ID),
		ListingID:       int64(r.ListingID),
		Lender:          string(r.Lender),
		BorrowerDisplay: r.Borrower.Truncated(),
		TokenSymbol:     r.TokenSymbol,
		Duration:        r.Duration,
		Status:          string(r.Status),
		Phase:           string(r.PhaseAt(now)),
		ConfirmationRef: r.ConfirmationRef,
		Costs:           MapCostBreakdown(int64(r.ListingID), r.TokenSymbol, r.Costs),
		Active:          r.ActiveAt(now),
		Closure:         string(r.Closure),
		Late:            r.Late,
		CreatedAt:       r.CreatedAt,
	}
	if !r.Period.IsZero() {
		start, end := r.Period.Start, r.Period.End
		out.StartsAt = &start
		out.EndsAt = &end
	}
	if r.Status == domainrentals.StatusCompleted {
		closedAt := r.ClosedAt
		out.ClosedAt = &closedAt
		out.CollateralRefund = r.Settlement.Refund.StringFixed(2)
		out.CollateralPenalty = r.Settlement.Penalty.StringFixed(2)
	}
	return out
}

// RentalRequest is the body of a rental submission.
type RentalRequest struct {
	ListingID int64 `json:"listing_id" binding:"required"`
	Duration  int   `json:"duration" binding:"required"`
}

// RentalReceipt is returned once a submission is accepted.
type RentalReceipt struct {
	RentalID        string        `json:"rental_id"`
	ListingID       int64         `json:"listing_id"`
	Duration        int           `json:"duration"`
	Status          string        `json:"status"`
	ConfirmationRef string        `json:"confirmation_ref"`
	Borrower        string        `json:"borrower"`
	Costs           CostBreakdown `json:"costs"`
}

func MapRentalReceipt(r *domainrentals.Rental) RentalReceipt {
	return RentalReceipt{
		RentalID:        string(r.ID),
		ListingID:       int64(r.ListingID),
		Duration:        r.Duration,
		Status:          string(r.Status),
		ConfirmationRef: r.ConfirmationRef,
		Borrower:        r.Borrower.Truncated(),
		Costs:           MapCostBreakdown(int64(r.ListingID), r.TokenSymbol, r.Costs),
	}
}
