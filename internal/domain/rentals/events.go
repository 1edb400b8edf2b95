package rentals

import (
	"time"

	"xrent/internal/domain/listings"
)

type RentalConfirmedEvent struct {
	RentalID        RentalID           `json:"rental_id"`
	ListingID       listings.ListingID `json:"listing_id"`
	Borrower        string             `json:"borrower"`
	Duration        int                `json:"duration"`
	Total           string             `json:"total"`
	ConfirmationRef string             `json:"confirmation_ref"`
	Start           time.Time          `json:"start"`
	End             time.Time          `json:"end"`
	At              time.Time          `json:"at"`
}

func (e RentalConfirmedEvent) EventName() string     { return "rental.confirmed" }
func (e RentalConfirmedEvent) AggregateID() string   { return string(e.RentalID) }
func (e RentalConfirmedEvent) OccurredAt() time.Time { return e.At }

// RentalClosedEvent is recorded when the borrower returns the tokens or the
// lender reclaims an expired rental.
type RentalClosedEvent struct {
	RentalID  RentalID           `json:"rental_id"`
	ListingID listings.ListingID `json:"listing_id"`
	Closure   Closure            `json:"closure"`
	Late      bool               `json:"late"`
	Refund    string             `json:"collateral_refund"`
	Penalty   string             `json:"collateral_penalty"`
	At        time.Time          `json:"at"`
}

func (e RentalClosedEvent) EventName() string     { return "rental." + string(e.Closure) }
func (e RentalClosedEvent) AggregateID() string   { return string(e.RentalID) }
func (e RentalClosedEvent) OccurredAt() time.Time { return e.At }
