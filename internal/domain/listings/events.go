package listings

import (
	"strconv"
	"time"
)

type ListingCreatedEvent struct {
	ListingID   ListingID `json:"listing_id"`
	Lender      LenderID  `json:"lender"`
	TokenSymbol string    `json:"token_symbol"`
	Amount      string    `json:"amount"`
	RentalRate  string    `json:"rental_rate"`
	At          time.Time `json:"at"`
}

func (e ListingCreatedEvent) EventName() string     { return "listing.created" }
func (e ListingCreatedEvent) AggregateID() string   { return e.ListingID.String() }
func (e ListingCreatedEvent) OccurredAt() time.Time { return e.At }

type ListingRentedEvent struct {
	ListingID ListingID `json:"listing_id"`
	RentalID  string    `json:"rental_id"`
	Borrower  string    `json:"borrower"`
	Duration  int       `json:"duration"`
	At        time.Time `json:"at"`
}

func (e ListingRentedEvent) EventName() string     { return "listing.rented" }
func (e ListingRentedEvent) AggregateID() string   { return e.ListingID.String() }
func (e ListingRentedEvent) OccurredAt() time.Time { return e.At }

type ListingCancelledEvent struct {
	ListingID ListingID `json:"listing_id"`
	Lender    LenderID  `json:"lender"`
	At        time.Time `json:"at"`
}

func (e ListingCancelledEvent) EventName() string     { return "listing.cancelled" }
func (e ListingCancelledEvent) AggregateID() string   { return e.ListingID.String() }
func (e ListingCancelledEvent) OccurredAt() time.Time { return e.At }

type ListingReleasedEvent struct {
	ListingID ListingID `json:"listing_id"`
	RentalID  string    `json:"rental_id"`
	At        time.Time `json:"at"`
}

func (e ListingReleasedEvent) EventName() string     { return "listing.released" }
func (e ListingReleasedEvent) AggregateID() string   { return e.ListingID.String() }
func (e ListingReleasedEvent) OccurredAt() time.Time { return e.At }

func (id ListingID) String() string { return strconv.FormatInt(int64(id), 10) }
