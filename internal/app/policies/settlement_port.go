package policies

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"xrent/internal/domain/account"
	domainlistings "xrent/internal/domain/listings"
)

// SettlementRequest is what leaves the service when a borrower rents a
// listing. Only the listing id and duration are required by the ledger.
type SettlementRequest struct {
	RequestID   string
	ListingID   domainlistings.ListingID
	Duration    int
	Borrower    account.Key
	TokenSymbol string
	Total       decimal.Decimal
}

type SettlementConfirmation struct {
	Reference string
	SettledAt time.Time
}

// SettlementPort accepts rental requests on the external ledger.
type SettlementPort interface {
	SubmitRentalRequest(ctx context.Context, req SettlementRequest) (SettlementConfirmation, error)
}
