package rentals

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"xrent/internal/app/dto"
	handlersupport "xrent/internal/app/handlers/support"
	"xrent/internal/app/queries"
	"xrent/internal/app/uow"
	"xrent/internal/domain/account"
	domainlistings "xrent/internal/domain/listings"
	domainrentals "xrent/internal/domain/rentals"
)

const (
	listBorrowerRentalsKey = "me.rentals.list"
	listLenderRentalsKey   = "me.lending.list"
)

type ListBorrowerRentalsQuery struct {
	Borrower account.Key
}

func (q ListBorrowerRentalsQuery) Key() string { return listBorrowerRentalsKey }

func (q ListBorrowerRentalsQuery) Validate() error {
	if q.Borrower.IsZero() {
		return account.ErrKeyRequired
	}
	return nil
}

type ListBorrowerRentalsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListBorrowerRentalsHandler) Handle(ctx context.Context, q ListBorrowerRentalsQuery) (dto.RentalCollection, error) {
	if err := q.Validate(); err != nil {
		return dto.RentalCollection{}, err
	}
	out, err := listRentals(ctx, h.UoWFactory, func(ctx context.Context, repo domainrentals.Repository) ([]*domainrentals.Rental, error) {
		return repo.ListByBorrower(ctx, q.Borrower)
	})
	if err != nil {
		return dto.RentalCollection{}, err
	}
	if h.Logger != nil {
		h.Logger.Debug("borrower rentals listed", "borrower", q.Borrower.Truncated(), "count", len(out.Items))
	}
	return out, nil
}

// ListLenderRentalsQuery lists rentals taken against the lender's listings.
type ListLenderRentalsQuery struct {
	Lender account.Key
}

func (q ListLenderRentalsQuery) Key() string { return listLenderRentalsKey }

func (q ListLenderRentalsQuery) Validate() error {
	if q.Lender.IsZero() {
		return account.ErrKeyRequired
	}
	return nil
}

type ListLenderRentalsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListLenderRentalsHandler) Handle(ctx context.Context, q ListLenderRentalsQuery) (dto.RentalCollection, error) {
	if err := q.Validate(); err != nil {
		return dto.RentalCollection{}, err
	}
	out, err := listRentals(ctx, h.UoWFactory, func(ctx context.Context, repo domainrentals.Repository) ([]*domainrentals.Rental, error) {
		return repo.ListByLender(ctx, domainlistings.LenderID(q.Lender))
	})
	if err != nil {
		return dto.RentalCollection{}, err
	}
	if h.Logger != nil {
		h.Logger.Debug("lender rentals listed", "lender", q.Lender.Truncated(), "count", len(out.Items))
	}
	return out, nil
}

func listRentals(ctx context.Context, factory uow.UoWFactory, load func(context.Context, domainrentals.Repository) ([]*domainrentals.Rental, error)) (dto.RentalCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, factory)
	if err != nil {
		return dto.RentalCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	items, err := load(execCtx, unit.Rentals())
	if err != nil {
		return dto.RentalCollection{}, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	now := time.Now().UTC()
	out := make([]dto.RentalSummary, 0, len(items))
	for _, rental := range items {
		out = append(out, dto.MapRentalSummary(rental, now))
	}
	return dto.RentalCollection{Items: out}, nil
}

var _ queries.Handler[ListBorrowerRentalsQuery, dto.RentalCollection] = (*ListBorrowerRentalsHandler)(nil)
var _ queries.Handler[ListLenderRentalsQuery, dto.RentalCollection] = (*ListLenderRentalsHandler)(nil)
