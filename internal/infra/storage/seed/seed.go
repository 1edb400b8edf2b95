// Package seed decodes listing fixtures and loads them into a repository.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"xrent/internal/app/policies"
	domainlistings "xrent/internal/domain/listings"
	"xrent/internal/domain/tokens"
)

var ErrEmpty = errors.New("seed: no listings in fixture data")

type listingFixture struct {
	ID             int64           `json:"id"`
	Lender         string          `json:"lender"`
	TokenSymbol    string          `json:"token_symbol"`
	TokenAddress   string          `json:"token_address"`
	Amount         decimal.Decimal `json:"amount"`
	RentalRate     decimal.Decimal `json:"rental_rate"`
	MinDuration    int             `json:"min_duration"`
	MaxDuration    int             `json:"max_duration"`
	CollateralRate decimal.Decimal `json:"collateral_rate"`
	IsAvailable    *bool           `json:"is_available"`
	CreatedAt      string          `json:"created_at"`
}

// Decode parses a JSON array of listing fixtures. Entries that violate
// listing invariants, name an unknown token or reuse the id of an entry
// already accepted are logged and skipped.
func Decode(data []byte, registry *tokens.Registry, logger *slog.Logger) ([]*domainlistings.Listing, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmpty
	}
	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	out := make([]*domainlistings.Listing, 0, len(fixtures))
	seen := make(map[domainlistings.ListingID]struct{}, len(fixtures))
	for _, fx := range fixtures {
		address := fx.TokenAddress
		symbol := fx.TokenSymbol
		if registry != nil {
			descriptor, err := registry.Lookup(symbol)
			if err != nil {
				logger.Error("fixture token unknown", "listing_id", fx.ID, "token", symbol, "error", err)
				continue
			}
			symbol = descriptor.Symbol
			if address == "" {
				address = descriptor.Address
			}
		}
		listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
			ID:             domainlistings.ListingID(fx.ID),
			Lender:         domainlistings.LenderID(fx.Lender),
			TokenSymbol:    symbol,
			TokenAddress:   address,
			Amount:         fx.Amount,
			RentalRate:     fx.RentalRate,
			MinDuration:    fx.MinDuration,
			MaxDuration:    fx.MaxDuration,
			CollateralRate: fx.CollateralRate,
			Now:            parseFixtureTime(fx.CreatedAt, now),
		})
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if _, dup := seen[listing.ID]; dup {
			logger.Error("fixture id duplicated", "listing_id", fx.ID)
			continue
		}
		seen[listing.ID] = struct{}{}
		listing.ClearEvents()
		if fx.IsAvailable != nil {
			listing.IsAvailable = *fx.IsAvailable
		}
		out = append(out, listing)
	}
	return out, nil
}

func parseFixtureTime(value string, fallback time.Time) time.Time {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return fallback
}

// FileSource reads fixtures from a JSON file on every fetch.
type FileSource struct {
	Path   string
	Tokens *tokens.Registry
	Logger *slog.Logger
}

func (s FileSource) FetchListings(ctx context.Context) ([]*domainlistings.Listing, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return Decode(data, s.Tokens, s.Logger)
}

// Saver is the part of a listing repository seeding needs.
type Saver interface {
	Save(ctx context.Context, listing *domainlistings.Listing) error
}

// Into fetches from source and saves every listing into repo, returning how
// many were stored.
func Into(ctx context.Context, repo Saver, source policies.ListingSource, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	items, err := source.FetchListings(ctx)
	if err != nil {
		return 0, err
	}
	stored := 0
	for _, listing := range items {
		if err := repo.Save(ctx, listing); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", listing.ID, "error", err)
			continue
		}
		stored++
		logger.Debug("listing fixture imported", "listing_id", listing.ID)
	}
	return stored, nil
}

var _ policies.ListingSource = FileSource{}
