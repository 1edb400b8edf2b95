// Package apiclient talks to a running xrent HTTP API. It backs the
// terminal browse tool with a listing source and a settlement port.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"xrent/internal/app/dto"
	"xrent/internal/app/policies"
	"xrent/internal/domain/account"
	domainlistings "xrent/internal/domain/listings"
)

const pageSize = 100

var (
	ErrBaseURLMissing = errors.New("apiclient: base url is required")
	ErrAPI            = errors.New("apiclient: api error")
)

type Client struct {
	http   *resty.Client
	wallet account.Key
	logger *slog.Logger
}

type apiError struct {
	Error string `json:"error"`
}

func New(baseURL string, wallet account.Key, logger *slog.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrBaseURLMissing
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := resty.New().
		SetBaseURL(baseURL+"/api/v1").
		SetHeader("Accept", "application/json").
		SetTimeout(30 * time.Second)
	if !wallet.IsZero() {
		client.SetHeader("X-Wallet-Key", wallet.String())
	}
	return &Client{http: client, wallet: wallet, logger: logger}, nil
}

// FetchListings pages through the catalog and returns every listing.
func (c *Client) FetchListings(ctx context.Context) ([]*domainlistings.Listing, error) {
	var out []*domainlistings.Listing
	for offset := 0; ; offset += pageSize {
		var page dto.ListingCatalog
		var failure apiError
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"limit":  strconv.Itoa(pageSize),
				"offset": strconv.Itoa(offset),
			}).
			SetResult(&page).
			SetError(&failure).
			Get("/listings")
		if err != nil {
			return nil, fmt.Errorf("apiclient: fetch listings: %w", err)
		}
		if resp.IsError() {
			return nil, statusError(resp, failure)
		}
		for _, card := range page.Items {
			out = append(out, cardToListing(card))
		}
		if len(page.Items) < pageSize || offset+len(page.Items) >= page.Meta.Total {
			break
		}
	}
	c.logger.Debug("listings fetched from api", "count", len(out))
	return out, nil
}

// SubmitRentalRequest posts the rental to the API. The request id is sent as
// the idempotency key so a repeated submission is not charged twice.
func (c *Client) SubmitRentalRequest(ctx context.Context, req policies.SettlementRequest) (policies.SettlementConfirmation, error) {
	var receipt dto.RentalReceipt
	var failure apiError
	r := c.http.R().
		SetContext(ctx).
		SetBody(dto.RentalRequest{ListingID: int64(req.ListingID), Duration: req.Duration}).
		SetResult(&receipt).
		SetError(&failure)
	if req.RequestID != "" {
		r.SetHeader("Idempotency-Key", req.RequestID)
	}
	if !req.Borrower.IsZero() {
		r.SetHeader("X-Wallet-Key", req.Borrower.String())
	}
	resp, err := r.Post("/rentals")
	if err != nil {
		return policies.SettlementConfirmation{}, fmt.Errorf("apiclient: submit rental: %w", err)
	}
	if resp.IsError() {
		return policies.SettlementConfirmation{}, statusError(resp, failure)
	}
	return policies.SettlementConfirmation{Reference: receipt.ConfirmationRef, SettledAt: time.Now().UTC()}, nil
}

func statusError(resp *resty.Response, failure apiError) error {
	msg := strings.TrimSpace(failure.Error)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode())
	}
	return fmt.Errorf("%w: %d %s", ErrAPI, resp.StatusCode(), msg)
}

func cardToListing(card dto.ListingCard) *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:             domainlistings.ListingID(card.ID),
		Lender:         domainlistings.LenderID(card.Lender),
		TokenSymbol:    card.TokenSymbol,
		TokenAddress:   card.TokenAddress,
		Amount:         card.Amount,
		RentalRate:     card.RentalRate,
		MinDuration:    card.MinDuration,
		MaxDuration:    card.MaxDuration,
		CollateralRate: card.CollateralRate,
		IsAvailable:    card.IsAvailable,
		CreatedAt:      card.CreatedAt,
	}
}

var (
	_ policies.ListingSource  = (*Client)(nil)
	_ policies.SettlementPort = (*Client)(nil)
)
