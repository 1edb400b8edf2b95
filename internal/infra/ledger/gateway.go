package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"xrent/internal/app/policies"
)

var (
	ErrEndpointMissing = errors.New("ledger: gateway endpoint not configured")
	ErrRejected        = errors.New("ledger: request rejected by gateway")
	ErrNoReference     = errors.New("ledger: gateway response missing reference")
)

// GatewayClient submits rental requests to an external settlement gateway.
// Requests are sent once; the caller's context bounds the call.
type GatewayClient struct {
	client *resty.Client
	logger *slog.Logger
}

type submitRequest struct {
	RequestID   string          `json:"request_id"`
	ListingID   int64           `json:"listing_id"`
	Duration    int             `json:"duration"`
	Borrower    string          `json:"borrower"`
	TokenSymbol string          `json:"token_symbol"`
	Total       decimal.Decimal `json:"total"`
}

type submitResponse struct {
	Reference string    `json:"reference"`
	SettledAt time.Time `json:"settled_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewGatewayClient(baseURL string, logger *slog.Logger) (*GatewayClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrEndpointMissing
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	return &GatewayClient{client: client, logger: logger}, nil
}

func (g *GatewayClient) SubmitRentalRequest(ctx context.Context, req policies.SettlementRequest) (policies.SettlementConfirmation, error) {
	var zero policies.SettlementConfirmation
	var result submitResponse
	var failure errorResponse

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", req.RequestID).
		SetBody(submitRequest{
			RequestID:   req.RequestID,
			ListingID:   int64(req.ListingID),
			Duration:    req.Duration,
			Borrower:    req.Borrower.String(),
			TokenSymbol: req.TokenSymbol,
			Total:       req.Total,
		}).
		SetResult(&result).
		SetError(&failure).
		Post("/rentals")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		g.logger.Error("settlement gateway request failed", "request_id", req.RequestID, "listing_id", req.ListingID, "error", err)
		return zero, err
	}
	if resp.IsError() {
		msg := strings.TrimSpace(failure.Error)
		if msg == "" {
			msg = resp.Status()
		}
		err := fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode(), msg)
		g.logger.Warn("settlement gateway rejected request", "request_id", req.RequestID, "listing_id", req.ListingID, "status", resp.StatusCode())
		return zero, err
	}
	if strings.TrimSpace(result.Reference) == "" {
		return zero, ErrNoReference
	}
	settledAt := result.SettledAt
	if settledAt.IsZero() {
		settledAt = time.Now().UTC()
	}
	g.logger.Info("settlement gateway confirmed", "request_id", req.RequestID, "reference", result.Reference, "duration_ms", resp.Time().Milliseconds())
	return policies.SettlementConfirmation{Reference: result.Reference, SettledAt: settledAt}, nil
}

var _ policies.SettlementPort = (*GatewayClient)(nil)
