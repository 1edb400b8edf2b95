package ledger

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrent/internal/app/policies"
)

func sampleRequest() policies.SettlementRequest {
	return policies.SettlementRequest{
		RequestID:   "r-1",
		ListingID:   1,
		Duration:    10,
		Borrower:    "GBORROWER",
		TokenSymbol: "USDC",
		Total:       decimal.RequireFromString("508.75"),
	}
}

func newClient(t *testing.T, h http.HandlerFunc) *GatewayClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewGatewayClient(srv.URL+"/", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func TestGatewayClient(t *testing.T) {
	t.Run("Confirms", func(t *testing.T) {
		var body map[string]any
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/rentals", r.URL.Path)
			assert.Equal(t, "r-1", r.Header.Get("Idempotency-Key"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"reference":"tx-42","settled_at":"2025-01-15T10:00:00Z"}`))
		})

		conf, err := c.SubmitRentalRequest(context.Background(), sampleRequest())
		require.NoError(t, err)
		assert.Equal(t, "tx-42", conf.Reference)
		assert.Equal(t, time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC), conf.SettledAt)
		assert.Equal(t, "508.75", body["total"])
		assert.Equal(t, float64(1), body["listing_id"])
		assert.Equal(t, float64(10), body["duration"])
	})

	t.Run("Rejected", func(t *testing.T) {
		calls := 0
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"listing already rented"}`))
		})

		_, err := c.SubmitRentalRequest(context.Background(), sampleRequest())
		assert.ErrorIs(t, err, ErrRejected)
		assert.Contains(t, err.Error(), "listing already rented")
		assert.Equal(t, 1, calls)
	})

	t.Run("MissingReference", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
		})
		_, err := c.SubmitRentalRequest(context.Background(), sampleRequest())
		assert.ErrorIs(t, err, ErrNoReference)
	})

	t.Run("Timeout", func(t *testing.T) {
		release := make(chan struct{})
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		_, err := c.SubmitRentalRequest(ctx, sampleRequest())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("EndpointRequired", func(t *testing.T) {
		_, err := NewGatewayClient("  ", nil)
		assert.ErrorIs(t, err, ErrEndpointMissing)
	})
}
