package seed

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainlistings "xrent/internal/domain/listings"
	"xrent/internal/domain/tokens"
)

const sample = `[
  {"id": 1, "lender": "GABC...XYZ", "token_symbol": "USDC", "amount": "1000", "rental_rate": "3.5", "min_duration": 1, "max_duration": 30, "collateral_rate": "15"},
  {"id": 2, "lender": "GDEF...UVW", "token_symbol": "xlm", "amount": "5000", "rental_rate": "5.0", "min_duration": 3, "max_duration": 14, "collateral_rate": "20", "is_available": false},
  {"id": 3, "lender": "GHIJ...RST", "token_symbol": "DOGE", "amount": "1", "rental_rate": "1", "min_duration": 1, "max_duration": 2, "collateral_rate": "15"},
  {"id": 4, "lender": "GKLM...NOP", "token_symbol": "USDT", "amount": "2500", "rental_rate": "4.2", "min_duration": 9, "max_duration": 2, "collateral_rate": "12"}
]`

type recordingSaver struct {
	saved []*domainlistings.Listing
}

func (r *recordingSaver) Save(_ context.Context, l *domainlistings.Listing) error {
	r.saved = append(r.saved, l)
	return nil
}

func TestDecode(t *testing.T) {
	items, err := Decode([]byte(sample), tokens.Default(), nil)
	require.NoError(t, err)
	require.Len(t, items, 2, "unknown token and invalid range are skipped")

	assert.Equal(t, "USDC_ADDRESS", items[0].TokenAddress)
	assert.True(t, items[0].IsAvailable)
	assert.Empty(t, items[0].PendingEvents())

	assert.Equal(t, "XLM", items[1].TokenSymbol)
	assert.False(t, items[1].IsAvailable)

	_, err = Decode([]byte("  "), nil, nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Decode([]byte("{"), nil, nil)
	assert.Error(t, err)
}

func TestDecodeDuplicateIDs(t *testing.T) {
	const dup = `[
  {"id": 1, "lender": "GABC...XYZ", "token_symbol": "USDC", "amount": "1000", "rental_rate": "3.5", "min_duration": 1, "max_duration": 30, "collateral_rate": "15"},
  {"id": 1, "lender": "GDEF...UVW", "token_symbol": "XLM", "amount": "5000", "rental_rate": "5.0", "min_duration": 3, "max_duration": 14, "collateral_rate": "20"},
  {"id": 2, "lender": "GHIJ...RST", "token_symbol": "USDC", "amount": "1", "rental_rate": "1", "min_duration": 9, "max_duration": 2, "collateral_rate": "15"},
  {"id": 2, "lender": "GKLM...NOP", "token_symbol": "USDT", "amount": "2500", "rental_rate": "4.2", "min_duration": 1, "max_duration": 7, "collateral_rate": "12"}
]`
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	items, err := Decode([]byte(dup), tokens.Default(), logger)
	require.NoError(t, err)
	require.Len(t, items, 2)

	t.Run("FirstAcceptedEntryWins", func(t *testing.T) {
		assert.Equal(t, domainlistings.ListingID(1), items[0].ID)
		assert.Equal(t, "USDC", items[0].TokenSymbol)
		assert.Equal(t, domainlistings.LenderID("GABC...XYZ"), items[0].Lender)
	})

	t.Run("InvalidEntryDoesNotClaimID", func(t *testing.T) {
		assert.Equal(t, domainlistings.ListingID(2), items[1].ID)
		assert.Equal(t, "USDT", items[1].TokenSymbol)
	})

	t.Run("DuplicateIsLogged", func(t *testing.T) {
		assert.Equal(t, 1, strings.Count(logs.String(), "fixture id duplicated"))
	})
}

func TestFileSourceAndInto(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "listings.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	saver := &recordingSaver{}
	n, err := Into(context.Background(), saver, FileSource{Path: path, Tokens: tokens.Default()}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, saver.saved, 2)

	_, err = FileSource{Path: filepath.Join(dir, "missing.json")}.FetchListings(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
