package listings

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"xrent/internal/app/dto"
	"xrent/internal/app/queries"
	domainlistings "xrent/internal/domain/listings"
	domainpricing "xrent/internal/domain/pricing"
	"xrent/internal/domain/tokens"
)

const previewEarningsKey = "listings.preview"

// PreviewEarningsQuery evaluates a partially filled lender form.
type PreviewEarningsQuery struct {
	Form dto.ListingForm
}

func (q PreviewEarningsQuery) Key() string { return previewEarningsKey }

type PreviewEarningsHandler struct {
	Tokens *tokens.Registry
}

// Handle never fails on bad input; unparsable fields count as zero and are
// reported in the preview's error map.
func (h *PreviewEarningsHandler) Handle(_ context.Context, q PreviewEarningsQuery) (dto.EarningsPreview, error) {
	form := q.Form.Domain()
	earnings := domainpricing.EarningsPreview(
		lenientDecimal(form.Amount),
		lenientDecimal(form.RentalRate),
		lenientInt(form.MaxDuration),
		lenientDecimal(form.CollateralRate),
	)
	fieldErrors := domainlistings.ValidateForm(form, h.Tokens)
	return dto.MapEarningsPreview(earnings, fieldErrors), nil
}

func lenientDecimal(raw string) decimal.Decimal {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return v
}

func lenientInt(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return v
}

var _ queries.Handler[PreviewEarningsQuery, dto.EarningsPreview] = (*PreviewEarningsHandler)(nil)
