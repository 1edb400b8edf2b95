package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"xrent/internal/app/commands"
	"xrent/internal/app/dto"
	listingapp "xrent/internal/app/handlers/listings"
	"xrent/internal/app/queries"
)

// ListingHandler wires listing queries and commands to HTTP.
type ListingHandler struct {
	Queries  queries.Bus
	Commands commands.Bus
	Logger   *slog.Logger
}

// Catalog responds with the filtered and sorted available listings.
func (h ListingHandler) Catalog(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "listing handler unavailable"})
		return
	}
	query := listingapp.SearchCatalogQuery{
		Query:  c.Query("q"),
		Token:  c.Query("token"),
		Sort:   c.Query("sort"),
		Limit:  parseIntWithDefault(c.Query("limit"), 24),
		Offset: parseInt(c.Query("offset")),
	}
	result, err := queries.Ask[listingapp.SearchCatalogQuery, dto.ListingCatalog](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Get(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "listing handler unavailable"})
		return
	}
	id, ok := listingIDParam(c)
	if !ok {
		return
	}
	result, err := queries.Ask[listingapp.GetListingQuery, dto.ListingCard](c.Request.Context(), h.Queries, listingapp.GetListingQuery{ListingID: id})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Quote prices a rental of the listing for ?duration= days.
func (h ListingHandler) Quote(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "listing handler unavailable"})
		return
	}
	id, ok := listingIDParam(c)
	if !ok {
		return
	}
	duration, err := strconv.Atoi(strings.TrimSpace(c.Query("duration")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration must be a whole number of days"})
		return
	}
	query := listingapp.QuoteRentalQuery{ListingID: id, Duration: duration}
	result, err := queries.Ask[listingapp.QuoteRentalQuery, dto.CostBreakdown](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Preview computes the lender's earnings preview for a partially filled form.
func (h ListingHandler) Preview(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "listing handler unavailable"})
		return
	}
	var form dto.ListingForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := queries.Ask[listingapp.PreviewEarningsQuery, dto.EarningsPreview](c.Request.Context(), h.Queries, listingapp.PreviewEarningsQuery{Form: form})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Create(c *gin.Context) {
	lender, ok := requireWallet(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var form dto.ListingForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := listingapp.CreateListingCommand{
		Lender:          lender,
		Form:            form,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[listingapp.CreateListingCommand, *dto.ListingCard](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ListingHandler) Cancel(c *gin.Context) {
	lender, ok := requireWallet(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	id, ok := listingIDParam(c)
	if !ok {
		return
	}
	cmd := listingapp.CancelListingCommand{Lender: lender, ListingID: id}
	result, err := commands.Dispatch[listingapp.CancelListingCommand, *dto.ListingCard](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListMine returns every listing the caller created.
func (h ListingHandler) ListMine(c *gin.Context) {
	lender, ok := requireWallet(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "listing handler unavailable"})
		return
	}
	query := listingapp.ListLenderListingsQuery{Lender: lender}
	result, err := queries.Ask[listingapp.ListLenderListingsQuery, dto.ListingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ListingHTTP = ListingHandler{}

func listingIDParam(c *gin.Context) (int64, bool) {
	id := parseInt64(c.Param("id"))
	if id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "listing id must be a positive integer"})
		return 0, false
	}
	return id, true
}

func parseInt(raw string) int {
	value, _ := strconv.Atoi(strings.TrimSpace(raw))
	if value < 0 {
		return 0
	}
	return value
}

func parseIntWithDefault(raw string, fallback int) int {
	value := parseInt(raw)
	if value == 0 {
		return fallback
	}
	return value
}

func parseInt64(raw string) int64 {
	value, _ := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if value < 0 {
		return 0
	}
	return value
}
