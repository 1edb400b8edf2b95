package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"xrent/internal/app/commands"
	"xrent/internal/app/dto"
	rentalapp "xrent/internal/app/handlers/rentals"
	"xrent/internal/app/queries"
)

type RentalHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

// Submit forwards one rental request to settlement and waits for the outcome.
func (h RentalHandler) Submit(c *gin.Context) {
	borrower, ok := requireWallet(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	var req dto.RentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := rentalapp.SubmitRentalCommand{
		CommandID:       generateCommandID(),
		Borrower:        borrower,
		ListingID:       req.ListingID,
		Duration:        req.Duration,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[rentalapp.SubmitRentalCommand, *dto.RentalReceipt](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusAccepted, result)
}

func (h RentalHandler) ListMine(c *gin.Context) {
	borrower, ok := requireWallet(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	query := rentalapp.ListBorrowerRentalsQuery{Borrower: borrower}
	result, err := queries.Ask[rentalapp.ListBorrowerRentalsQuery, dto.RentalCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("me rentals query failed", "error", err, "borrower", borrower.Truncated())
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rentals"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Return hands the tokens back on the borrower's behalf.
func (h RentalHandler) Return(c *gin.Context) {
	borrower, ok := requireWallet(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	cmd := rentalapp.ReturnRentalCommand{Borrower: borrower, RentalID: c.Param("id")}
	result, err := commands.Dispatch[rentalapp.ReturnRentalCommand, *dto.RentalSummary](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Reclaim closes an expired rental for the lender.
func (h RentalHandler) Reclaim(c *gin.Context) {
	lender, ok := requireWallet(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "commands unavailable"})
		return
	}
	cmd := rentalapp.ReclaimRentalCommand{Lender: lender, RentalID: c.Param("id")}
	result, err := commands.Dispatch[rentalapp.ReclaimRentalCommand, *dto.RentalSummary](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListLending returns rentals taken against the caller's listings.
func (h RentalHandler) ListLending(c *gin.Context) {
	lender, ok := requireWallet(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	query := rentalapp.ListLenderRentalsQuery{Lender: lender}
	result, err := queries.Ask[rentalapp.ListLenderRentalsQuery, dto.RentalCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func generateCommandID() string {
	return uuid.NewString()
}

var _ RentalHTTP = RentalHandler{}
