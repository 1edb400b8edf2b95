package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	listingapp "xrent/internal/app/handlers/listings"
	rentalapp "xrent/internal/app/handlers/rentals"
	handlersupport "xrent/internal/app/handlers/support"
	"xrent/internal/domain/account"
	domainlistings "xrent/internal/domain/listings"
	domainpricing "xrent/internal/domain/pricing"
	domainrentals "xrent/internal/domain/rentals"
)

// writeError maps application errors onto HTTP responses.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	var fields domainlistings.FieldErrors
	if errors.As(err, &fields) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domainrentals.ErrSubmissionFailed):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case errors.Is(err, domainlistings.ErrNotFound), errors.Is(err, domainrentals.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, account.ErrKeyRequired):
		return http.StatusUnauthorized
	case errors.Is(err, domainlistings.ErrNotOwner),
		errors.Is(err, domainrentals.ErrNotBorrower),
		errors.Is(err, domainrentals.ErrNotLender):
		return http.StatusForbidden
	case errors.Is(err, domainlistings.ErrNotAvailable),
		errors.Is(err, domainlistings.ErrNotRented),
		errors.Is(err, domainrentals.ErrNotActive),
		errors.Is(err, domainrentals.ErrStillActive),
		errors.Is(err, handlersupport.ErrListingBusy):
		return http.StatusConflict
	case errors.Is(err, domainpricing.ErrDurationOutOfRange),
		errors.Is(err, domainrentals.ErrOwnListing),
		errors.Is(err, rentalapp.ErrListingIDRequired),
		errors.Is(err, rentalapp.ErrDurationRequired),
		errors.Is(err, rentalapp.ErrRentalIDRequired),
		errors.Is(err, listingapp.ErrListingIDRequired),
		errors.Is(err, listingapp.ErrDurationRequired):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
