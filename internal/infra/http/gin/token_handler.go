package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"xrent/internal/app/dto"
	listingapp "xrent/internal/app/handlers/listings"
	"xrent/internal/app/queries"
)

type TokenHandler struct {
	Queries queries.Bus
}

func (h TokenHandler) List(c *gin.Context) {
	if h.Queries == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queries unavailable"})
		return
	}
	result, err := queries.Ask[listingapp.ListTokensQuery, dto.TokenList](c.Request.Context(), h.Queries, listingapp.ListTokensQuery{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ TokenHTTP = TokenHandler{}
