package listings

import (
	"context"
	"errors"

	"xrent/internal/app/dto"
	"xrent/internal/app/queries"
	"xrent/internal/domain/tokens"
)

const listTokensKey = "tokens.list"

var ErrTokensMissing = errors.New("listings: token registry not configured")

type ListTokensQuery struct{}

func (ListTokensQuery) Key() string { return listTokensKey }

type ListTokensHandler struct {
	Tokens *tokens.Registry
}

func (h *ListTokensHandler) Handle(_ context.Context, _ ListTokensQuery) (dto.TokenList, error) {
	if h.Tokens == nil {
		return dto.TokenList{}, ErrTokensMissing
	}
	return dto.MapTokens(h.Tokens.All()), nil
}

var _ queries.Handler[ListTokensQuery, dto.TokenList] = (*ListTokensHandler)(nil)
