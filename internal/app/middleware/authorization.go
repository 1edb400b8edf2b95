package middleware

import (
	"context"

	"xrent/internal/app/commands"
	"xrent/internal/domain/account"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

// WalletScoped is implemented by commands issued on behalf of a wallet.
type WalletScoped interface {
	Wallet() account.Key
}

// RequireWallet rejects wallet-scoped commands that carry no key. Any
// non-empty key is accepted.
type RequireWallet struct{}

func (RequireWallet) Authorize(_ context.Context, message any) error {
	scoped, ok := message.(WalletScoped)
	if !ok {
		return nil
	}
	if scoped.Wallet().IsZero() {
		return account.ErrKeyRequired
	}
	return nil
}
