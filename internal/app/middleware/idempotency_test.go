package middleware

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrent/internal/app/commands"
	"xrent/internal/domain/account"
)

type mapStore struct {
	mu    sync.Mutex
	items map[string]IdempotencyRecord
}

func (s *mapStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *mapStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil {
		s.items = make(map[string]IdempotencyRecord)
	}
	s.items[rec.Key] = rec
	return nil
}

type echoResult struct {
	Wallet string `json:"wallet"`
	Call   int    `json:"call"`
}

type echoCommand struct {
	wallet account.Key
	key    string
}

func (c echoCommand) Key() string            { return "test.echo" }
func (c echoCommand) Wallet() account.Key    { return c.wallet }
func (c echoCommand) IdempotencyKey() string { return c.key }
func (c echoCommand) ResultPrototype() any   { return &echoResult{} }

func TestIdempotency(t *testing.T) {
	newBus := func() (commands.Bus, *int) {
		calls := 0
		base := commands.NewInMemoryBus()
		commands.RegisterHandler(base, echoCommand{}.Key(), commands.HandlerFunc[echoCommand, *echoResult](
			func(_ context.Context, cmd echoCommand) (*echoResult, error) {
				calls++
				return &echoResult{Wallet: cmd.wallet.String(), Call: calls}, nil
			}))
		return ChainCommands(base, Idempotency(&mapStore{}, nil)), &calls
	}
	ctx := context.Background()

	t.Run("ReplaysForSameWallet", func(t *testing.T) {
		bus, calls := newBus()
		first, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{wallet: "GALICE", key: "k-1"})
		require.NoError(t, err)
		second, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{wallet: "GALICE", key: "k-1"})
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, *calls)
	})

	t.Run("KeysAreScopedByWallet", func(t *testing.T) {
		bus, calls := newBus()
		alice, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{wallet: "GALICE", key: "shared"})
		require.NoError(t, err)
		bob, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{wallet: "GBOB", key: "shared"})
		require.NoError(t, err)
		assert.Equal(t, "GALICE", alice.Wallet)
		assert.Equal(t, "GBOB", bob.Wallet)
		assert.Equal(t, 2, *calls)
	})

	t.Run("EmptyKeyAlwaysRuns", func(t *testing.T) {
		bus, calls := newBus()
		for i := 0; i < 2; i++ {
			_, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{wallet: "GALICE"})
			require.NoError(t, err)
		}
		assert.Equal(t, 2, *calls)
	})
}
