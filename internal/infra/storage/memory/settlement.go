package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"xrent/internal/app/policies"
)

const DefaultSettlementDelay = 2 * time.Second

// SimulatedSettlement accepts every request after Delay. It stands in for
// the ledger until a real gateway is configured.
type SimulatedSettlement struct {
	Delay time.Duration
}

func (s SimulatedSettlement) SubmitRentalRequest(ctx context.Context, req policies.SettlementRequest) (policies.SettlementConfirmation, error) {
	delay := s.Delay
	if delay < 0 {
		delay = 0
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return policies.SettlementConfirmation{}, ctx.Err()
	case <-timer.C:
	}
	return policies.SettlementConfirmation{
		Reference: "sim-" + uuid.NewString(),
		SettledAt: time.Now().UTC(),
	}, nil
}

var _ policies.SettlementPort = SimulatedSettlement{}
