package payment

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// ErrGatewayTimeout is the transient error a failing Charge reports.
var ErrGatewayTimeout = errors.New("payment gateway timeout - please retry")

// SimulatedGateway fails Charge with a configurable probability, for dev and
// test use. The teacher's hardcoded 10% failure rate becomes a constructor
// parameter here.
type SimulatedGateway struct {
	failureProbability float64
	rand               *rand.Rand
}

func NewSimulatedGateway(failureProbability float64) *SimulatedGateway {
	return &SimulatedGateway{
		failureProbability: failureProbability,
		rand:               rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewSimulatedGatewayWithSeed builds a SimulatedGateway with a deterministic
// random source, for reproducible tests of the retry-then-succeed scenario.
func NewSimulatedGatewayWithSeed(failureProbability float64, seed int64) *SimulatedGateway {
	return &SimulatedGateway{
		failureProbability: failureProbability,
		rand:               rand.New(rand.NewSource(seed)),
	}
}

func (g *SimulatedGateway) Charge(ctx context.Context, req ChargeRequest) error {
	if g.rand.Float64() < g.failureProbability {
		return ErrGatewayTimeout
	}
	return nil
}

var _ Gateway = (*SimulatedGateway)(nil)
