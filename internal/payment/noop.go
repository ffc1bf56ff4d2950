package payment

import "context"

// NoopGateway always succeeds. It is the default production Gateway, since
// real payment processing business logic is out of scope.
type NoopGateway struct{}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{}
}

func (g *NoopGateway) Charge(ctx context.Context, req ChargeRequest) error {
	return nil
}

var _ Gateway = (*NoopGateway)(nil)
