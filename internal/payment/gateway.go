package payment

import "context"

// ChargeRequest carries the minimal information a Gateway needs to apply
// the payment side-effect for an order (spec C5 step 3).
type ChargeRequest struct {
	OrderID string
	UserID  string
	Amount  float64
}

// Gateway is the pluggable payment side-effect seam. A non-nil error is
// always treated as transient by the worker (§4.4 step 3) — a Gateway must
// never report business failures through Charge.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) error
}
