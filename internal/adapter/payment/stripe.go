package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/ports"
	"github.com/seu-repo/ai-waiter/pkg/config"
)

// StripeGateway implements ports.PaymentGateway on Stripe payment intents.
// The per-proposal idempotency key is passed straight through to Stripe, so
// a retried charge resolves to the same payment intent instead of a second
// charge.
type StripeGateway struct {
	currency string
	log      *zap.Logger
}

func NewStripeGateway(cfg config.StripeConfig, log *zap.Logger) ports.PaymentGateway {
	stripe.Key = cfg.SecretKey
	return &StripeGateway{
		currency: cfg.Currency,
		log:      log,
	}
}

func (g *StripeGateway) Charge(ctx context.Context, idempotencyKey string, amount float64, currency string, metadata map[string]string) (string, error) {
	if currency == "" {
		currency = g.currency
	}

	// Stripe expects the amount in the currency's smallest unit; VND has
	// no minor unit.
	amountUnits := int64(amount)
	if currency != "vnd" {
		amountUnits = int64(amount * 100)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountUnits),
		Currency: stripe.String(currency),
		Confirm:  stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.IdempotencyKey = stripe.String(idempotencyKey)

	if metadata != nil {
		params.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			params.Metadata[k] = v
		}
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: stripe: %v", domain.ErrExternalActionFailed, err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded &&
		pi.Status != stripe.PaymentIntentStatusProcessing {
		return "", fmt.Errorf("%w: payment not accepted: %s", domain.ErrExternalActionFailed, pi.Status)
	}

	g.log.Info("Charge accepted",
		zap.String("payment_intent", pi.ID),
		zap.String("idempotency_key", idempotencyKey),
		zap.Float64("amount", amount),
	)

	return pi.ID, nil
}
