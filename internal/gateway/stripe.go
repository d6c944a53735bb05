package gateway

import (
	"context"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/paymentmethod"
)

type ChargeResult struct {
	Succeeded     bool
	TransactionID string
	Message       string
}

type IntentResult struct {
	ClientSecret string
	IntentID     string
	CustomerID   string
}

// Client is the payment-processor surface the billing layer consumes.
type Client interface {
	// FindOrCreateCustomer resolves the processor customer for an email,
	// creating one on first contact.
	FindOrCreateCustomer(ctx context.Context, email string) (string, error)

	// Charge bills the customer's stored payment method off-session.
	// Failures come back as *CardError or *GatewayError.
	Charge(ctx context.Context, customerID string, amount int64, currency string) (ChargeResult, error)

	// CreateIntent opens an interactive first-time payment setup; the card is
	// saved for future off-session charges.
	CreateIntent(ctx context.Context, amount int64, email string) (IntentResult, error)
}

type stripeClient struct{}

// NewStripeClient wires the Stripe API key and returns the gateway client.
func NewStripeClient(secretKey string) Client {
	stripe.Key = secretKey
	return &stripeClient{}
}

func (s *stripeClient) FindOrCreateCustomer(ctx context.Context, email string) (string, error) {
	listParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	iter := customer.List(listParams)
	if iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", wrapStripeError("customer.list", err)
	}

	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	cust, err := customer.New(params)
	if err != nil {
		return "", wrapStripeError("customer.create", err)
	}
	return cust.ID, nil
}

func (s *stripeClient) Charge(ctx context.Context, customerID string, amount int64, currency string) (ChargeResult, error) {
	pmParams := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String("card"),
	}
	pmParams.Context = ctx

	pmIter := paymentmethod.List(pmParams)
	if !pmIter.Next() {
		if err := pmIter.Err(); err != nil {
			return ChargeResult{}, wrapStripeError("paymentmethod.list", err)
		}
		return ChargeResult{}, &CardError{Msg: "no payment method on file"}
	}
	method := pmIter.PaymentMethod()

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amount),
		Currency:      stripe.String(currency),
		Customer:      stripe.String(customerID),
		PaymentMethod: stripe.String(method.ID),
		OffSession:    stripe.Bool(true),
		Confirm:       stripe.Bool(true),
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return ChargeResult{}, wrapStripeError("paymentintent.confirm", err)
	}

	return ChargeResult{
		Succeeded:     intent.Status == stripe.PaymentIntentStatusSucceeded,
		TransactionID: intent.ID,
		Message:       string(intent.Status),
	}, nil
}

func (s *stripeClient) CreateIntent(ctx context.Context, amount int64, email string) (IntentResult, error) {
	customerID, err := s.FindOrCreateCustomer(ctx, email)
	if err != nil {
		return IntentResult{}, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(string(stripe.CurrencyJPY)),
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		// Save the card so the reconciler can charge it off-session later.
		SetupFutureUsage: stripe.String(string(stripe.PaymentIntentSetupFutureUsageOffSession)),
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return IntentResult{}, wrapStripeError("paymentintent.create", err)
	}

	return IntentResult{
		ClientSecret: intent.ClientSecret,
		IntentID:     intent.ID,
		CustomerID:   customerID,
	}, nil
}
