package gateway

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
)

// CardError means the charge was declined. It is never retried; the
// subscription halts until the user re-enables billing with a working card.
type CardError struct {
	Code string
	Msg  string
}

func (e *CardError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("card declined (%s): %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("card declined: %s", e.Msg)
}

// GatewayError covers network, auth and timeout failures talking to the
// processor. The next scheduled tick retries naturally.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// wrapStripeError classifies a stripe-go error into the taxonomy above.
func wrapStripeError(op string, err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) && sErr.Type == stripe.ErrorTypeCard {
		return &CardError{Code: string(sErr.Code), Msg: sErr.Msg}
	}
	return &GatewayError{Op: op, Err: err}
}
