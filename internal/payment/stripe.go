package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
)

type LineItem struct {
	ProductID string
	Name      string
	ImageURL  string
	UnitPrice decimal.Decimal
	Quantity  int
}

type SessionRequest struct {
	CustomerEmail string
	Items         []LineItem
	ShippingRate  decimal.Decimal
	Metadata      map[string]string
}

type Session struct {
	ID  string
	URL string
}

// Provider creates hosted checkout sessions with an external payment
// processor. The session is opaque to this system beyond its identifier and
// redirect URL.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
}

type StripeProvider struct {
	successURL       string
	cancelURL        string
	allowedCountries []string
}

func NewStripeProvider(apiKey, successURL, cancelURL string, allowedCountries []string) *StripeProvider {
	stripe.Key = apiKey
	return &StripeProvider{
		successURL:       successURL,
		cancelURL:        cancelURL,
		allowedCountries: allowedCountries,
	}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(p.successURL),
		CancelURL:          stripe.String(p.cancelURL),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(p.allowedCountries),
		},
		ShippingOptions: []*stripe.CheckoutSessionShippingOptionParams{{
			ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
				Type:        stripe.String("fixed_amount"),
				DisplayName: stripe.String("Standard shipping"),
				FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
					Amount:   stripe.Int64(toCents(req.ShippingRate)),
					Currency: stripe.String(string(stripe.CurrencyUSD)),
				},
			},
		}},
	}
	params.Context = ctx

	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	for _, it := range req.Items {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(it.Name),
		}
		if it.ImageURL != "" {
			productData.Images = stripe.StringSlice([]string{it.ImageURL})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(it.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount:  stripe.Int64(toCents(it.UnitPrice)),
				ProductData: productData,
			},
		})
	}

	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := session.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return nil, fmt.Errorf("create checkout session: %s", stripeErr.Msg)
		}
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

func toCents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
