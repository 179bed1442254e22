// Package payment предоставляет клиент платёжного провайдера (Stripe).
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"

	"github.com/mmeshcher/bistro-boss/internal/model"
)

// MinimumAmount: минимальная сумма платежа провайдера в минимальных единицах валюты.
const MinimumAmount int64 = 50

// ErrInvalidPrice возвращается для отрицательной или нечисловой суммы.
var ErrInvalidPrice = errors.New("invalid price")

// Client инкапсулирует обращения к API платёжного провайдера.
type Client struct {
	api      *client.API
	currency string
}

// Options задаёт параметры клиента платёжного провайдера.
type Options struct {
	SecretKey string
	Currency  string
	// BaseURL переопределяет адрес API провайдера, пусто: адрес по умолчанию.
	BaseURL string
	Logger  *zap.Logger
}

// NewClient создаёт клиент платёжного провайдера.
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.HTTPClient.Timeout = 10 * time.Second
	retryClient.Logger = nil

	cfg := &stripe.BackendConfig{
		HTTPClient:        retryClient.StandardClient(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.Sugar(),
	}
	if opts.BaseURL != "" {
		cfg.URL = stripe.String(opts.BaseURL)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	}

	currency := opts.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	return &Client{
		api:      client.New(opts.SecretKey, backends),
		currency: currency,
	}
}

// AmountFor переводит цену в минимальные единицы валюты, не опускаясь ниже минимума провайдера.
func AmountFor(price float64) (int64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 || price > model.MaxPrice {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}

	amount := model.ToCents(price)
	if amount < MinimumAmount {
		amount = MinimumAmount
	}
	return amount, nil
}

// CreateIntent создаёт платёжное намерение для карты и возвращает его client secret.
func (c *Client) CreateIntent(ctx context.Context, price float64) (string, error) {
	amount, err := AmountFor(price)
	if err != nil {
		return "", err
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(c.currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusBadRequest {
			return "", fmt.Errorf("%w: %s", ErrInvalidPrice, stripeErr.Msg)
		}
		return "", fmt.Errorf("create payment intent: %w", err)
	}

	return intent.ClientSecret, nil
}
