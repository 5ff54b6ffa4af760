// Package payments инкапсулирует работу со Stripe: эскроу-платежи через
// PaymentIntent с ручным capture, Connect-аккаунты исполнителей, переводы
// и возвраты.
package payments

import (
	"context"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/ignatzorin/escrow-backend/internal/config"
)

// StripeClient — тонкая обёртка над Stripe API.
type StripeClient struct {
	api      *client.API
	currency string
}

// NewStripeClient создаёт клиент Stripe с ключом из конфигурации.
func NewStripeClient(cfg *config.Config) *StripeClient {
	api := &client.API{}
	api.Init(cfg.StripeSecretKey, nil)
	return &StripeClient{api: api, currency: cfg.PlatformCurrency}
}

// CreateEscrowIntent создаёт PaymentIntent с ручным capture: средства
// авторизуются на карте заказчика, но не списываются до активации контракта.
func (c *StripeClient) CreateEscrowIntent(ctx context.Context, amount float64, contractID string) (intentID, clientSecret string, err error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(toCents(amount)),
		Currency:      stripe.String(c.currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{"contract_id": contractID},
	}
	params.Context = ctx

	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return "", "", fmt.Errorf("stripe: create intent %w", err)
	}

	return intent.ID, intent.ClientSecret, nil
}

// CaptureIntent списывает ранее авторизованные средства.
func (c *StripeClient) CaptureIntent(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	if _, err := c.api.PaymentIntents.Capture(intentID, params); err != nil {
		return fmt.Errorf("stripe: capture intent %w", err)
	}
	return nil
}

// CancelIntent отменяет неактивированный PaymentIntent.
func (c *StripeClient) CancelIntent(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	if _, err := c.api.PaymentIntents.Cancel(intentID, params); err != nil {
		return fmt.Errorf("stripe: cancel intent %w", err)
	}
	return nil
}

// CreateConnectAccount создаёт Express-аккаунт исполнителя.
func (c *StripeClient) CreateConnectAccount(ctx context.Context, email string) (string, error) {
	params := &stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(email),
	}
	params.Context = ctx

	account, err := c.api.Accounts.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create account %w", err)
	}

	return account.ID, nil
}

// CreateOnboardingLink возвращает ссылку онбординга Connect-аккаунта.
func (c *StripeClient) CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := c.api.AccountLinks.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create onboarding link %w", err)
	}

	return link.URL, nil
}

// Transfer переводит средства на Connect-аккаунт исполнителя.
func (c *StripeClient) Transfer(ctx context.Context, amount float64, accountID, contractID string) (string, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(toCents(amount)),
		Currency:    stripe.String(c.currency),
		Destination: stripe.String(accountID),
		Metadata:    map[string]string{"contract_id": contractID},
	}
	params.Context = ctx

	transfer, err := c.api.Transfers.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: transfer %w", err)
	}

	return transfer.ID, nil
}

// Refund возвращает часть списанных средств заказчику.
func (c *StripeClient) Refund(ctx context.Context, intentID string, amount float64) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Amount:        stripe.Int64(toCents(amount)),
	}
	params.Context = ctx

	refund, err := c.api.Refunds.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: refund %w", err)
	}

	return refund.ID, nil
}

// toCents переводит сумму в минимальные единицы валюты.
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
