package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

// Provider names a Gateway implementation.
type Provider string

const (
	ProviderNone        Provider = "none"
	ProviderFake        Provider = "fake"
	ProviderCheckoutPro Provider = "checkoutpro"
)

// ParseProvider maps PAYMENT_PROVIDER values. Empty selects the fake gateway
// when fakes are allowed and disables payments otherwise.
func ParseProvider(mode string, allowFake bool) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "checkoutpro", "checkout-pro", "mercadopago":
		return ProviderCheckoutPro, nil
	case "fake":
		if !allowFake {
			return "", fmt.Errorf("payments: fake provider requires ALLOW_FAKE_PAYMENTS")
		}
		return ProviderFake, nil
	case "none", "disabled":
		return ProviderNone, nil
	case "":
		if allowFake {
			return ProviderFake, nil
		}
		return ProviderNone, nil
	default:
		return "", fmt.Errorf("payments: unknown provider %q", mode)
	}
}

// GatewayConfig carries the settings NewGateway needs.
type GatewayConfig struct {
	Provider      Provider
	AccessToken   string
	BaseURL       string
	SuccessURL    string
	FailureURL    string
	PublicBaseURL string
}

// NewGateway builds the configured gateway. ProviderNone yields a gateway
// that rejects every request.
func NewGateway(cfg GatewayConfig, logger *logging.Logger) Gateway {
	switch cfg.Provider {
	case ProviderCheckoutPro:
		return NewCheckoutProGateway(cfg.AccessToken, cfg.SuccessURL, cfg.FailureURL, logger).WithBaseURL(cfg.BaseURL)
	case ProviderFake:
		return NewFakeGateway(cfg.PublicBaseURL, logger)
	default:
		return disabledGateway{}
	}
}

type disabledGateway struct{}

func (disabledGateway) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	return nil, fmt.Errorf("payments: no payment provider configured")
}
