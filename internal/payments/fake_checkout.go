package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

// FakeGateway returns an internal URL instead of calling a provider. It must
// be gated by ALLOW_FAKE_PAYMENTS and never enabled in production.
type FakeGateway struct {
	publicBaseURL string
	logger        *logging.Logger
}

func NewFakeGateway(publicBaseURL string, logger *logging.Logger) *FakeGateway {
	if logger == nil {
		logger = logging.Default()
	}
	return &FakeGateway{
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
		logger:        logger,
	}
}

func (g *FakeGateway) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !isValidBaseURL(g.publicBaseURL) {
		return nil, fmt.Errorf("payments: fake gateway base url must be an absolute http(s) URL")
	}
	id := "fake-" + uuid.NewString()
	g.logger.Debug("fake payment preference created", "preference_id", id, "unit_price", req.UnitPrice)
	return &Preference{
		ID:        id,
		InitPoint: fmt.Sprintf("%s/pagos/fake/%s", g.publicBaseURL, id),
	}, nil
}

func isValidBaseURL(value string) bool {
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}
