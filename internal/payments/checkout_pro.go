package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

var checkoutTracer = otel.Tracer("agenda.internal.payments.checkout")

const defaultCheckoutBaseURL = "https://api.mercadopago.com"

// CheckoutProGateway creates hosted checkout preferences over the provider's
// REST API. Prices are whole Chilean pesos.
type CheckoutProGateway struct {
	accessToken string
	successURL  string
	failureURL  string
	baseURL     string
	httpClient  *http.Client
	logger      *logging.Logger
}

func NewCheckoutProGateway(accessToken, successURL, failureURL string, logger *logging.Logger) *CheckoutProGateway {
	if logger == nil {
		logger = logging.Default()
	}
	return &CheckoutProGateway{
		accessToken: accessToken,
		successURL:  successURL,
		failureURL:  failureURL,
		baseURL:     defaultCheckoutBaseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
}

// WithBaseURL overrides the API host.
func (g *CheckoutProGateway) WithBaseURL(baseURL string) *CheckoutProGateway {
	if baseURL == "" {
		return g
	}
	g.baseURL = strings.TrimRight(baseURL, "/")
	return g
}

// WithHTTPClient replaces the default client.
func (g *CheckoutProGateway) WithHTTPClient(client *http.Client) *CheckoutProGateway {
	if client != nil {
		g.httpClient = client
	}
	return g
}

type preferenceItem struct {
	Title      string `json:"title"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
	CurrencyID string `json:"currency_id"`
}

type preferencePayload struct {
	Items             []preferenceItem  `json:"items"`
	BackURLs          map[string]string `json:"back_urls,omitempty"`
	AutoReturn        string            `json:"auto_return,omitempty"`
	ExternalReference string            `json:"external_reference,omitempty"`
}

func (g *CheckoutProGateway) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if g.accessToken == "" {
		return nil, fmt.Errorf("payments: no checkout access token configured")
	}

	ctx, span := checkoutTracer.Start(ctx, "checkout.create_preference")
	defer span.End()
	span.SetAttributes(attribute.Int64("payment.unit_price", req.UnitPrice))

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	payload := preferencePayload{
		Items: []preferenceItem{{
			Title:      req.Description,
			Quantity:   quantity,
			UnitPrice:  req.UnitPrice,
			CurrencyID: "CLP",
		}},
		ExternalReference: req.ExternalReference,
	}
	if g.successURL != "" || g.failureURL != "" {
		payload.BackURLs = map[string]string{"success": g.successURL, "failure": g.failureURL}
		if g.successURL != "" {
			payload.AutoReturn = "approved"
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("payments: preference payload: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/checkout/preferences", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payments: preference request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.accessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Idempotency-Key", idempotencyKey(req))

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "http")
		return nil, apperr.Transient("payments: preference http", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		span.SetStatus(codes.Error, resp.Status)
		statusErr := fmt.Errorf("payments: checkout api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return nil, apperr.Transient("payments: create preference", statusErr)
		}
		return nil, statusErr
	}

	var parsed struct {
		ID               string `json:"id"`
		InitPoint        string `json:"init_point"`
		SandboxInitPoint string `json:"sandbox_init_point"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("payments: preference decode: %w", err)
	}
	initPoint := parsed.InitPoint
	if initPoint == "" {
		initPoint = parsed.SandboxInitPoint
	}
	if parsed.ID == "" || initPoint == "" {
		return nil, fmt.Errorf("payments: checkout response missing id or init point")
	}
	g.logger.Info("payment preference created", "preference_id", parsed.ID, "unit_price", req.UnitPrice)
	return &Preference{ID: parsed.ID, InitPoint: initPoint}, nil
}

// idempotencyKey is stable for an external reference so a retried request
// does not create a second preference.
func idempotencyKey(req PreferenceRequest) string {
	if req.ExternalReference != "" {
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte("agenda:preference:"+req.ExternalReference)).String()
	}
	return uuid.NewString()
}
