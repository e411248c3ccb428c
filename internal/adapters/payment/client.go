package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"konzertticketing/internal/domain"
)

// signatureTolerance bounds how old a signed webhook timestamp may be before
// it is rejected as a possible replay.
const signatureTolerance = 5 * time.Minute

// Config holds credentials and endpoint for the payment provider.
type Config struct {
	SecretKey     string
	WebhookSecret string
	// APIBaseURL is the provider API root, e.g. "https://api.stripe.com".
	APIBaseURL string
}

type stripeClient struct {
	client *http.Client
	cfg    Config
	now    func() time.Time
}

// NewStripeClient returns a PaymentProvider backed by the Stripe REST API.
func NewStripeClient(client *http.Client, cfg Config) domain.PaymentProvider {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &stripeClient{client: client, cfg: cfg, now: time.Now}
}

func (c *stripeClient) CreateCheckoutSession(ctx context.Context, params domain.CheckoutSessionParams) (*domain.CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("line_items[0][price_data][currency]", params.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.UnitAmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", params.ProductName)
	if params.Description != "" {
		form.Set("line_items[0][price_data][product_data][description]", params.Description)
	}
	form.Set("line_items[0][quantity]", strconv.Itoa(params.Quantity))
	for k, v := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)

	return c.doSession(req)
}

func (c *stripeClient) GetCheckoutSession(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIBaseURL+"/v1/checkout/sessions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)

	return c.doSession(req)
}

func (c *stripeClient) doSession(req *http.Request) (*domain.CheckoutSession, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call payment provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("payment provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var session domain.CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode provider response: %w", err)
	}
	return &session, nil
}

// VerifyWebhookSignature checks the Stripe-Signature header: a comma-separated
// list of "t=<unix>" and "v1=<hex hmac>" pairs, where the HMAC-SHA256 of
// "<t>.<payload>" keyed with the webhook secret must match one of the v1
// values and the timestamp must be within tolerance.
func (c *stripeClient) VerifyWebhookSignature(payload []byte, signatureHeader string) error {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(signatureHeader, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return domain.ErrInvalidSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return domain.ErrInvalidSignature
	}
	age := c.now().Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(c.cfg.WebhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}
	return domain.ErrInvalidSignature
}

func (c *stripeClient) ParseWebhookEvent(payload []byte) (*domain.WebhookEvent, error) {
	var envelope struct {
		Type string `json:"type"`
		Data struct {
			Object domain.CheckoutSession `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}
	return &domain.WebhookEvent{
		Type:    envelope.Type,
		Session: envelope.Data.Object,
	}, nil
}
