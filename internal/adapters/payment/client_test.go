package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"konzertticketing/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPayload(secret string, ts time.Time, payload []byte) string {
	timestamp := fmt.Sprintf("%d", ts.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeClient_VerifyWebhookSignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"type":"checkout.session.completed"}`)
	now := time.Now()

	newClient := func() *stripeClient {
		c := NewStripeClient(nil, Config{WebhookSecret: secret}).(*stripeClient)
		c.now = func() time.Time { return now }
		return c
	}

	t.Run("valid signature", func(t *testing.T) {
		c := newClient()
		header := signPayload(secret, now, payload)
		assert.NoError(t, c.VerifyWebhookSignature(payload, header))
	})

	t.Run("wrong secret", func(t *testing.T) {
		c := newClient()
		header := signPayload("whsec_other", now, payload)
		assert.ErrorIs(t, c.VerifyWebhookSignature(payload, header), domain.ErrInvalidSignature)
	})

	t.Run("tampered payload", func(t *testing.T) {
		c := newClient()
		header := signPayload(secret, now, payload)
		assert.ErrorIs(t, c.VerifyWebhookSignature([]byte(`{}`), header), domain.ErrInvalidSignature)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		c := newClient()
		header := signPayload(secret, now.Add(-10*time.Minute), payload)
		assert.ErrorIs(t, c.VerifyWebhookSignature(payload, header), domain.ErrInvalidSignature)
	})

	t.Run("malformed header", func(t *testing.T) {
		c := newClient()
		assert.ErrorIs(t, c.VerifyWebhookSignature(payload, "not-a-signature"), domain.ErrInvalidSignature)
		assert.ErrorIs(t, c.VerifyWebhookSignature(payload, ""), domain.ErrInvalidSignature)
	})

	t.Run("any v1 value may match", func(t *testing.T) {
		c := newClient()
		valid := signPayload(secret, now, payload)
		header := valid + ",v1=" + hex.EncodeToString(make([]byte, 32))
		assert.NoError(t, c.VerifyWebhookSignature(payload, header))
	})
}

func TestStripeClient_CreateCheckoutSession(t *testing.T) {
	var gotForm map[string]string
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		gotForm = make(map[string]string)
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_1","url":"https://pay.example/cs_test_1","payment_status":"unpaid","metadata":{"user_id":"7"}}`)
	}))
	defer server.Close()

	client := NewStripeClient(server.Client(), Config{SecretKey: "sk_test", APIBaseURL: server.URL})
	session, err := client.CreateCheckoutSession(context.Background(), domain.CheckoutSessionParams{
		ProductName:     "Josefi Konzert 2026",
		Description:     "2 seat(s): A1, A2",
		Currency:        "eur",
		UnitAmountCents: 2000,
		Quantity:        2,
		SuccessURL:      "https://app.example/success",
		CancelURL:       "https://app.example/cancel",
		Metadata:        map[string]string{"user_id": "7"},
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://pay.example/cs_test_1", session.URL)
	assert.Equal(t, "Bearer sk_test", gotAuth)
	assert.Equal(t, "payment", gotForm["mode"])
	assert.Equal(t, "eur", gotForm["line_items[0][price_data][currency]"])
	assert.Equal(t, "2000", gotForm["line_items[0][price_data][unit_amount]"])
	assert.Equal(t, "2", gotForm["line_items[0][quantity]"])
	assert.Equal(t, "7", gotForm["metadata[user_id]"])
}

func TestStripeClient_GetCheckoutSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/checkout/sessions/cs_test_1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_1","payment_status":"paid","metadata":{"user_id":"7","seats":"[{\"row\":\"A\",\"number\":1}]"}}`)
	}))
	defer server.Close()

	client := NewStripeClient(server.Client(), Config{SecretKey: "sk_test", APIBaseURL: server.URL})
	session, err := client.GetCheckoutSession(context.Background(), "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, session.PaymentStatus)
	assert.Equal(t, "7", session.Metadata["user_id"])
}

func TestStripeClient_GetCheckoutSession_error_status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"No such checkout session"}}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := NewStripeClient(server.Client(), Config{SecretKey: "sk_test", APIBaseURL: server.URL})
	_, err := client.GetCheckoutSession(context.Background(), "cs_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestStripeClient_ParseWebhookEvent(t *testing.T) {
	client := NewStripeClient(nil, Config{})
	payload := []byte(`{
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_1", "payment_status": "paid", "metadata": {"user_id": "7"}}}
	}`)

	event, err := client.ParseWebhookEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutEventCompleted, event.Type)
	assert.Equal(t, "cs_test_1", event.Session.ID)
	assert.Equal(t, domain.PaymentStatusPaid, event.Session.PaymentStatus)

	_, err = client.ParseWebhookEvent([]byte("not json"))
	assert.Error(t, err)
}
