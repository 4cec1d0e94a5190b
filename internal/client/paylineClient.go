package client

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/leeveo/inscription-sub004/internal/apperr"
	"github.com/leeveo/inscription-sub004/internal/config"
)

// Gateway event types, normalized from the wire payload.
const (
	GatewayEventSucceeded      = "payment.succeeded"
	GatewayEventFailed         = "payment.failed"
	GatewayEventCanceled       = "payment.canceled"
	GatewayEventRefunded       = "payment.refunded"
	GatewayEventRequiresAction = "payment.requires_action"
)

type PaylineClient interface {
	CreateIntent(ctx context.Context, orderID string, amount int64, currency string) (*CreateIntentResponse, error)
	VerifyWebhookSignature(payload []byte, signatureHeader string) error
}

type paylineClientImpl struct {
	httpClient    *http.Client
	baseApiURL    string
	apiKey        string
	webhookSecret string
}

type CreateIntentResponse struct {
	IntentID string
	PayURL   string
}

// GatewayEvent is the normalized asynchronous notification; the order id is
// the idempotency correlation key.
type GatewayEvent struct {
	EventID string `json:"id"`
	Type    string `json:"type"`
	Data    struct {
		IntentID string `json:"intent_id"`
		OrderID  string `json:"order_id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"data"`
}

func NewPaylineClient(paylineCfg *config.Payline) PaylineClient {
	return &paylineClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:    paylineCfg.BaseApiURL,
		apiKey:        paylineCfg.APIKey,
		webhookSecret: paylineCfg.WebhookSecret,
	}
}

func (c *paylineClientImpl) CreateIntent(ctx context.Context, orderID string, amount int64, currency string) (*CreateIntentResponse, error) {
	payload := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"metadata": map[string]string{
			"order_id": orderID,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		c.baseApiURL+"/v1/payment_intents",
		bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &apperr.GatewayError{Status: resp.StatusCode, Body: string(b)}
	}

	var result struct {
		ID     string `json:"id"`
		PayURL string `json:"pay_url"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}

	return &CreateIntentResponse{
		IntentID: result.ID,
		PayURL:   result.PayURL,
	}, nil
}

// VerifyWebhookSignature checks the "t=<unix>,v1=<hex hmac>" header. The
// signed message is "<t>.<payload>"; timestamps older than 5 minutes are
// rejected to limit replay of captured payloads.
func (c *paylineClientImpl) VerifyWebhookSignature(payload []byte, signatureHeader string) error {
	var ts, sig string
	for _, part := range strings.Split(signatureHeader, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return fmt.Errorf("malformed signature header")
	}

	tsSec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed signature timestamp: %w", err)
	}
	age := time.Since(time.Unix(tsSec, 0))
	if age > 5*time.Minute || age < -5*time.Minute {
		return fmt.Errorf("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return fmt.Errorf("signature mismatch")
	}

	return nil
}
