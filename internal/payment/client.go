package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrSessionNotFound is returned when the remote checkout session does
// not exist (expired sessions included).
var ErrSessionNotFound = errors.New("checkout session not found")

// Client wraps the hosted-checkout payment API. Settlement is
// asynchronous: a created session is completed by the customer
// out-of-band and its status is polled via GetSessionStatus.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	log     *zap.SugaredLogger
}

func NewClient(baseURL, apiKey string, log *zap.SugaredLogger) *Client {
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
		log:     log,
	}
}

type CheckoutSession struct {
	ID              string `json:"id"`
	CheckoutURL     string `json:"url"`
	PaymentIntentID string `json:"payment_intent"`
}

type SessionStatus struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	PaymentStatus   string `json:"payment_status"`
	PaymentIntentID string `json:"payment_intent"`
}

// Paid reports whether the session's payment has settled.
func (s *SessionStatus) Paid() bool {
	return s.PaymentStatus == "paid"
}

type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type createSessionRequest struct {
	AmountCents int64             `json:"amount_cents"`
	Currency    string            `json:"currency"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CreateCheckoutSession creates one remote session per quote. Not
// idempotent; the caller issues exactly one call per CreateSession.
func (c *Client) CreateCheckoutSession(ctx context.Context, userID int64, sizeBytes, priceCents int64, successURL, cancelURL string) (*CheckoutSession, error) {
	body := createSessionRequest{
		AmountCents: priceCents,
		Currency:    "usd",
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
		Metadata: map[string]string{
			"user_id":    fmt.Sprintf("%d", userID),
			"size_bytes": fmt.Sprintf("%d", sizeBytes),
		},
	}
	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSessionStatus fetches live settlement state. A missing session
// surfaces as ErrSessionNotFound, never a crash: previously valid ids
// expire on the gateway side.
func (c *Client) GetSessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	var status SessionStatus
	if err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+sessionID, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Refund issues a refund for the session's payment intent. Returns nil
// when a refund cannot be produced (no intent on the session, remote
// failure); the caller must treat nil as "needs manual follow-up".
func (c *Client) Refund(ctx context.Context, sessionID string) *Refund {
	status, err := c.GetSessionStatus(ctx, sessionID)
	if err != nil {
		c.log.Errorw("refund: session lookup failed", "session_id", sessionID, "err", err)
		return nil
	}
	if status.PaymentIntentID == "" {
		c.log.Errorw("refund: session has no payment intent", "session_id", sessionID)
		return nil
	}

	var refund Refund
	body := map[string]string{"payment_intent": status.PaymentIntentID}
	if err := c.do(ctx, http.MethodPost, "/v1/refunds", body, &refund); err != nil {
		c.log.Errorw("refund: remote call failed", "session_id", sessionID, "err", err)
		return nil
	}
	return &refund
}

// AttachMetadata annotates the session. Best effort: callers swallow
// the error.
func (c *Client) AttachMetadata(ctx context.Context, sessionID string, md map[string]string) error {
	body := map[string]any{"metadata": md}
	return c.do(ctx, http.MethodPost, "/v1/checkout/sessions/"+sessionID+"/metadata", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("checkout api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrSessionNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("checkout api returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
