package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

const brevoAPIURL = "https://api.brevo.com/v3/smtp/email"

// Mailer delivers a rendered html email.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
	IsConfigured() bool
}

// BrevoClient talks to the Brevo transactional email API. Transport errors
// and 5xx replies are retried with exponential backoff, and the whole
// delivery runs through a circuit breaker.
type BrevoClient struct {
	apiKey     string
	fromEmail  string
	fromName   string
	endpoint   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	maxElapsed time.Duration
	configured bool
}

func NewBrevoClient(apiKey, fromEmail, fromName string, breaker *gobreaker.CircuitBreaker) *BrevoClient {
	return &BrevoClient{
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		fromName:   fromName,
		endpoint:   brevoAPIURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    breaker,
		maxElapsed: 30 * time.Second,
		configured: apiKey != "" && fromEmail != "",
	}
}

func (c *BrevoClient) IsConfigured() bool {
	return c.configured
}

type sendEmailReq struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HtmlContent string              `json:"htmlContent"`
}

func (c *BrevoClient) Send(ctx context.Context, to, subject, html string) error {
	if !c.configured {
		return ErrNotConfigured
	}
	if to == "" || subject == "" || html == "" {
		return errors.New("to, subject and html content cannot be empty")
	}
	body, err := json.Marshal(sendEmailReq{
		Sender:      map[string]string{"email": c.fromEmail, "name": c.fromName},
		To:          []map[string]string{{"email": to}},
		Subject:     subject,
		HtmlContent: html,
	})
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		b := backoff.NewExponentialBackOff()
		b.MaxElapsedTime = c.maxElapsed
		return nil, backoff.Retry(func() error { return c.post(ctx, body) }, backoff.WithContext(b, ctx))
	})
	return err
}

func (c *BrevoClient) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("brevo request failed: %w", err)
	}
	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("brevo API error: status %d: %s", resp.StatusCode, msg)
	default:
		return backoff.Permanent(fmt.Errorf("brevo API error: status %d: %s", resp.StatusCode, msg))
	}
}
