package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Spok95/barber-club/internal/infra/metrics"
)

var (
	ErrNotConfigured     = errors.New("payments: asaas api key is not configured")
	ErrProcessorNotFound = errors.New("payments: subscription not found at asaas")
)

// APIError — ответ Asaas с кодом вне 2xx (кроме 404).
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if msg := asaasDescription(e.Body); msg != "" {
		return fmt.Sprintf("asaas: status %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("asaas: status %d", e.StatusCode)
}

// asaasDescription достаёт errors[].description из тела ошибки Asaas.
func asaasDescription(body string) string {
	var payload struct {
		Errors []struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"errors"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return ""
	}
	msgs := make([]string, 0, len(payload.Errors))
	for _, e := range payload.Errors {
		if e.Description != "" {
			msgs = append(msgs, e.Description)
		}
	}
	return strings.Join(msgs, "; ")
}

// Client — минимальный клиент Asaas API v3.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, rps float64, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		lim = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    lim,
		log:        log,
	}
}

// Configured возвращает ErrNotConfigured, если ходить в Asaas нечем.
func (c *Client) Configured() error {
	if c == nil || c.apiKey == "" || c.baseURL == "" {
		return ErrNotConfigured
	}
	return nil
}

// DeleteSubscription — DELETE /v3/subscriptions/{id}.
// 404 возвращается как ErrProcessorNotFound.
func (c *Client) DeleteSubscription(ctx context.Context, id string) error {
	if err := c.Configured(); err != nil {
		return err
	}
	if id == "" {
		return errors.New("payments: empty asaas subscription id")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("asaas rate limit: %w", err)
	}

	endpoint := c.baseURL + "/v3/subscriptions/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("delete subscription request: %w", err)
	}
	req.Header.Set("access_token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.AsaasRequestDuration.WithLabelValues("delete_subscription").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AsaasRequestsTotal.WithLabelValues("delete_subscription", "error").Inc()
		return fmt.Errorf("delete subscription %s: %w", id, err)
	}
	defer resp.Body.Close()
	metrics.AsaasRequestsTotal.WithLabelValues("delete_subscription", strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		_, _ = io.Copy(io.Discard, resp.Body)
		c.log.Info("asaas subscription deleted", "asaas_subscription_id", id)
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrProcessorNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}

// CancelSubscription реализует subscriptions.Processor: 404 — «уже отменена».
func (c *Client) CancelSubscription(ctx context.Context, id string) (bool, error) {
	err := c.DeleteSubscription(ctx, id)
	if errors.Is(err, ErrProcessorNotFound) {
		return true, nil
	}
	return false, err
}
