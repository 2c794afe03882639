package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/propsignal/tenant-assistant/pkg/logger"
	"github.com/propsignal/tenant-assistant/pkg/metrics"
)

const defaultBaseURL = "https://api.twilio.com/2010-04-01"

// TwilioConfig holds Twilio REST API settings.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// TwilioClient is a Messenger backed by the Twilio Messages API.
type TwilioClient struct {
	cfg        TwilioConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewTwilioClient creates a Twilio-backed messenger.
func NewTwilioClient(cfg TwilioConfig, log *logger.Logger) (*TwilioClient, error) {
	if cfg.AccountSID == "" {
		return nil, errors.New("twilio account SID is required")
	}
	if cfg.AuthToken == "" {
		return nil, errors.New("twilio auth token is required")
	}
	if cfg.From == "" {
		return nil, errors.New("twilio from number is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	return &TwilioClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log,
	}, nil
}

// apiError is Twilio's error response body.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// HTTPError wraps a non-2xx Twilio response.
type HTTPError struct {
	StatusCode int
	Body       string
	APIError   *apiError
}

func (e *HTTPError) Error() string {
	if e.APIError != nil && e.APIError.Message != "" {
		return fmt.Sprintf("twilio http %d: %s (code=%d)", e.StatusCode, e.APIError.Message, e.APIError.Code)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	return fmt.Sprintf("twilio http %d: %s", e.StatusCode, msg)
}

// Send implements Messenger. Server errors and rate limits are retried a
// bounded number of times with doubling backoff, honoring Retry-After.
func (c *TwilioClient) Send(ctx context.Context, to, text string) error {
	to = strings.TrimSpace(to)
	text = strings.TrimSpace(text)
	if to == "" {
		return errors.New("twilio: destination required")
	}
	if text == "" {
		return errors.New("twilio: message text required")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.cfg.From)
	form.Set("Body", text)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.cfg.BaseURL, c.cfg.AccountSID)

	wait := time.Second
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := c.sendOnce(ctx, endpoint, form)
		if err == nil {
			metrics.TransportSendsTotal.WithLabelValues("sms", "success").Inc()
			return nil
		}
		lastErr = err

		if !retryable(err) || attempt == c.cfg.MaxRetries {
			break
		}

		sleepFor := retryAfter(resp, wait)
		c.logger.Warn("twilio send retrying",
			zap.String("to", to),
			zap.Int("attempt", attempt+1),
			zap.Duration("sleep", sleepFor),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
		wait *= 2
	}

	metrics.TransportSendsTotal.WithLabelValues("sms", "error").Inc()
	return lastErr
}

func (c *TwilioClient) sendOnce(ctx context.Context, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.Message != "" {
			return resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw), APIError: &ae}
		}
		return resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return resp, nil
}

func retryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	// Network-level errors are retryable.
	return true
}

func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	if resp != nil {
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return fallback
}
