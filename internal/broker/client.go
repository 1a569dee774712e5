// Package broker implements the HTTP client for the session broker, the
// system of record for live sessions.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aws/dcv-access-console-sub000/internal/config"
	"github.com/aws/dcv-access-console-sub000/internal/domain"
)

const (
	describeSessionsPath = "/sessionConnectionData/describeSessions"
	maxAttempts          = 3
	retryBackoff         = 500 * time.Millisecond
	tokenLifetime        = 5 * time.Minute
)

// Client talks to the session broker over HTTP with short-lived HS256
// bearer tokens.
type Client struct {
	baseURL  string
	authID   string
	secret   []byte
	pageSize int
	http     *http.Client
	logger   *slog.Logger

	now func() time.Time
}

// New creates a broker client from the broker configuration.
func New(cfg config.BrokerConfig, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		baseURL:  cfg.URL,
		authID:   cfg.AuthID,
		secret:   []byte(cfg.AuthSecret),
		pageSize: cfg.PageSize,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger.With("component", "broker-client"),
		now:      time.Now,
	}, nil
}

// sessionsResponse is the broker's describe-sessions envelope.
type sessionsResponse struct {
	Sessions []struct {
		ID    string `json:"Id"`
		Owner string `json:"Owner"`
	} `json:"Sessions"`
	NextToken string `json:"NextToken"`
}

// DescribeSessions returns one page of live sessions with a continuation
// token. Transient failures (network errors and 5xx responses) are retried
// a bounded number of times before the page is reported failed.
func (c *Client) DescribeSessions(ctx context.Context, nextToken string) ([]domain.SessionRecord, string, error) {
	q := url.Values{}
	q.Set("maxResults", strconv.Itoa(c.pageSize))
	if nextToken != "" {
		q.Set("nextToken", nextToken)
	}

	body, err := c.get(ctx, describeSessionsPath, q)
	if err != nil {
		return nil, "", fmt.Errorf("describe sessions: %w", err)
	}

	var resp sessionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("describe sessions: parse response: %w", err)
	}

	sessions := make([]domain.SessionRecord, 0, len(resp.Sessions))
	for _, s := range resp.Sessions {
		sessions = append(sessions, domain.SessionRecord{SessionID: s.ID, OwnerID: s.Owner})
	}
	return sessions, resp.NextToken, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt-1)):
			}
		}

		body, retryable, err := c.doGet(ctx, path, q)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.logger.Warn("broker request failed, retrying", "path", path, "attempt", attempt, "error", err)
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) doGet(ctx context.Context, path string, q url.Values) (body []byte, retryable bool, err error) {
	token, err := c.mintToken()
	if err != nil {
		return nil, false, fmt.Errorf("mint broker token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err = io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, true, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, false, nil
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	default:
		return nil, false, fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}
}

// mintToken signs a short-lived HS256 client token for the broker.
func (c *Client) mintToken() (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"sub": c.authID,
		"iat": now.Unix(),
		"exp": now.Add(tokenLifetime).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}
