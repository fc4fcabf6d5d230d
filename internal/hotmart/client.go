// Package hotmart implements the Hotmart Club API client used for remote
// entitlement lookups: an OAuth client-credentials token exchange with a
// cached token, and the club users query.
package hotmart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coursegate/coursegate/internal/config"
	entitlementdomain "github.com/coursegate/coursegate/internal/entitlement/domain"
)

// APIError carries the provider's HTTP status and, for rate limiting, the
// suggested retry delay in seconds (0 when the provider sent none).
type APIError struct {
	Message    string
	StatusCode int
	RetryAfter int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hotmart api: %s (status %d)", e.Message, e.StatusCode)
}

type Client struct {
	httpClient *http.Client
	apiURL     string
	authURL    string
	basicAuth  string
	subdomain  string

	mu             sync.Mutex
	accessToken    string
	tokenExpiresAt time.Time
}

func NewClient(cfg config.HotmartConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 12 * time.Second},
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		authURL:    strings.TrimRight(cfg.AuthURL, "/"),
		basicAuth:  cfg.BasicAuth,
		subdomain:  cfg.Subdomain,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type clubUsersResponse struct {
	Items []entitlementdomain.ClubUser `json:"items"`
}

// UsersByEmail queries the club users endpoint for the given email.
func (c *Client) UsersByEmail(ctx context.Context, email string) ([]entitlementdomain.ClubUser, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("subdomain", c.subdomain)
	query.Set("email", email)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiURL+"/club/api/v1/users?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, apiError(resp, "club users query failed")
	}

	var result clubUsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// token returns a cached access token, exchanging client credentials when
// the cache is empty or within the expiry margin.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiresAt) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.authURL+"/security/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.basicAuth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", apiError(resp, "token exchange failed")
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", &APIError{Message: "empty access token", StatusCode: resp.StatusCode}
	}

	expiresIn := token.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}

	c.accessToken = token.AccessToken
	// Refresh a minute early so a token never expires mid-request.
	c.tokenExpiresAt = time.Now().Add(time.Duration(expiresIn-60) * time.Second)

	return c.accessToken, nil
}

func apiError(resp *http.Response, message string) *APIError {
	apiErr := &APIError{
		Message:    message,
		StatusCode: resp.StatusCode,
	}
	if retryAfter := strings.TrimSpace(resp.Header.Get("Retry-After")); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			apiErr.RetryAfter = seconds
		}
	}
	return apiErr
}
