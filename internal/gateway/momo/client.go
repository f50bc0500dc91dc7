package momo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

type ClientConfig struct {
	BaseURL   string
	PartnerID string
	ClientID  string
	ClientKey string
	HMACKey   string
}

// Client is the authenticated HTTP client for the gateway REST API. Every
// request body is HMAC-signed; the access token is renewed in the
// background and re-fetched immediately on a 401.
type Client struct {
	baseURL   string
	partnerID string
	clientID  string
	clientKey string
	hmacKey   string

	accessToken string
	mu          sync.Mutex

	// toggleTokenRefresher wakes the refresher when a request hits a 401.
	toggleTokenRefresher chan struct{}

	hc *http.Client
}

func newClient(c *ClientConfig) *Client {
	return &Client{
		baseURL:   c.BaseURL,
		partnerID: c.PartnerID,
		clientID:  c.ClientID,
		clientKey: c.ClientKey,
		hmacKey:   c.HMACKey,

		// buffered so a request path never blocks on the refresher
		toggleTokenRefresher: make(chan struct{}, 1),

		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// notifyAccessTokenExpired renews the access token periodically and on
// demand, reconnecting with exponential backoff.
func (c *Client) notifyAccessTokenExpired(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return

		case <-ticker.C:

		case <-c.toggleTokenRefresher:
			slog.Info("momo: access token rejected, refreshing")
		}

		backOff := time.Second

	Retry:
		for {
			token, err := c.connect(ctx)
			switch err {
			case nil:
				c.setAccessToken(token)
				break Retry

			default:
				slog.Error("momo: token refresh failed", "error", err)
				select {
				case <-ctx.Done():
					return

				case <-time.After(backOff):
					backOff *= 2
				}
			}
		}
	}
}

func (c *Client) setAccessToken(accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
}

func (c *Client) getAccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// connect authenticates against the gateway and returns a bearer token.
func (c *Client) connect(ctx context.Context) (string, error) {
	requestID, err := randomReference()
	if err != nil {
		return "", fmt.Errorf("momo connect: %w", err)
	}

	body := fmt.Sprintf(`{"requestId":%q,"partnerId":%q,"clientId":%q,"clientSecret":%q}`,
		requestID, c.partnerID, c.clientID, c.clientKey)

	var reply struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AccessToken string `json:"accessToken"`
			TokenType   string `json:"tokenType"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/api/v1/auth/token", body, false, &reply); err != nil {
		return "", fmt.Errorf("momo connect: %w", err)
	}
	if reply.Status != "OK" {
		return "", fmt.Errorf("momo connect: status %s: %s", reply.Status, reply.Message)
	}

	return fmt.Sprintf("%s %s", reply.Data.TokenType, reply.Data.AccessToken), nil
}

// createCharge submits a wallet charge request.
func (c *Client) createCharge(ctx context.Context, req *ChargeRequest) (string, error) {
	requestID, err := randomReference()
	if err != nil {
		return "", fmt.Errorf("momo createCharge: %w", err)
	}

	body := fmt.Sprintf(`{"requestId":%q,"partnerId":%q,"refNo":%q,"mobileNo":%q,"txnAmount":%s,"sourceCurrency":%q}`,
		requestID, c.partnerID, req.Reference, req.Phone, req.Amount, req.Currency)

	var reply struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			ChargeID string `json:"chargeId"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/api/v1/charges", body, true, &reply); err != nil {
		return "", fmt.Errorf("momo createCharge: %w", err)
	}
	if reply.Status != "OK" {
		return "", fmt.Errorf("momo createCharge: status %s: %s", reply.Status, reply.Message)
	}

	return reply.Data.ChargeID, nil
}

func (c *Client) post(ctx context.Context, path, body string, authed bool, reply any) error {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("base url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base.String()+path, bytes.NewReader([]byte(body)))
	if err != nil {
		return fmt.Errorf("http.NewRequest: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("SignedHash", Hmac256([]byte(body), []byte(c.hmacKey)))
	if authed {
		req.Header.Set("Authorization", c.getAccessToken())
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// non-blocking: the channel is buffered with size 1
		select {
		case c.toggleTokenRefresher <- struct{}{}:
		default:
		}
		return errors.New("unauthorized")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(reply)
}
