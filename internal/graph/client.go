// Package graph is a thin pass-through client for the Meta Graph API.
// Credentials are supplied by the caller per request; nothing is retried
// or cached here.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/solvedigitale/Digitext-last/internal/metrics"
)

// Client calls the Graph API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a Graph API client. An empty baseURL defaults to the
// v18.0 Graph API endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://graph.facebook.com/v18.0"
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// UpstreamError is a non-2xx response from the Graph API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("graph api returned %d: %s", e.StatusCode, e.Body)
}

// GetInstagramAccounts lists Instagram accounts connected to a Facebook page.
func (c *Client) GetInstagramAccounts(ctx context.Context, accessToken, pageID string) (json.RawMessage, error) {
	q := url.Values{"access_token": {accessToken}}
	return c.get(ctx, "instagram_accounts", "/"+pageID+"/instagram_accounts", q, "")
}

// GetPages lists the Facebook pages the token's user manages.
func (c *Client) GetPages(ctx context.Context, accessToken string) (json.RawMessage, error) {
	q := url.Values{"access_token": {accessToken}}
	return c.get(ctx, "pages", "/me/accounts", q, "")
}

// GetWhatsAppBusinessProfile fetches the business profile of a WhatsApp
// phone number.
func (c *Client) GetWhatsAppBusinessProfile(ctx context.Context, accessToken, phoneNumberID string) (json.RawMessage, error) {
	return c.get(ctx, "whatsapp_business_profile", "/"+phoneNumberID+"/whatsapp_business_profile", nil, accessToken)
}

// SendInstagramMessage sends a text message from an Instagram business user.
func (c *Client) SendInstagramMessage(ctx context.Context, accessToken, igUserID, recipientID, text string) (json.RawMessage, error) {
	body := map[string]interface{}{
		"recipient": map[string]string{"id": recipientID},
		"message":   map[string]string{"text": text},
	}
	q := url.Values{"access_token": {accessToken}}
	return c.post(ctx, "send_instagram_message", "/"+igUserID+"/messages", q, body, "")
}

// SendMessengerMessage sends a text message from a Facebook page.
func (c *Client) SendMessengerMessage(ctx context.Context, accessToken, pageID, recipientID, text string) (json.RawMessage, error) {
	body := map[string]interface{}{
		"recipient": map[string]string{"id": recipientID},
		"message":   map[string]string{"text": text},
	}
	q := url.Values{"access_token": {accessToken}}
	return c.post(ctx, "send_messenger_message", "/"+pageID+"/messages", q, body, "")
}

// SendWhatsAppMessage sends a text message through the WhatsApp Cloud API.
// Non-digit characters are stripped from the destination number.
func (c *Client) SendWhatsAppMessage(ctx context.Context, accessToken, phoneNumberID, to, text string) (json.RawMessage, error) {
	body := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                digitsOnly(to),
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	return c.post(ctx, "send_whatsapp_message", "/"+phoneNumberID+"/messages", nil, body, accessToken)
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, bearer string) (json.RawMessage, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return c.do(op, req)
}

func (c *Client) post(ctx context.Context, op, path string, query url.Values, body interface{}, bearer string) (json.RawMessage, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return c.do(op, req)
}

func (c *Client) do(op string, req *http.Request) (json.RawMessage, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		metrics.GraphAPICalls.WithLabelValues(op, "error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	metrics.GraphAPICalls.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}
