// Package sms implements the carrier's SMS send REST action, used by the
// campaign dispatcher for text-message campaigns. Grounded on
// telnyx_voice.py's httpx.AsyncClient(base_url=BASE_URL,
// headers={"Authorization": f"Bearer {api_key}"}) construction, applied
// to the messages resource instead of the calls resource.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/internal/errs"
	"github.com/Gahroot/the-tribunal-sub000/pkg/logger"
	"go.uber.org/zap"
)

const baseURL = "https://api.telnyx.com/v2"

// Client sends outbound SMS messages through the carrier's REST API.
type Client struct {
	apiKey      string
	messagingID string // the carrier's Messaging Profile id
	baseURL     string
	httpClient  *http.Client
}

// NewClient creates an sms.Client authenticated with apiKey, bound to
// the given Messaging Profile id.
func NewClient(apiKey, messagingProfileID string) *Client {
	return NewClientWithBaseURL(baseURL, apiKey, messagingProfileID)
}

// NewClientWithBaseURL is NewClient with an overridable base URL, for
// pointing the client at a test server.
func NewClientWithBaseURL(base, apiKey, messagingProfileID string) *Client {
	return &Client{
		apiKey:      apiKey,
		messagingID: messagingProfileID,
		baseURL:     base,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// SendRequest is the input to send a single SMS message.
type SendRequest struct {
	To   string
	From string
	Body string
}

// SendResult carries the carrier-assigned message id.
type SendResult struct {
	MessageID string
}

// Send submits a single SMS message for delivery.
func (c *Client) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	payload := map[string]interface{}{
		"to":   req.To,
		"from": req.From,
		"text": req.Body,
	}
	if c.messagingID != "" {
		payload["messaging_profile_id"] = c.messagingID
	}

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.post(ctx, "sms.send", c.baseURL+"/messages", payload, &resp); err != nil {
		return nil, err
	}
	return &SendResult{MessageID: resp.Data.ID}, nil
}

func (c *Client) post(ctx context.Context, op, url string, payload interface{}, out interface{}) error {
	return errs.Retry(ctx, errs.DefaultRetryConfig, func(ctx context.Context) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return errs.New(errs.KindInvalidInput, op, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return errs.New(errs.KindInvalidInput, op, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return errs.New(errs.KindTransientNetwork, op, err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return errs.New(errs.KindAuthentication, op, fmt.Errorf("invalid api key"))
		case resp.StatusCode == http.StatusTooManyRequests:
			return errs.New(errs.KindRateLimited, op, fmt.Errorf("sms rate limited"))
		case resp.StatusCode >= 500:
			return errs.New(errs.KindTransientNetwork, op, fmt.Errorf("sms provider server error %d: %s", resp.StatusCode, body))
		case resp.StatusCode >= 400:
			logger.Base().Warn("sms send rejected", zap.String("op", op), zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
			return errs.New(errs.KindInvalidInput, op, fmt.Errorf("sms provider error %d: %s", resp.StatusCode, body))
		}

		if out != nil && len(body) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				return errs.New(errs.KindInvalidInput, op, err)
			}
		}
		return nil
	})
}
