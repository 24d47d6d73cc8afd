// Package carrier implements the telephony carrier's call-control REST
// surface: answer, hangup, start/stop the bidirectional media stream, and
// send DTMF, grounded on the Telnyx Call Control v2 API shape. Hangup is
// additionally routed through twilio-go's generated Calls resource, since
// ending a call (Status: completed) is a real twilio-go enum value; the
// Telnyx-specific actions (answer, stream start/stop, DTMF, outbound
// dial) have no twilio-go binding and go over a hand-rolled REST client.
package carrier

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
	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

const baseURL = "https://api.telnyx.com/v2"

// Client talks to the carrier's call-control actions endpoint.
type Client struct {
	apiKey       string
	connectionID string // the Call Control Application id, cached process-wide
	httpClient   *http.Client
	twilio       *twilio.RestClient
}

// NewClient creates a carrier client authenticated with apiKey, bound to
// the given Call Control Application (connection) id. twilioAccountSID
// and twilioAuthToken authenticate the Calls-resource client used for
// HangupCall; pass empty strings to fall back to the Telnyx hand-rolled
// hangup action.
func NewClient(apiKey, connectionID, twilioAccountSID, twilioAuthToken string) *Client {
	c := &Client{
		apiKey:       apiKey,
		connectionID: connectionID,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
	if twilioAccountSID != "" && twilioAuthToken != "" {
		c.twilio = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: twilioAccountSID,
			Password: twilioAuthToken,
		})
	}
	return c
}

// OutboundDialRequest is the input to place an outbound call.
type OutboundDialRequest struct {
	To                     string
	From                   string
	WebhookURL             string
	AnsweringMachineDetect bool
}

// OutboundDialResult carries the carrier-assigned call control id.
type OutboundDialResult struct {
	CallControlID string
}

// OutboundDial places an outbound call and returns the carrier's call
// control id for subsequent actions.
func (c *Client) OutboundDial(ctx context.Context, req OutboundDialRequest) (*OutboundDialResult, error) {
	payload := map[string]interface{}{
		"to":                 req.To,
		"from":               req.From,
		"connection_id":      c.connectionID,
		"webhook_url":        req.WebhookURL,
		"webhook_url_method": "POST",
		"audio_codec":        "ulaw",
	}
	if req.AnsweringMachineDetect {
		payload["answering_machine_detection"] = "detect"
		payload["answering_machine_detection_config"] = map[string]interface{}{
			"wait_for_beep_timeout_millis": 3000,
			"total_analysis_time_millis":   5000,
		}
	}

	var resp struct {
		Data struct {
			CallControlID string `json:"call_control_id"`
		} `json:"data"`
	}
	if err := c.post(ctx, "carrier.outbound_dial", baseURL+"/calls", payload, &resp); err != nil {
		return nil, err
	}
	return &OutboundDialResult{CallControlID: resp.Data.CallControlID}, nil
}

// AnswerCall answers an inbound call.
func (c *Client) AnswerCall(ctx context.Context, callControlID string) error {
	return c.post(ctx, "carrier.answer_call", c.actionURL(callControlID, "answer"), nil, nil)
}

// HangupCall terminates a call. When a twilio-go client is configured it
// ends the call via the Calls resource's Update action (Status:
// completed); otherwise it falls back to the Telnyx hangup action.
func (c *Client) HangupCall(ctx context.Context, callControlID string) error {
	if c.twilio == nil {
		return c.post(ctx, "carrier.hangup_call", c.actionURL(callControlID, "hangup"), nil, nil)
	}

	params := &twilioapi.UpdateCallParams{}
	params.SetStatus("completed")
	if _, err := c.twilio.Api.UpdateCall(callControlID, params); err != nil {
		logger.Base().Warn("twilio-go hangup failed, falling back to carrier REST action",
			zap.String("call_control_id", callControlID), zap.Error(err))
		return c.post(ctx, "carrier.hangup_call", c.actionURL(callControlID, "hangup"), nil, nil)
	}
	return nil
}

// StartStreaming begins the bidirectional μ-law media stream to streamURL
// (the bridge's own WebSocket endpoint).
func (c *Client) StartStreaming(ctx context.Context, callControlID, streamURL string) error {
	payload := map[string]interface{}{
		"stream_url":                streamURL,
		"stream_track":              "both_tracks",
		"stream_bidirectional_mode": "rtp",
		"stream_bidirectional_codec": "PCMU",
	}
	return c.post(ctx, "carrier.start_streaming", c.actionURL(callControlID, "streaming_start"), payload, nil)
}

// StopStreaming ends the media stream for a call.
func (c *Client) StopStreaming(ctx context.Context, callControlID string) error {
	return c.post(ctx, "carrier.stop_streaming", c.actionURL(callControlID, "streaming_stop"), nil, nil)
}

// SendDTMF transmits digits over the active call. durationMillis is
// clamped to [100, 500].
func (c *Client) SendDTMF(ctx context.Context, callControlID, digits string, durationMillis int) error {
	if durationMillis < 100 {
		durationMillis = 100
	}
	if durationMillis > 500 {
		durationMillis = 500
	}
	payload := map[string]interface{}{
		"digits":          digits,
		"duration_millis": durationMillis,
	}
	return c.post(ctx, "carrier.send_dtmf", c.actionURL(callControlID, "send_dtmf"), payload, nil)
}

func (c *Client) actionURL(callControlID, action string) string {
	return fmt.Sprintf("%s/calls/%s/actions/%s", baseURL, callControlID, action)
}

func (c *Client) post(ctx context.Context, op, url string, payload interface{}, out interface{}) error {
	return errs.Retry(ctx, errs.DefaultRetryConfig, func(ctx context.Context) error {
		var reqBody io.Reader
		if payload != nil {
			data, err := json.Marshal(payload)
			if err != nil {
				return errs.New(errs.KindInvalidInput, op, err)
			}
			reqBody = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reqBody)
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
		case resp.StatusCode == http.StatusNotFound:
			return errs.New(errs.KindNotFound, op, fmt.Errorf("call not found"))
		case resp.StatusCode >= 500:
			return errs.New(errs.KindTransientNetwork, op, fmt.Errorf("carrier server error %d: %s", resp.StatusCode, body))
		case resp.StatusCode >= 400:
			logger.Base().Warn("carrier action rejected", zap.String("op", op), zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
			return errs.New(errs.KindInvalidInput, op, fmt.Errorf("carrier error %d: %s", resp.StatusCode, body))
		}

		if out != nil && len(body) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				return errs.New(errs.KindInvalidInput, op, err)
			}
		}
		return nil
	})
}
