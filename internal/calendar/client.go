// Package calendar implements the calendar provider client used by the
// tool executor's check_availability and book_appointment operations,
// grounded on the Cal.com v2 REST surface.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/internal/errs"
	"github.com/Gahroot/the-tribunal-sub000/pkg/logger"
	"go.uber.org/zap"
)

const baseURL = "https://api.cal.com/v2"

// Client talks to the calendar provider's slots and bookings endpoints.
type Client struct {
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a calendar client authenticated with apiKey.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Slot is one available appointment time, returned with both a canonical
// ISO timestamp and a human-readable display string.
type Slot struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	ISO         string `json:"iso"`
	DisplayTime string `json:"display_time"`
}

// GetAvailability fetches slots for an event type between startDate and
// endDate (inclusive), extending endDate by a day when they are equal —
// the calendar provider returns an empty set otherwise.
func (c *Client) GetAvailability(ctx context.Context, eventTypeID string, startDate, endDate time.Time, timezone string) ([]Slot, error) {
	startStr := startDate.Format("2006-01-02")
	endStr := endDate.Format("2006-01-02")
	if startStr == endStr {
		endStr = endDate.AddDate(0, 0, 1).Format("2006-01-02")
	}

	u := fmt.Sprintf("%s/slots/available?eventTypeId=%s&startTime=%s&endTime=%s",
		baseURL, eventTypeID, startStr, endStr)

	var raw struct {
		Data struct {
			Slots map[string][]struct {
				Time string `json:"time"`
			} `json:"slots"`
		} `json:"data"`
	}

	if err := c.requestWithRetry(ctx, "calendar.get_availability", http.MethodGet, u, nil, &raw); err != nil {
		return nil, err
	}

	slots := make([]Slot, 0)
	for date, times := range raw.Data.Slots {
		for _, t := range times {
			iso := t.Time
			clock := ""
			if len(iso) >= 16 {
				clock = iso[11:16]
			}
			slots = append(slots, Slot{
				Date:        date,
				Time:        clock,
				ISO:         iso,
				DisplayTime: displayTime(clock),
			})
		}
	}

	logger.Base().Info("calendar availability fetched", zap.Int("count", len(slots)))
	return slots, nil
}

// displayTime converts a 24-hour "HH:MM" clock string into 12-hour display
// form, e.g. "14:00" -> "2:00 PM".
func displayTime(clock string) string {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return clock
	}
	return t.Format("3:04 PM")
}

// CreateBookingRequest is the input to create an appointment.
type CreateBookingRequest struct {
	EventTypeID     string
	ContactEmail    string
	ContactName     string
	StartTimeUTC    time.Time
	DurationMinutes int
	Timezone        string
	Language        string
}

// Booking is the calendar provider's booking confirmation.
type Booking struct {
	ID  string `json:"id"`
	UID string `json:"uid"`
}

// CreateBooking creates an appointment. Callers are responsible for
// re-validating the slot is still available immediately before calling
// this.
func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (*Booking, error) {
	payload := map[string]interface{}{
		"eventTypeId": req.EventTypeID,
		"start":       req.StartTimeUTC.UTC().Format("2006-01-02T15:04:05.000Z"),
		"attendee": map[string]interface{}{
			"name":     req.ContactName,
			"email":    req.ContactEmail,
			"timeZone": req.Timezone,
			"language": req.Language,
		},
	}

	var booking Booking
	if err := c.requestWithRetry(ctx, "calendar.create_booking", http.MethodPost, baseURL+"/bookings", payload, &booking); err != nil {
		return nil, err
	}

	logger.Base().Info("calendar booking created", zap.String("uid", booking.UID))
	return &booking, nil
}

func (c *Client) requestWithRetry(ctx context.Context, op, method, url string, body interface{}, out interface{}) error {
	return errs.Retry(ctx, errs.DefaultRetryConfig, func(ctx context.Context) error {
		var reqBody io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return errs.New(errs.KindInvalidInput, op, err)
			}
			reqBody = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
		if err != nil {
			return errs.New(errs.KindInvalidInput, op, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("cal-api-version", "2024-08-13")
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return errs.New(errs.KindTransientNetwork, op, err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
			return &errs.Error{Kind: errs.KindRateLimited, Op: op, RetryAfterSeconds: retryAfter}
		case resp.StatusCode == http.StatusUnauthorized:
			return errs.New(errs.KindAuthentication, op, fmt.Errorf("invalid api key"))
		case resp.StatusCode == http.StatusNotFound:
			return errs.New(errs.KindNotFound, op, fmt.Errorf("resource not found"))
		case resp.StatusCode >= 500:
			return errs.New(errs.KindTransientNetwork, op, fmt.Errorf("server error %d: %s", resp.StatusCode, respBody))
		case resp.StatusCode >= 400:
			return errs.New(errs.KindInvalidInput, op, fmt.Errorf("api error %d: %s", resp.StatusCode, respBody))
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return errs.New(errs.KindInvalidInput, op, err)
			}
		}
		return nil
	})
}
