package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/internal/calendar"
	"github.com/Gahroot/the-tribunal-sub000/pkg/logger"
	"go.uber.org/zap"
)

// CalendarClient is the subset of the calendar client the tool executor
// needs, narrowed so it can be swapped for a fake in tests.
type CalendarClient interface {
	GetAvailability(ctx context.Context, eventTypeID string, startDate, endDate time.Time, timezone string) ([]calendar.Slot, error)
	CreateBooking(ctx context.Context, req calendar.CreateBookingRequest) (*calendar.Booking, error)
}

// DTMFHandler is the subset of the dtmf handler the send_dtmf tool needs.
type DTMFHandler interface {
	ScanAndSend(ctx context.Context, transcript string) (string, error)
}

// Executor wires the three tool handlers to their backing clients and
// records the booking outcome on the caller-supplied sink.
type Executor struct {
	calendarClient CalendarClient
	eventTypeID    string
	timezone       string

	dtmfHandler DTMFHandler

	// OnBookingOutcome persists "success" or "failed" on the session's
	// anchor row, keyed by carrier call id, once book_appointment resolves.
	OnBookingOutcome func(outcome string)
}

// NewExecutor creates a tool executor for one session.
func NewExecutor(calendarClient CalendarClient, eventTypeID, timezone string, dtmfHandler DTMFHandler) *Executor {
	return &Executor{
		calendarClient: calendarClient,
		eventTypeID:    eventTypeID,
		timezone:       timezone,
		dtmfHandler:    dtmfHandler,
	}
}

// Execute dispatches a named tool call with a bounded timeout, decoding
// argumentsJSON into the handler's expected argument shape.
func (e *Executor) Execute(ctx context.Context, name Name, argumentsJSON string) Result {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		done <- e.dispatch(ctx, name, argumentsJSON)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		logger.Base().Warn("tool execution timed out", zap.String("tool", string(name)))
		return TimeoutResult()
	}
}

func (e *Executor) dispatch(ctx context.Context, name Name, argumentsJSON string) Result {
	switch name {
	case NameCheckAvailability:
		return e.checkAvailability(ctx, argumentsJSON)
	case NameBookAppointment:
		return e.bookAppointment(ctx, argumentsJSON)
	case NameSendDTMF:
		return e.sendDTMF(ctx, argumentsJSON)
	default:
		return Result{Success: false, Error: fmt.Sprintf("unknown tool: %s", name)}
	}
}

func decodeArgs(argumentsJSON string, out interface{}) error {
	return json.Unmarshal([]byte(argumentsJSON), out)
}
