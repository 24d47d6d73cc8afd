package tool

import (
	"context"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/internal/calendar"
	"github.com/Gahroot/the-tribunal-sub000/pkg/logger"
	"go.uber.org/zap"
)

type bookAppointmentArgs struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	Email           string `json:"email"`
	Name            string `json:"name,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

func (e *Executor) bookAppointment(ctx context.Context, argumentsJSON string) Result {
	var args bookAppointmentArgs
	if err := decodeArgs(argumentsJSON, &args); err != nil {
		return Result{Success: false, Error: "invalid arguments: " + err.Error()}
	}

	date, err := time.Parse("2006-01-02", args.Date)
	if err != nil {
		return Result{Success: false, Error: "date must be YYYY-MM-DD"}
	}

	// Re-validate the slot is still available immediately before booking —
	// the provider may have offered a time another caller already took.
	slots, err := e.calendarClient.GetAvailability(ctx, e.eventTypeID, date, date, e.timezone)
	if err != nil {
		logger.Base().Error("book_appointment availability re-check failed", zap.Error(err))
		return Result{Success: false, Error: "failed to re-check availability"}
	}

	var matched *calendar.Slot
	for i, s := range slots {
		if s.Time == args.Time {
			matched = &slots[i]
			break
		}
	}
	if matched == nil {
		return Result{
			Success:          false,
			AlternativeSlots: toSlotViews(slots),
			Message:          "That time is no longer available. Do not re-offer it; choose one of the alternatives.",
		}
	}

	startUTC, err := time.Parse(time.RFC3339, matched.ISO)
	if err != nil {
		startUTC, err = time.Parse("2006-01-02T15:04:05.000Z", matched.ISO)
	}
	if err != nil {
		return Result{Success: false, Error: "could not parse slot time"}
	}

	duration := args.DurationMinutes
	if duration <= 0 {
		duration = 30
	}

	booking, err := e.calendarClient.CreateBooking(ctx, calendar.CreateBookingRequest{
		EventTypeID:     e.eventTypeID,
		ContactEmail:    args.Email,
		ContactName:     args.Name,
		StartTimeUTC:    startUTC,
		DurationMinutes: duration,
		Timezone:        e.timezone,
		Language:        "en",
	})
	if err != nil {
		logger.Base().Error("book_appointment create failed", zap.Error(err))
		if e.OnBookingOutcome != nil {
			e.OnBookingOutcome("failed")
		}
		return Result{Success: false, Error: "failed to create booking"}
	}

	if e.OnBookingOutcome != nil {
		e.OnBookingOutcome("success")
	}
	return Result{Success: true, BookingUID: booking.UID, Message: "Appointment booked."}
}
