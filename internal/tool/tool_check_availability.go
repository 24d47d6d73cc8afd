package tool

import (
	"context"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/pkg/logger"
	"go.uber.org/zap"
)

type checkAvailabilityArgs struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date,omitempty"`
}

func (e *Executor) checkAvailability(ctx context.Context, argumentsJSON string) Result {
	var args checkAvailabilityArgs
	if err := decodeArgs(argumentsJSON, &args); err != nil {
		return Result{Success: false, Error: "invalid arguments: " + err.Error()}
	}

	start, err := time.Parse("2006-01-02", args.StartDate)
	if err != nil {
		return Result{Success: false, Error: "start_date must be YYYY-MM-DD"}
	}
	end := start
	if args.EndDate != "" {
		end, err = time.Parse("2006-01-02", args.EndDate)
		if err != nil {
			return Result{Success: false, Error: "end_date must be YYYY-MM-DD"}
		}
	}

	slots, err := e.calendarClient.GetAvailability(ctx, e.eventTypeID, start, end, e.timezone)
	if err != nil {
		logger.Base().Error("check_availability failed", zap.Error(err))
		return Result{Success: false, Error: "failed to fetch availability"}
	}

	return Result{
		Success: true,
		Slots:   toSlotViews(slots),
		Message: "Offer ONLY these times; do not invent times.",
	}
}
