package tool

import (
	"context"

	"github.com/Gahroot/the-tribunal-sub000/internal/dtmf"
	"github.com/Gahroot/the-tribunal-sub000/pkg/logger"
	"go.uber.org/zap"
)

type sendDTMFArgs struct {
	Digits string `json:"digits"`
}

func (e *Executor) sendDTMF(ctx context.Context, argumentsJSON string) Result {
	var args sendDTMFArgs
	if err := decodeArgs(argumentsJSON, &args); err != nil {
		return Result{Success: false, Error: "invalid arguments: " + err.Error()}
	}

	if ok, reason := dtmf.ValidateDigits(args.Digits); !ok {
		return Result{Success: false, Error: reason}
	}

	tagged := "<dtmf>" + args.Digits + "</dtmf>"
	digits, err := e.dtmfHandler.ScanAndSend(ctx, tagged)
	if err != nil {
		logger.Base().Error("send_dtmf failed", zap.Error(err))
		return Result{Success: false, Error: "failed to send DTMF"}
	}
	if digits == "" {
		return Result{Success: false, Error: "DTMF send skipped (cooldown active)"}
	}

	return Result{Success: true, Message: "Sent digits: " + digits}
}
