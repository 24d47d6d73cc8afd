// Package dtmf implements the DTMF handler: it scans the
// agent's incremental transcript for newly emitted <dtmf>…</dtmf> tags and
// transmits them to the carrier, holding exclusive responsibility for
// transmission so the IVR detector's own tag parser never double-sends.
package dtmf

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/Gahroot/the-tribunal-sub000/pkg/logger"
	"go.uber.org/zap"
)

const defaultCooldown = 3000 * time.Millisecond

var dtmfTagPattern = regexp.MustCompile(`(?i)<dtmf>([0-9*#A-Dw]+)</dtmf>`)
var allowedCharset = regexp.MustCompile(`(?i)^[0-9*#A-Dw]+$`)
var pauseOnly = regexp.MustCompile(`(?i)^w+$`)

// DTMFSender is the subset of the carrier client a Handler needs, narrowed
// so the handler can be unit tested without a real carrier connection.
type DTMFSender interface {
	SendDTMF(ctx context.Context, callControlID, digits string, durationMillis int) error
}

// Handler scans one session's agent transcript for DTMF tags and forwards
// them to the carrier. It is only ever called from the session's single
// cooperative task, so its fields need no locking.
type Handler struct {
	carrierClient DTMFSender
	callControlID string
	cooldown      time.Duration

	scanPos    int
	lastSentAt time.Time
}

// NewHandler creates a DTMF handler bound to one call.
func NewHandler(carrierClient DTMFSender, callControlID string) *Handler {
	return &Handler{
		carrierClient: carrierClient,
		callControlID: callControlID,
		cooldown:      defaultCooldown,
	}
}

// ResetScanPosition resets the scan cursor to the start of a new response.
func (h *Handler) ResetScanPosition() {
	h.scanPos = 0
}

// ScanAndSend inspects the incremental transcript beyond the previously
// scanned prefix, sends any newly discovered tag subject to cooldown, and
// returns the digits sent (empty if nothing new or still in cooldown).
func (h *Handler) ScanAndSend(ctx context.Context, transcript string) (string, error) {
	if h.scanPos > len(transcript) {
		h.scanPos = 0
	}
	unscanned := transcript[h.scanPos:]
	matches := dtmfTagPattern.FindStringSubmatchIndex(unscanned)
	if matches == nil {
		return "", nil
	}

	digits := unscanned[matches[2]:matches[3]]
	h.scanPos += matches[1]

	if time.Since(h.lastSentAt) < h.cooldown {
		logger.Base().Info("dtmf send skipped: cooldown active", zap.String("call_control_id", h.callControlID))
		return "", nil
	}

	if err := h.carrierClient.SendDTMF(ctx, h.callControlID, digits, 250); err != nil {
		return "", err
	}
	h.lastSentAt = time.Now()
	return digits, nil
}

// ValidateDigits enforces the send_dtmf tool's charset and anti-pause-only
// rule: the digits must be in [0-9*#A-Dw] and must contain at
// least one non-pause character.
func ValidateDigits(digits string) (bool, string) {
	if digits == "" || !allowedCharset.MatchString(digits) {
		return false, "digits must use only [0-9*#A-Dw]"
	}
	if pauseOnly.MatchString(digits) {
		return false, "digits must include at least one actual digit, not only pause characters"
	}
	return true, ""
}

// StripTags removes all <dtmf>…</dtmf> tags from text, used when building
// the transcript entry stored for a turn.
func StripTags(text string) string {
	return strings.TrimSpace(dtmfTagPattern.ReplaceAllString(text, ""))
}
