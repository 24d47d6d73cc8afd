package dtmf

import (
	"context"
	"testing"
	"time"
)

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) SendDTMF(ctx context.Context, callControlID, digits string, durationMillis int) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, digits)
	return nil
}

func TestScanAndSendFindsNewTag(t *testing.T) {
	sender := &fakeSender{}
	h := NewHandler(sender, "call-1")

	digits, err := h.ScanAndSend(context.Background(), "I'll press that now <dtmf>1</dtmf>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if digits != "1" {
		t.Fatalf("expected digits '1', got %q", digits)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(sender.sent))
	}
}

func TestScanAndSendHonorsCooldown(t *testing.T) {
	sender := &fakeSender{}
	h := NewHandler(sender, "call-1")
	h.cooldown = 1 * time.Hour

	h.ScanAndSend(context.Background(), "<dtmf>1</dtmf>")
	digits, err := h.ScanAndSend(context.Background(), "<dtmf>1</dtmf><dtmf>2</dtmf>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if digits != "" {
		t.Fatalf("expected no send during cooldown, got %q", digits)
	}
}

func TestScanAndSendOnlyScansUnscannedSuffix(t *testing.T) {
	sender := &fakeSender{}
	h := NewHandler(sender, "call-1")

	h.ScanAndSend(context.Background(), "<dtmf>1</dtmf>")
	digits, _ := h.ScanAndSend(context.Background(), "<dtmf>1</dtmf> more text with no new tag")
	if digits != "" {
		t.Fatalf("expected no new tag found, got %q", digits)
	}
}

func TestValidateDigitsRejectsBadCharset(t *testing.T) {
	if ok, _ := ValidateDigits("12x"); ok {
		t.Fatal("expected rejection of invalid charset")
	}
}

func TestValidateDigitsRejectsPauseOnly(t *testing.T) {
	if ok, _ := ValidateDigits("www"); ok {
		t.Fatal("expected rejection of pause-only digits")
	}
}

func TestValidateDigitsAcceptsValid(t *testing.T) {
	if ok, reason := ValidateDigits("1w2"); !ok {
		t.Fatalf("expected acceptance, got rejection: %s", reason)
	}
}

func TestStripTags(t *testing.T) {
	got := StripTags("pressing <dtmf>5</dtmf> now")
	if got != "pressing  now" {
		t.Fatalf("unexpected result: %q", got)
	}
}
