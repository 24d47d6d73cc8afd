package ivr

import "testing"

func TestClassifyExclusiveIVRPhrase(t *testing.T) {
	mode, confidence := Classify("Please listen carefully as our menu options have changed, for sales press 1")
	if mode != ModeIVR {
		t.Fatalf("expected ModeIVR, got %s", mode)
	}
	if confidence <= 0 {
		t.Fatalf("expected positive confidence, got %f", confidence)
	}
}

func TestClassifyHumanGreeting(t *testing.T) {
	mode, _ := Classify("Hello, thanks for calling, how can I help you today")
	if mode != ModeConversation {
		t.Fatalf("expected ModeConversation, got %s", mode)
	}
}

func TestClassifyVoicemail(t *testing.T) {
	mode, _ := Classify("You have reached the voicemail of John, please leave a message after the tone")
	if mode != ModeVoicemail {
		t.Fatalf("expected ModeVoicemail, got %s", mode)
	}
}

func TestClassifyShortTranscriptIsUnknown(t *testing.T) {
	mode, confidence := Classify("Hi")
	if mode != ModeUnknown || confidence != 0.0 {
		t.Fatalf("expected unknown/0.0 for too-short transcript, got %s/%f", mode, confidence)
	}
}

func TestDetectContextExtension(t *testing.T) {
	ctx := DetectContext("If you know your party's extension, you may enter it now")
	if ctx != ContextExtension {
		t.Fatalf("expected ContextExtension, got %s", ctx)
	}
}

func TestSplitDTMFByContextMenu(t *testing.T) {
	got := SplitDTMFByContext("12", ContextMenu)
	want := []string{"1", "2"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSplitDTMFByContextExtensionAddsHash(t *testing.T) {
	got := SplitDTMFByContext("4521", ContextExtension)
	if len(got) != 1 || got[0] != "4521#" {
		t.Fatalf("expected single combined send with trailing #, got %v", got)
	}
}

func TestSplitDTMFByContextPinNoTerminator(t *testing.T) {
	got := SplitDTMFByContext("9876", ContextPIN)
	if len(got) != 1 || got[0] != "9876" {
		t.Fatalf("expected single combined send with no terminator, got %v", got)
	}
}
