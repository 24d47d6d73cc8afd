package ivr

import "testing"

func TestLoopDetectorDetectsRepeat(t *testing.T) {
	ld := NewLoopDetector(0.85, 10)
	ld.AddTranscript("for billing press one for support press two")
	if ld.IsLoopDetected() {
		t.Fatal("expected no loop after a single entry")
	}
	ld.AddTranscript("for billing press one for support press two")
	if !ld.IsLoopDetected() {
		t.Fatal("expected loop detected on near-identical repeat")
	}
}

func TestLoopDetectorIgnoresDistinctTranscripts(t *testing.T) {
	ld := NewLoopDetector(0.85, 10)
	ld.AddTranscript("for billing press one for support press two")
	ld.AddTranscript("thank you for holding your call is important to us")
	if ld.IsLoopDetected() {
		t.Fatal("expected no loop for distinct transcripts")
	}
}

func TestLoopDetectorReset(t *testing.T) {
	ld := NewLoopDetector(0.85, 10)
	ld.AddTranscript("for billing press one")
	ld.AddTranscript("for billing press one")
	ld.Reset()
	if ld.IsLoopDetected() {
		t.Fatal("expected reset to clear loop history")
	}
}

func TestLoopDetectorBoundedHistory(t *testing.T) {
	ld := NewLoopDetector(0.85, 2)
	ld.AddTranscript("alpha beta gamma")
	ld.AddTranscript("delta epsilon zeta")
	ld.AddTranscript("eta theta iota")
	if len(ld.history) != 2 {
		t.Fatalf("expected history bounded to 2, got %d", len(ld.history))
	}
}
