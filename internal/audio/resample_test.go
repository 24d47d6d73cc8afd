package audio

import "testing"

func TestResampleSameRateIsNoop(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	out := Resample(pcm, 8000, 8000)
	if len(out) != len(pcm) {
		t.Fatalf("expected no-op copy, got length %d", len(out))
	}
}

func TestResampleUpsampleLengthRatio(t *testing.T) {
	in := make([]byte, 8000*2)
	for i := range in {
		in[i] = byte(i % 7)
	}
	out := Resample(in, 8000, 24000)
	expectedSamples := len(in) / 2 * 3
	gotSamples := len(out) / 2
	if diff := expectedSamples - gotSamples; diff < -1 || diff > 1 {
		t.Fatalf("expected roughly %d samples, got %d", expectedSamples, gotSamples)
	}
}

func TestResampleDownsampleLengthRatio(t *testing.T) {
	in := make([]byte, 24000*2)
	out := Resample(in, 24000, 8000)
	expectedSamples := len(in) / 2 / 3
	gotSamples := len(out) / 2
	if diff := expectedSamples - gotSamples; diff < -1 || diff > 1 {
		t.Fatalf("expected roughly %d samples, got %d", expectedSamples, gotSamples)
	}
}
