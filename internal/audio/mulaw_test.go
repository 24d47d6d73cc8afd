package audio

import "testing"

func TestDecodeMulawNeverFails(t *testing.T) {
	in := make([]byte, 256)
	for i := range in {
		in[i] = byte(i)
	}
	out := DecodeMulaw(in)
	if len(out) != len(in)*2 {
		t.Fatalf("expected %d bytes, got %d", len(in)*2, len(out))
	}
}

func TestEncodeDecodeRoundTripApproximate(t *testing.T) {
	pcm := []byte{0x00, 0x10, 0xFF, 0x7F, 0x00, 0x80}
	encoded := EncodeMulaw(pcm)
	decoded := DecodeMulaw(encoded)
	if len(decoded) != len(pcm) {
		t.Fatalf("round trip length mismatch: got %d want %d", len(decoded), len(pcm))
	}
}

func TestEncodeMulawDropsTrailingOddByte(t *testing.T) {
	pcm := []byte{0x00, 0x10, 0xFF}
	out := EncodeMulaw(pcm)
	if len(out) != 1 {
		t.Fatalf("expected 1 output byte (trailing odd byte dropped), got %d", len(out))
	}
}

func TestDecodeMulawZeroIsNearZero(t *testing.T) {
	out := DecodeMulaw([]byte{0xFF})
	sample := int16(uint16(out[0]) | uint16(out[1])<<8)
	if sample < -10 || sample > 10 {
		t.Fatalf("expected near-zero sample for mulaw 0xFF, got %d", sample)
	}
}
