// Package audio converts between the carrier's μ-law 8kHz media frames and
// the PCM16 little-endian audio the AI providers send and expect, plus the
// resampling needed to bridge 8kHz carrier audio against a 16 or 24kHz
// provider stream.
package audio

// mulawDecodeTable is the standard G.711 μ-law expansion table: 256
// entries (one per possible byte value) mapping directly to a signed
// 16-bit PCM sample. Built once at init from the ITU-T G.711 formula
// rather than hand-transcribed, so it is exact across all 256 inputs.
var mulawDecodeTable [256]int16

const muBias = 0x84 // 132, the standard μ-law bias added before compression

func init() {
	for i := 0; i < 256; i++ {
		mulawDecodeTable[i] = mulawDecodeSample(byte(i))
	}
}

func mulawDecodeSample(b byte) int16 {
	b = ^b
	sign := b & 0x80
	exponent := (b >> 4) & 0x07
	mantissa := b & 0x0F

	sample := (int(mantissa) << 3) + muBias
	sample <<= exponent
	sample -= muBias

	if sign != 0 {
		sample = -sample
	}
	return int16(sample)
}

// DecodeMulaw expands one byte of μ-law audio into two bytes of PCM16
// little-endian. It never fails: every byte value has a table entry.
func DecodeMulaw(in []byte) []byte {
	out := make([]byte, len(in)*2)
	for i, b := range in {
		sample := mulawDecodeTable[b]
		out[2*i] = byte(sample)
		out[2*i+1] = byte(sample >> 8)
	}
	return out
}

// EncodeMulaw compresses PCM16 little-endian audio into μ-law bytes. A
// trailing odd byte (an incomplete sample) is dropped.
func EncodeMulaw(in []byte) []byte {
	n := len(in) / 2
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		sample := int16(uint16(in[2*i]) | uint16(in[2*i+1])<<8)
		out[i] = mulawEncodeSample(sample)
	}
	return out
}

func mulawEncodeSample(sample int16) byte {
	const clip = 32635

	sign := byte(0)
	s := int(sample)
	if s < 0 {
		sign = 0x80
		s = -s
	}
	if s > clip {
		s = clip
	}
	s += muBias

	exponent := byte(7)
	for mask := 0x4000; (s&mask) == 0 && exponent > 0; mask >>= 1 {
		exponent--
	}
	mantissa := byte((s >> (uint(exponent) + 3)) & 0x0F)

	return ^(sign | (exponent << 4) | mantissa)
}
