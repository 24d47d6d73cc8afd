package audio

import "encoding/binary"

// Resample converts PCM16 little-endian audio between sample rates using
// linear interpolation. This is acceptable quality for 8kHz <-> 16/24kHz
// voice bridging and stays stable across frame boundaries as long as
// callers resample whole buffers rather than reusing fractional state
// across calls with a new stream.
func Resample(pcm []byte, fromHz, toHz int) []byte {
	if fromHz == toHz || len(pcm) < 2 {
		return append([]byte(nil), pcm...)
	}

	in := bytesToInt16(pcm)
	ratio := float64(fromHz) / float64(toHz)
	outLen := int(float64(len(in)) / ratio)
	if outLen <= 0 {
		return []byte{}
	}

	out := make([]int16, outLen)
	for i := range out {
		srcPos := float64(i) * ratio
		s0 := int(srcPos)
		if s0 >= len(in) {
			s0 = len(in) - 1
		}
		s1 := s0 + 1
		if s1 >= len(in) {
			s1 = len(in) - 1
		}
		frac := srcPos - float64(s0)
		out[i] = int16((1-frac)*float64(in[s0]) + frac*float64(in[s1]))
	}
	return int16ToBytes(out)
}

func bytesToInt16(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

func int16ToBytes(in []int16) []byte {
	out := make([]byte, len(in)*2)
	for i, s := range in {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}
