package session

import (
	"context"
	"fmt"

	"github.com/Gahroot/the-tribunal-sub000/internal/audio"
)

const (
	carrierSampleRateHz = 8000
)

// IngestCarrierFrame takes one base64-framed mu-law media payload off the
// carrier media socket, decodes and resamples it to the provider's input
// rate, and forwards it as PCM16. The mu-law decode always runs; only the
// resample is skipped when providerFormat is already 8000 Hz.
func (s *Session) IngestCarrierFrame(ctx context.Context, base64Frame string, providerFormat int) error {
	raw, err := audio.DecodeFrame(base64Frame)
	if err != nil {
		return fmt.Errorf("session: decode carrier frame: %w", err)
	}

	pcm := audio.DecodeMulaw(raw)
	if providerFormat != carrierSampleRateHz {
		pcm = audio.Resample(pcm, carrierSampleRateHz, providerFormat)
	}

	return s.cfg.Provider.SendAudio(ctx, pcm)
}

// encodeEgressFrame converts one provider audio delta (PCM16 at
// providerFormat Hz) into a carrier-ready mu-law frame, skipping only the
// resample when providerFormat is already 8000 Hz. In hybrid TTS mode
// handleAudioDelta does not call it, so carrier-native audio passes
// through unchanged.
func (s *Session) encodeEgressFrame(pcm []byte, providerFormat int) []byte {
	if providerFormat != carrierSampleRateHz {
		pcm = audio.Resample(pcm, providerFormat, carrierSampleRateHz)
	}
	return audio.EncodeMulaw(pcm)
}
