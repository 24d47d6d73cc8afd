package audio

import "encoding/base64"

// EncodeFrame base64-encodes a media payload for the carrier's JSON-framed
// WebSocket protocol.
func EncodeFrame(payload []byte) string {
	return base64.StdEncoding.EncodeToString(payload)
}

// DecodeFrame reverses EncodeFrame.
func DecodeFrame(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}
