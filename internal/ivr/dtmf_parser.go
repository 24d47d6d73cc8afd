package ivr

import "regexp"

var dtmfTagRe = regexp.MustCompile(`(?i)<dtmf>([0-9*#A-Dw]+)</dtmf>`)

// ParseDTMFTags extracts all <dtmf>…</dtmf> payloads from text. This only
// reports digits — it never transmits them; transmission belongs
// exclusively to the dtmf package's Handler.
func ParseDTMFTags(text string) []string {
	matches := dtmfTagRe.FindAllStringSubmatch(text, -1)
	digits := make([]string, 0, len(matches))
	for _, m := range matches {
		digits = append(digits, m[1])
	}
	return digits
}

// StripDTMFTags removes all <dtmf>…</dtmf> tags from text.
func StripDTMFTags(text string) string {
	return dtmfTagRe.ReplaceAllString(text, "")
}
