package ivr

// SplitDTMFByContext splits a digit string into the individual DTMF sends
// the carrier should receive, depending on what the menu appears to be
// asking for: menu choices are pressed one at a time, an extension gets a
// single combined send terminated with '#', and a PIN is sent together
// with no terminator.
func SplitDTMFByContext(digits string, context DTMFContext) []string {
	switch context {
	case ContextMenu:
		out := make([]string, 0, len(digits))
		for _, c := range digits {
			out = append(out, string(c))
		}
		return out
	case ContextExtension:
		if len(digits) > 0 && digits[len(digits)-1] == '#' {
			return []string{digits}
		}
		return []string{digits + "#"}
	case ContextPIN:
		return []string{digits}
	default:
		out := make([]string, 0, len(digits))
		for _, c := range digits {
			out = append(out, string(c))
		}
		return out
	}
}
