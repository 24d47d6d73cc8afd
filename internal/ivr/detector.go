package ivr

import (
	"github.com/Gahroot/the-tribunal-sub000/pkg/logger"
	"go.uber.org/zap"
)

// Config tunes the detector's latching and loop-detection behavior.
type Config struct {
	LoopSimilarityThreshold   float64
	ConsecutiveClassifications int
	MaxTranscriptHistory      int
	MinTranscriptLength       int
}

// DefaultConfig holds the detector's tuned default thresholds.
var DefaultConfig = Config{
	LoopSimilarityThreshold:    0.85,
	ConsecutiveClassifications: 2,
	MaxTranscriptHistory:       10,
	MinTranscriptLength:        10,
}

// MenuState tracks DTMF navigation progress for the current menu.
type MenuState struct {
	Context        DTMFContext
	AttemptedDTMF  map[string]bool
}

// Status is the detector's externally observable state.
type Status struct {
	Mode                  Mode
	ConsecutiveIVRCount   int
	ConsecutiveHumanCount int
	LoopDetected          bool
	LastDTMFSent          string
	LastMenuTranscript    string
	AttemptedDTMF         map[string]bool
	FailedDTMF            map[string]bool
	MenuState             MenuState
}

func newStatus() Status {
	return Status{
		Mode:          ModeUnknown,
		AttemptedDTMF: make(map[string]bool),
		FailedDTMF:    make(map[string]bool),
		MenuState:     MenuState{Context: ContextUnknown, AttemptedDTMF: make(map[string]bool)},
	}
}

// Detector orchestrates classification, mode latching, loop detection, and
// DTMF tracking for one session's remote-party audio.
type Detector struct {
	config      Config
	loopDetector *LoopDetector
	status      Status

	OnModeChange    func(old, new Mode)
	OnLoopDetected  func()
	OnDTMFDetected  func(digits string)
}

// NewDetector creates an IVR detector with the given config.
func NewDetector(config Config) *Detector {
	return &Detector{
		config:       config,
		loopDetector: NewLoopDetector(config.LoopSimilarityThreshold, config.MaxTranscriptHistory),
		status:       newStatus(),
	}
}

// Status returns the current detection state.
func (d *Detector) Status() Status {
	return d.status
}

// Mode returns the current latched operating mode.
func (d *Detector) Mode() Mode {
	return d.status.Mode
}

// ProcessTranscript updates detection state from a new transcript
// fragment. isAgent distinguishes agent speech (tracked for DTMF/loop
// purposes only) from remote-party speech (classified).
func (d *Detector) ProcessTranscript(transcript string, isAgent bool) Mode {
	if len(transcript) < d.config.MinTranscriptLength {
		return d.status.Mode
	}

	if isAgent {
		d.checkDTMFTags(transcript)
		if d.status.Mode == ModeIVR && d.status.LastDTMFSent != "" {
			synthetic := "Pressed " + d.status.LastDTMFSent
			d.loopDetector.AddTranscript(synthetic)
			if d.loopDetector.IsLoopDetected() {
				d.status.LoopDetected = true
				logger.Base().Warn("agent dtmf loop detected")
			}
		}
		return d.status.Mode
	}

	mode, confidence := Classify(transcript)

	if ctx := DetectContext(transcript); ctx != ContextUnknown {
		d.status.MenuState.Context = ctx
	}

	logger.Base().Info("ivr transcript classified", zap.String("mode", string(mode)), zap.Float64("confidence", confidence))

	d.updateCounts(mode)
	d.checkModeSwitch()

	if d.status.Mode == ModeIVR {
		d.loopDetector.AddTranscript(transcript)
		if d.loopDetector.IsLoopDetected() {
			d.status.LoopDetected = true
			if d.OnLoopDetected != nil {
				d.OnLoopDetected()
			}
		}
	}

	return d.status.Mode
}

func (d *Detector) updateCounts(mode Mode) {
	switch mode {
	case ModeIVR, ModeVoicemail:
		d.status.ConsecutiveIVRCount++
		d.status.ConsecutiveHumanCount = 0
	case ModeConversation:
		d.status.ConsecutiveHumanCount++
		d.status.ConsecutiveIVRCount = 0
	default:
		// UNKNOWN does not reset counts - maintains momentum
	}
}

func (d *Detector) checkModeSwitch() {
	oldMode := d.status.Mode
	newMode := oldMode
	threshold := d.config.ConsecutiveClassifications

	switch {
	case d.status.ConsecutiveIVRCount >= threshold:
		newMode = ModeIVR
	case d.status.ConsecutiveHumanCount >= threshold:
		newMode = ModeConversation
		d.loopDetector.Reset()
		d.status.LoopDetected = false
	}

	if newMode != oldMode {
		logger.Base().Info("ivr mode change", zap.String("old_mode", string(oldMode)), zap.String("new_mode", string(newMode)))
		d.status.Mode = newMode
		if d.OnModeChange != nil {
			d.OnModeChange(oldMode, newMode)
		}
	}
}

// checkDTMFTags tracks (but never transmits) digits emitted by the agent.
func (d *Detector) checkDTMFTags(text string) {
	for _, digits := range ParseDTMFTags(text) {
		d.status.LastDTMFSent = digits
	}
}

// RecordDTMFAttempt records that digits were sent.
func (d *Detector) RecordDTMFAttempt(digits string) {
	d.status.AttemptedDTMF[digits] = true
	d.status.LastDTMFSent = digits
	d.status.MenuState.AttemptedDTMF[digits] = true
}

// RecordDTMFFailed records that digits did not advance the menu.
func (d *Detector) RecordDTMFFailed(digits string) {
	d.status.FailedDTMF[digits] = true
}

// GetUntriedDigits returns menu digits 1-9 not yet attempted, sorted.
func (d *Detector) GetUntriedDigits() []string {
	all := "123456789"
	out := make([]string, 0, 9)
	for _, c := range all {
		digit := string(c)
		if !d.status.AttemptedDTMF[digit] {
			out = append(out, digit)
		}
	}
	return out
}

// ShouldSkipDigit reports whether digits already failed.
func (d *Detector) ShouldSkipDigit(digits string) bool {
	return d.status.FailedDTMF[digits]
}

// ValidateMenuChanged compares a new transcript against the last menu
// transcript and, if unchanged, marks the last-sent DTMF as failed.
func (d *Detector) ValidateMenuChanged(newTranscript string) bool {
	if d.status.LastMenuTranscript == "" {
		d.status.LastMenuTranscript = newTranscript
		return true
	}

	similarity := d.loopDetector.calculateSimilarity(d.status.LastMenuTranscript, newTranscript)
	menuChanged := similarity < d.config.LoopSimilarityThreshold

	if !menuChanged && d.status.LastDTMFSent != "" {
		d.RecordDTMFFailed(d.status.LastDTMFSent)
		logger.Base().Warn("dtmf did not change menu", zap.String("digits", d.status.LastDTMFSent), zap.Float64("similarity", similarity))
	}

	d.status.LastMenuTranscript = newTranscript
	return menuChanged
}

// Reset clears all detection state.
func (d *Detector) Reset() {
	d.status = newStatus()
	d.loopDetector.Reset()
}

// NavigationPrompt builds the IVR navigation guidance block injected into
// the system prompt while in IVR mode.
func (d *Detector) NavigationPrompt(goal string) string {
	prompt := "You are navigating an automated phone menu (IVR). Listen carefully to the options and select the best one."

	if goal != "" {
		prompt += "\nYour goal: " + goal
	}

	if len(d.status.AttemptedDTMF) > 0 {
		prompt += "\nDigits already tried: " + joinKeys(d.status.AttemptedDTMF)
	}
	if len(d.status.FailedDTMF) > 0 {
		prompt += "\nDigits that didn't work: " + joinKeys(d.status.FailedDTMF)
	}

	untried := d.GetUntriedDigits()
	if len(untried) > 0 && len(d.status.AttemptedDTMF) > 0 {
		limit := 3
		if len(untried) < limit {
			limit = len(untried)
		}
		prompt += "\nTry one of these next: "
		for i := 0; i < limit; i++ {
			if i > 0 {
				prompt += ", "
			}
			prompt += untried[i]
		}
	}

	if d.status.LoopDetected {
		prompt += "\nWARNING: The menu is repeating. Try a DIFFERENT numbered option (1-9) that you haven't tried yet. Only use '0' or '#' as a last resort."
	}

	prompt += "\nTo select an option, include the digit in <dtmf>X</dtmf> tags. Example: <dtmf>1</dtmf> to press 1."
	return prompt
}

func joinKeys(set map[string]bool) string {
	out := ""
	first := true
	for k := range set {
		if !first {
			out += ", "
		}
		out += k
		first = false
	}
	return out
}
