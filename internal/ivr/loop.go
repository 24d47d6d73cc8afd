package ivr

import (
	"regexp"
	"strings"
)

// LoopDetector holds a bounded ring buffer of recent remote-party
// transcripts and declares a loop when a new entry is too similar to any
// prior one. No vetted TF-IDF library exists in the available Go
// dependency surface for this kind of short-text comparison, so
// Jaccard-over-word-sets is used directly as the similarity measure.
type LoopDetector struct {
	threshold  float64
	maxHistory int
	history    []string
}

// NewLoopDetector creates a loop detector with the given similarity
// threshold and history window.
func NewLoopDetector(threshold float64, maxHistory int) *LoopDetector {
	return &LoopDetector{threshold: threshold, maxHistory: maxHistory}
}

var wordSplitter = regexp.MustCompile(`\s+`)

// AddTranscript appends a transcript to the bounded history, dropping the
// oldest entry once the window is full.
func (l *LoopDetector) AddTranscript(transcript string) {
	l.history = append(l.history, transcript)
	if len(l.history) > l.maxHistory {
		l.history = l.history[len(l.history)-l.maxHistory:]
	}
}

// IsLoopDetected reports whether the most recent entry is similar enough
// to any earlier entry to call it a repeat of the same menu.
func (l *LoopDetector) IsLoopDetected() bool {
	if len(l.history) < 2 {
		return false
	}
	latest := l.history[len(l.history)-1]
	for i := len(l.history) - 2; i >= 0; i-- {
		if l.calculateSimilarity(latest, l.history[i]) >= l.threshold {
			return true
		}
	}
	return false
}

// calculateSimilarity computes Jaccard similarity over lowercased word sets.
func (l *LoopDetector) calculateSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// Reset clears all history.
func (l *LoopDetector) Reset() {
	l.history = nil
}

func wordSet(s string) map[string]bool {
	words := wordSplitter.Split(strings.ToLower(strings.TrimSpace(s)), -1)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if w != "" {
			set[w] = true
		}
	}
	return set
}
