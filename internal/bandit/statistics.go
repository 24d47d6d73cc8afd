package bandit

import (
	"math/rand"
	"sort"
)

const minSamplesForAnalysis = 30
const defaultNumSamples = 10000

// Arm is the subset of a PromptVersion's bandit fields this package needs,
// decoupled from the domain/gorm types so it can be unit tested in
// isolation.
type Arm struct {
	ID                 string
	Alpha              float64
	Beta               float64
	RewardCount        int
	TotalCalls         int
	SuccessfulCalls    int
	BookedAppointments int
}

// MeanEstimate is the Beta posterior mean.
func (a Arm) MeanEstimate() float64 {
	return a.Alpha / (a.Alpha + a.Beta)
}

// Variance is the Beta posterior variance.
func (a Arm) Variance() float64 {
	sum := a.Alpha + a.Beta
	return (a.Alpha * a.Beta) / (sum * sum * (sum + 1))
}

// Statistics runs the Thompson-sampling comparisons used to pick arms,
// detect winners, and identify eliminable underperformers.
type Statistics struct {
	rng *rand.Rand
}

// NewStatistics creates a Statistics service seeded from src.
func NewStatistics(src rand.Source) *Statistics {
	return &Statistics{rng: rand.New(src)}
}

// SelectArm draws one Beta sample per arm and returns the id of the arm
// with the highest sample — the Thompson-sampling selection step invoked
// once per new session.
func (s *Statistics) SelectArm(arms []Arm) string {
	bestIdx := -1
	bestSample := -1.0
	for i, arm := range arms {
		sample := sampleBeta(s.rng, arm.Alpha, arm.Beta)
		if sample > bestSample {
			bestSample = sample
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return ""
	}
	return arms[bestIdx].ID
}

// ComputeProbabilityBest draws numSamples Beta samples per arm and returns,
// for each arm, the fraction of draws in which it had the largest sample.
func (s *Statistics) ComputeProbabilityBest(arms []Arm, numSamples int) map[string]float64 {
	if numSamples <= 0 {
		numSamples = defaultNumSamples
	}
	wins := make(map[string]int, len(arms))
	for _, arm := range arms {
		wins[arm.ID] = 0
	}

	for i := 0; i < numSamples; i++ {
		bestIdx := -1
		bestSample := -1.0
		for idx, arm := range arms {
			sample := sampleBeta(s.rng, arm.Alpha, arm.Beta)
			if sample > bestSample {
				bestSample = sample
				bestIdx = idx
			}
		}
		if bestIdx >= 0 {
			wins[arms[bestIdx].ID]++
		}
	}

	probs := make(map[string]float64, len(arms))
	for _, arm := range arms {
		probs[arm.ID] = float64(wins[arm.ID]) / float64(numSamples)
	}
	return probs
}

// WinnerResult is the outcome of DetectWinner.
type WinnerResult struct {
	Conclusive  bool
	WinnerID    string
	Probability float64
}

// DetectWinner requires at least minSamplesForAnalysis*len(arms) total
// reward observations before declaring a winner, mirroring the original
// service's guard against acting on too little data.
func (s *Statistics) DetectWinner(arms []Arm, threshold float64, numSamples int) WinnerResult {
	totalSamples := 0
	for _, arm := range arms {
		totalSamples += arm.RewardCount
	}
	minNeeded := minSamplesForAnalysis * len(arms)
	if totalSamples < minNeeded {
		return WinnerResult{Conclusive: false}
	}

	probs := s.ComputeProbabilityBest(arms, numSamples)
	bestID := ""
	bestProb := -1.0
	for id, p := range probs {
		if p > bestProb {
			bestProb = p
			bestID = id
		}
	}

	if bestProb >= threshold {
		return WinnerResult{Conclusive: true, WinnerID: bestID, Probability: bestProb}
	}
	return WinnerResult{Conclusive: false, Probability: bestProb}
}

// CredibleInterval returns the 95% Beta-posterior credible interval for
// arm's conversion rate: numSamples Beta draws, sorted, 2.5th and 97.5th
// percentiles. Reporting-only, used alongside MeanEstimate when surfacing
// a version's performance.
func (s *Statistics) CredibleInterval(arm Arm, numSamples int) (low, high float64) {
	if numSamples <= 0 {
		numSamples = defaultNumSamples
	}
	samples := make([]float64, numSamples)
	for i := 0; i < numSamples; i++ {
		samples[i] = sampleBeta(s.rng, arm.Alpha, arm.Beta)
	}
	sort.Float64s(samples)

	lowIdx := int(0.025 * float64(numSamples))
	highIdx := int(0.975 * float64(numSamples))
	if highIdx >= numSamples {
		highIdx = numSamples - 1
	}
	return samples[lowIdx], samples[highIdx]
}

// ShouldEliminate samples both arms numSamples times and reports whether
// version lost to best at least threshold fraction of the time.
func (s *Statistics) ShouldEliminate(version, best Arm, threshold float64, numSamples int) bool {
	if numSamples <= 0 {
		numSamples = defaultNumSamples
	}
	worseCount := 0
	for i := 0; i < numSamples; i++ {
		vSample := sampleBeta(s.rng, version.Alpha, version.Beta)
		bSample := sampleBeta(s.rng, best.Alpha, best.Beta)
		if vSample < bSample {
			worseCount++
		}
	}
	probWorse := float64(worseCount) / float64(numSamples)
	return probWorse >= threshold
}

// GetEliminationCandidates returns the ids of arms that should be retired
// in favor of the current best-mean arm.
func (s *Statistics) GetEliminationCandidates(arms []Arm, threshold float64, numSamples int) []string {
	if len(arms) < 2 {
		return nil
	}

	best := arms[0]
	for _, arm := range arms[1:] {
		if arm.MeanEstimate() > best.MeanEstimate() {
			best = arm
		}
	}

	var candidates []string
	for _, arm := range arms {
		if arm.ID == best.ID {
			continue
		}
		if s.ShouldEliminate(arm, best, threshold, numSamples) {
			candidates = append(candidates, arm.ID)
		}
	}
	return candidates
}

// VersionStats is one arm's row in a comparison report.
type VersionStats struct {
	ID                    string
	MeanEstimate          float64
	ProbabilityBest       float64
	CredibleIntervalLow   float64
	CredibleIntervalHigh  float64
	TotalCalls            int
	SuccessfulCalls       int
	BookedAppointments    int
	BookingRate           float64
}

// ComparisonResult summarizes a full arm comparison, including the
// recommended next action.
type ComparisonResult struct {
	Versions         []VersionStats
	RecommendedAction string // "continue" | "declare_winner" | "eliminate_worst"
	WinnerID         string
}

// CompareVersions builds a full comparison report across arms, recommending
// whether to keep collecting data, declare a winner, or eliminate the
// weakest arm.
func (s *Statistics) CompareVersions(arms []Arm, winnerThreshold, eliminationThreshold float64) ComparisonResult {
	probs := s.ComputeProbabilityBest(arms, defaultNumSamples)

	versions := make([]VersionStats, 0, len(arms))
	for _, arm := range arms {
		bookingRate := 0.0
		if arm.SuccessfulCalls > 0 {
			bookingRate = float64(arm.BookedAppointments) / float64(arm.SuccessfulCalls)
		}
		low, high := s.CredibleInterval(arm, defaultNumSamples)
		versions = append(versions, VersionStats{
			ID:                   arm.ID,
			MeanEstimate:         arm.MeanEstimate(),
			ProbabilityBest:      probs[arm.ID],
			CredibleIntervalLow:  low,
			CredibleIntervalHigh: high,
			TotalCalls:           arm.TotalCalls,
			SuccessfulCalls:      arm.SuccessfulCalls,
			BookedAppointments:   arm.BookedAppointments,
			BookingRate:          bookingRate,
		})
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].ProbabilityBest > versions[j].ProbabilityBest
	})

	result := ComparisonResult{Versions: versions, RecommendedAction: "continue"}
	if len(versions) == 0 {
		return result
	}

	winner := s.DetectWinner(arms, winnerThreshold, defaultNumSamples)
	if winner.Conclusive {
		result.RecommendedAction = "declare_winner"
		result.WinnerID = winner.WinnerID
		return result
	}

	if candidates := s.GetEliminationCandidates(arms, eliminationThreshold, defaultNumSamples); len(candidates) > 0 {
		result.RecommendedAction = "eliminate_worst"
	}

	return result
}
