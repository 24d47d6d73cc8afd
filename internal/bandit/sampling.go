// Package bandit implements Thompson-sampling prompt-version selection,
// grounded on the original service's numpy/scipy Beta-Bernoulli bandit. No
// statistics library ships in the example pack's dependency surface, so
// sampling is implemented directly on math/rand using the standard
// Marsaglia-Tsang Gamma-variate construction of a Beta draw; this is the
// one component in the bridge that is deliberately stdlib-only.
package bandit

import (
	"math"
	"math/rand"
)

// sampleGamma draws one sample from Gamma(shape, 1) using the
// Marsaglia-Tsang method, valid for shape >= 1. For shape < 1 it uses the
// standard boosting trick (sample at shape+1, then scale by u^(1/shape)).
func sampleGamma(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		u := rng.Float64()
		return sampleGamma(rng, shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)

	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()

		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// sampleBeta draws one sample from Beta(alpha, beta) via two Gamma draws.
func sampleBeta(rng *rand.Rand, alpha, beta float64) float64 {
	x := sampleGamma(rng, alpha)
	y := sampleGamma(rng, beta)
	return x / (x + y)
}
