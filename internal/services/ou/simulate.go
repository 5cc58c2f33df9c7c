package ou

import (
	"fmt"
	"math"
	"math/rand/v2"

	"RelVal/internal/domain/models"
)

// Simulate draws an Euler-Maruyama path of n points starting at x0:
//
//	x[i] = x[i-1] + theta*(mu - x[i-1])*dt + sigma*sqrt(dt)*N(0,1)
//
// It is a standalone utility for synthetic data and is not used by Fit.
func Simulate(p models.OUParams, x0, dt float64, n int, rng *rand.Rand) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("simulate: n must be positive, got %d", n)
	}
	if dt <= 0 {
		return nil, fmt.Errorf("simulate: dt must be positive, got %v", dt)
	}
	if rng == nil {
		return nil, fmt.Errorf("simulate: rng is required")
	}
	path := make([]float64, n)
	path[0] = x0
	sq := math.Sqrt(dt)
	for i := 1; i < n; i++ {
		prev := path[i-1]
		path[i] = prev + p.Theta*(p.Mu-prev)*dt + p.Sigma*sq*rng.NormFloat64()
	}
	return path, nil
}
