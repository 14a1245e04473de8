package forecast

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// maxReweights bounds the iteratively reweighted passes used for the L1 slope penalty.
	maxReweights = 50
	reweightTol  = 1e-9
	// deltaFloor keeps reweighting finite when a slope change collapses to zero.
	deltaFloor = 1e-8
	// jitter keeps penalized columns positive definite when the noise estimate is ~0.
	jitter = 1e-10
	// firstPassRidge is the per-observation ridge used to estimate the noise level.
	firstPassRidge = 1e-6
	// noiseFloor stops the noise estimate from reaching zero on exact data.
	noiseFloor = 1e-14
	// seasonalRidgeFloor is the smallest Gaussian penalty on a seasonal coefficient, on the
	// [0, 1] price scale. Fourier directions the data cannot see (weekend terms on weekday-only
	// bars) are pinned to zero by it instead of by rounding error.
	seasonalRidgeFloor = 1e-6
)

var errSingular = errors.New("normal equations are singular")

// normalEquations holds XᵀX and Xᵀy for a fixed design.
type normalEquations struct {
	p   int
	xtx []float64 // row-major p×p, upper triangle filled
	xty []float64
}

func newNormalEquations(p int) *normalEquations {
	return &normalEquations{p: p, xtx: make([]float64, p*p), xty: make([]float64, p)}
}

func (ne *normalEquations) add(row []float64, y float64) {
	p := ne.p
	for i := 0; i < p; i++ {
		ri := row[i]
		if ri == 0 {
			continue
		}
		ne.xty[i] += ri * y
		base := i * p
		for j := i; j < p; j++ {
			ne.xtx[base+j] += ri * row[j]
		}
	}
}

// solve returns β minimizing ‖y − Xβ‖² + Σ penalty[i]·β[i]².
func (ne *normalEquations) solve(penalty []float64) ([]float64, error) {
	p := ne.p
	a := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := ne.xtx[i*p+j]
			if i == j {
				v += penalty[i]
			}
			a.SetSym(i, j, v)
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, errSingular
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, mat.NewVecDense(p, append([]float64(nil), ne.xty...))); err != nil {
		return nil, err
	}
	beta := make([]float64, p)
	for i := range beta {
		beta[i] = x.AtVec(i)
		if math.IsNaN(beta[i]) || math.IsInf(beta[i], 0) {
			return nil, errSingular
		}
	}
	return beta, nil
}

// fitMAP solves the penalized regression: a Laplace prior on slope changes and a Gaussian prior
// on seasonal coefficients, both scaled by the noise variance estimated from a lightly
// penalized first pass. The L1 term is handled by iteratively reweighted ridge solves.
func fitMAP(ctx context.Context, ne *normalEquations, l layout, sse func([]float64) float64, n int, opts Options) ([]float64, error) {
	penalty := make([]float64, l.width)
	for i := 2; i < l.width; i++ {
		penalty[i] = firstPassRidge * float64(n)
	}
	beta, err := ne.solve(penalty)
	if err != nil {
		return nil, err
	}

	noise := math.Max(sse(beta)/float64(n), noiseFloor)
	lambda := 2 * noise / opts.ChangepointPriorScale
	seasonalRidge := math.Max(noise/(opts.SeasonalityPriorScale*opts.SeasonalityPriorScale), seasonalRidgeFloor)
	for i := 2; i < l.width; i++ {
		if l.isSeasonal(i) {
			penalty[i] = seasonalRidge + jitter
		}
	}

	for iter := 0; iter < maxReweights; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := range l.changepoints {
			idx := l.deltaIndex(j)
			penalty[idx] = lambda/(2*math.Max(math.Abs(beta[idx]), deltaFloor)) + jitter
		}
		next, err := ne.solve(penalty)
		if err != nil {
			return nil, err
		}
		moved := 0.0
		for i := range next {
			moved = math.Max(moved, math.Abs(next[i]-beta[i]))
		}
		beta = next
		if moved < reweightTol {
			break
		}
	}
	return beta, nil
}
