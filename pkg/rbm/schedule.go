package rbm

import (
	"fmt"
	"math"
)

// AnnealPolicy selects how the sampling temperature moves from its start
// value to its final value over the course of a run.
type AnnealPolicy int

const (
	// AnnealExp multiplies the temperature by a constant ratio each
	// iteration, reaching the final value after the full iteration count.
	// Anecdotally this tends to give better samples than linear decay.
	AnnealExp AnnealPolicy = iota
	// AnnealLinear adds a constant delta each iteration instead.
	AnnealLinear
)

func (p AnnealPolicy) String() string {
	switch p {
	case AnnealExp:
		return "exp"
	case AnnealLinear:
		return "linear"
	default:
		return fmt.Sprintf("AnnealPolicy(%d)", int(p))
	}
}

// ParseAnnealPolicy maps a policy name ("exp" or "linear") to its
// AnnealPolicy value.
func ParseAnnealPolicy(s string) (AnnealPolicy, error) {
	switch s {
	case "exp":
		return AnnealExp, nil
	case "linear":
		return AnnealLinear, nil
	default:
		return 0, fmt.Errorf("%w: unrecognized anneal policy %q", ErrConfig, s)
	}
}

// Schedule computes the temperature to use before each transition of a
// sampling run. With equal start and final temperatures both policies
// hold the temperature constant.
type Schedule struct {
	start  float64
	final  float64
	iters  int
	policy AnnealPolicy
}

// NewSchedule builds a schedule over iters iterations. Both temperatures
// must be positive and iters must be at least one; a zero iteration count
// would leave the decay rate undefined.
func NewSchedule(start, final float64, iters int, policy AnnealPolicy) (Schedule, error) {
	if iters <= 0 {
		return Schedule{}, fmt.Errorf("%w: iteration count must be positive, got %d", ErrConfig, iters)
	}
	if start <= 0 || final <= 0 {
		return Schedule{}, fmt.Errorf("%w: temperatures must be positive, got start=%v final=%v", ErrConfig, start, final)
	}
	return Schedule{start: start, final: final, iters: iters, policy: policy}, nil
}

// At returns the temperature in effect before the i-th transition,
// 0-indexed. At(0) is the start temperature and At(iters) is the final
// temperature up to floating-point error.
func (s Schedule) At(i int) float64 {
	switch s.policy {
	case AnnealLinear:
		return s.start + float64(i)*(s.final-s.start)/float64(s.iters)
	default:
		return s.start * math.Pow(s.final/s.start, float64(i)/float64(s.iters))
	}
}
