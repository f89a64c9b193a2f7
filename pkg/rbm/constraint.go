package rbm

import "fmt"

// BigNumber is the nudge applied to the padding symbol's visible
// intercepts by a LengthConstraint. Large enough to dominate trained
// bias values without saturating the sampler completely.
const BigNumber = 3.0

// LengthConstraint temporarily biases the padding symbol's visible
// intercepts so sampled sequences tend to fall inside a length range:
// padding is strongly discouraged before the minimum length and strongly
// encouraged at and past the maximum. The nudge only shifts one symbol's
// bias, so it shapes the distribution rather than enforcing a hard bound.
//
// Release must be called to restore the model's original intercepts;
// callers should defer it as soon as ConstrainLength succeeds so the
// restoration holds on every exit path.
type LengthConstraint struct {
	model    *Model
	saved    []float64
	padIdx   int
	released bool
}

// ConstrainLength saves the padding symbol's intercept at every position
// and applies the length nudge. Bounds are validated before anything is
// mutated: 1 <= maxLength <= maxlen and 0 <= minLength <= maxlen.
func ConstrainLength(m *Model, minLength, maxLength int) (*LengthConstraint, error) {
	codec := m.codec
	maxlen, nchars := codec.Shape()
	if maxLength < 1 || maxLength > maxlen {
		return nil, fmt.Errorf("%w: max length %d outside [1, %d]", ErrConfig, maxLength, maxlen)
	}
	if minLength < 0 || minLength > maxlen {
		return nil, fmt.Errorf("%w: min length %d outside [0, %d]", ErrConfig, minLength, maxlen)
	}

	padIdx, _ := codec.CharLookup(codec.Filler())
	bias := m.visibleBias

	saved := make([]float64, maxlen)
	for posn := 0; posn < maxlen; posn++ {
		saved[posn] = bias[nchars*posn+padIdx]
	}

	// Force the padding character off for all positions up to the
	// minimum length.
	for posn := 0; posn < minLength; posn++ {
		bias[nchars*posn+padIdx] -= BigNumber
	}

	// Force the padding character on for positions past the maximum.
	for posn := maxLength; posn < maxlen; posn++ {
		bias[nchars*posn+padIdx] += BigNumber
	}

	return &LengthConstraint{model: m, saved: saved, padIdx: padIdx}, nil
}

// Release writes the saved intercepts back exactly as they were.
// Calling it more than once is a no-op.
func (lc *LengthConstraint) Release() {
	if lc.released {
		return
	}
	_, nchars := lc.model.codec.Shape()
	bias := lc.model.visibleBias
	for posn, b := range lc.saved {
		bias[nchars*posn+lc.padIdx] = b
	}
	lc.released = true
}
