package rbm

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Model is a trained restricted Boltzmann machine over fixed-length
// character sequences. Visible units are grouped per position into
// one-hot softmax blocks described by the codec; hidden units are binary.
// The visible bias vector is the only state a sampling session mutates,
// and only transiently through a LengthConstraint.
type Model struct {
	weights     *mat.Dense // (visibleSize, numHidden)
	hiddenBias  []float64
	visibleBias []float64
	codec       *Codec
	rng         *rand.Rand
}

// NewModel creates a model for the given codec with numHidden hidden
// units. Weights are initialized to small uniform values and biases to
// zero, so a fresh model samples near-uniform noise until its parameters
// are replaced by trained ones (see ImportModel).
func NewModel(codec *Codec, numHidden int) (*Model, error) {
	if codec == nil {
		return nil, fmt.Errorf("%w: model needs a codec", ErrConfig)
	}
	if numHidden <= 0 {
		return nil, fmt.Errorf("%w: hidden unit count must be positive, got %d", ErrConfig, numHidden)
	}
	nvis := codec.VisibleSize()
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))

	scale := 1.0 / math.Sqrt(float64(nvis))
	weights := make([]float64, nvis*numHidden)
	for i := range weights {
		weights[i] = (rng.Float64()*2 - 1) * scale
	}

	return &Model{
		weights:     mat.NewDense(nvis, numHidden, weights),
		hiddenBias:  make([]float64, numHidden),
		visibleBias: make([]float64, nvis),
		codec:       codec,
		rng:         rng,
	}, nil
}

// Codec returns the codec this model was built around.
func (m *Model) Codec() *Codec { return m.codec }

// NumHidden returns the number of hidden units.
func (m *Model) NumHidden() int {
	_, nhid := m.weights.Dims()
	return nhid
}

// VisibleBias returns the live visible intercept vector of length
// maxlen*nchars. Mutating it changes the model.
func (m *Model) VisibleBias() []float64 { return m.visibleBias }

// SetRand replaces the model's random source. Useful for reproducible
// sampling runs and tests.
func (m *Model) SetRand(rng *rand.Rand) {
	if rng != nil {
		m.rng = rng
	}
}

// Gibbs runs one alternating hidden/visible update on a whole batch of
// visible rows at the given temperature and returns the next batch.
// Hidden units are sampled from sigmoid activations; each visible
// position is then sampled as a one-hot draw from a softmax over its
// character block. Pre-activations are divided by the temperature, so
// lower temperatures sharpen both conditionals.
func (m *Model) Gibbs(v *mat.Dense, temp float64) *mat.Dense {
	n, _ := v.Dims()
	nvis, nhid := m.weights.Dims()

	var hiddenPre mat.Dense
	hiddenPre.Mul(v, m.weights) // (n, nhid)
	hidden := mat.NewDense(n, nhid, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < nhid; j++ {
			p := sigmoid((hiddenPre.At(i, j) + m.hiddenBias[j]) / temp)
			if m.rng.Float64() < p {
				hidden.Set(i, j, 1)
			}
		}
	}

	var visiblePre mat.Dense
	visiblePre.Mul(hidden, m.weights.T()) // (n, nvis)
	next := mat.NewDense(n, nvis, nil)
	maxlen, nchars := m.codec.Shape()
	logits := make([]float64, nchars)
	for i := 0; i < n; i++ {
		for posn := 0; posn < maxlen; posn++ {
			base := posn * nchars
			for k := 0; k < nchars; k++ {
				logits[k] = (visiblePre.At(i, base+k) + m.visibleBias[base+k]) / temp
			}
			next.Set(i, base+sampleSoftmax(m.rng, logits), 1)
		}
	}
	return next
}

// FreeEnergy computes the free energy of each row in the batch:
// F(v) = -v·b_vis - sum_j log(1 + exp(v·W_j + b_hid_j)).
// Lower values correspond to configurations the model finds more likely.
func (m *Model) FreeEnergy(v *mat.Dense) []float64 {
	n, _ := v.Dims()
	nvis, nhid := m.weights.Dims()

	var hiddenPre mat.Dense
	hiddenPre.Mul(v, m.weights)

	energies := make([]float64, n)
	for i := 0; i < n; i++ {
		var e float64
		for j := 0; j < nvis; j++ {
			e -= v.At(i, j) * m.visibleBias[j]
		}
		for j := 0; j < nhid; j++ {
			e -= log1pExp(hiddenPre.At(i, j) + m.hiddenBias[j])
		}
		energies[i] = e
	}
	return energies
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// log1pExp computes log(1+exp(x)) without overflowing for large x.
func log1pExp(x float64) float64 {
	if x > 30 {
		return x
	}
	return math.Log1p(math.Exp(x))
}

// sampleSoftmax draws an index from the softmax distribution over the
// given logits.
func sampleSoftmax(rng *rand.Rand, logits []float64) int {
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}
	var total float64
	weights := make([]float64, len(logits))
	for k, l := range logits {
		w := math.Exp(l - maxLogit)
		weights[k] = w
		total += w
	}
	randChoice := rng.Float64() * total
	for k, w := range weights {
		randChoice -= w
		if randChoice < 0 {
			return k
		}
	}
	return len(logits) - 1
}
