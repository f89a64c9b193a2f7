package rbm

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// InitMethod selects how the visible layer of each chain in a batch is
// initialized before Gibbs sampling starts.
type InitMethod int

const (
	// InitBiases treats the visible intercepts as per-position softmax
	// logits and samples a one-hot character from each. The default.
	InitBiases InitMethod = iota
	// InitZeros starts every row at all zeros, deferring entirely to the
	// hidden biases on the first update.
	InitZeros
	// InitUniform turns each unit (not each one-hot block) on with p=0.5.
	InitUniform
	// InitSpaces sets every position to the literal space character.
	InitSpaces
	// InitPadding sets every position to the codec's filler symbol.
	// Models whose filler is ' ' make this identical to InitSpaces.
	InitPadding
	// InitTrain draws rows directly from a training example source.
	InitTrain
	// InitSilhouettes draws training examples but randomly mutates their
	// non-space, non-filler characters, preserving only the shape.
	InitSilhouettes
	// InitChunks picks a random length per row, fills that many uniformly
	// random characters, and pads the rest with the filler symbol.
	InitChunks
	// InitUniformChars fills every position with a uniformly random valid
	// one-hot character.
	InitUniformChars
)

func (m InitMethod) String() string {
	switch m {
	case InitBiases:
		return "biases"
	case InitZeros:
		return "zeros"
	case InitUniform:
		return "uniform"
	case InitSpaces:
		return "spaces"
	case InitPadding:
		return "padding"
	case InitTrain:
		return "train"
	case InitSilhouettes:
		return "silhouettes"
	case InitChunks:
		return "chunks"
	case InitUniformChars:
		return "uniform_chars"
	default:
		return fmt.Sprintf("InitMethod(%d)", int(m))
	}
}

// ParseInitMethod maps an init method name to its InitMethod value.
func ParseInitMethod(s string) (InitMethod, error) {
	for _, m := range []InitMethod{
		InitBiases, InitZeros, InitUniform, InitSpaces, InitPadding,
		InitTrain, InitSilhouettes, InitChunks, InitUniformChars,
	} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unrecognized init method %q", ErrConfig, s)
}

// StartingVisible returns a batch of n visible rows for the given model
// according to the chosen init method. The result always has shape
// (n, maxlen*nchars). InitTrain and InitSilhouettes require a non-nil
// example source; the context is only used for source draws.
func StartingVisible(ctx context.Context, method InitMethod, n int, model *Model, source ExampleSource) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrConfig, n)
	}
	codec := model.codec
	maxlen, nchars := codec.Shape()
	nvis := codec.VisibleSize()
	rng := model.rng

	switch method {
	case InitZeros:
		return mat.NewDense(n, nvis, nil), nil

	case InitBiases:
		vis := mat.NewDense(n, nvis, nil)
		for i := 0; i < n; i++ {
			for posn := 0; posn < maxlen; posn++ {
				base := posn * nchars
				idx := sampleSoftmax(rng, model.visibleBias[base:base+nchars])
				vis.Set(i, base+idx, 1)
			}
		}
		return vis, nil

	case InitUniform:
		vis := mat.NewDense(n, nvis, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < nvis; j++ {
				vis.Set(i, j, float64(rng.IntN(2)))
			}
		}
		return vis, nil

	case InitSpaces, InitPadding:
		fillChar := ' '
		if method == InitPadding {
			fillChar = codec.Filler()
		}
		fillIdx, ok := codec.CharLookup(fillChar)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not in the model alphabet", ErrConfig, fillChar)
		}
		vis := mat.NewDense(n, nvis, nil)
		for i := 0; i < n; i++ {
			for posn := 0; posn < maxlen; posn++ {
				vis.Set(i, posn*nchars+fillIdx, 1)
			}
		}
		return vis, nil

	case InitTrain, InitSilhouettes:
		if source == nil {
			return nil, fmt.Errorf("%w: init method %q needs a training example source", ErrConfig, method)
		}
		var mutagen Mutagen
		if method == InitSilhouettes {
			mutagen = codec.MutagenSilhouettes(rng)
		}
		return source.Draw(ctx, n, mutagen)

	case InitChunks, InitUniformChars:
		fillIdx, _ := codec.CharLookup(codec.Filler())
		var lengths []int
		if method == InitChunks {
			lengths = chunkLengths(n, maxlen)
		}
		vis := mat.NewDense(n, nvis, nil)
		for i := 0; i < n; i++ {
			for posn := 0; posn < maxlen; posn++ {
				idx := rng.IntN(nchars)
				if lengths != nil && posn >= lengths[i] {
					idx = fillIdx
				}
				vis.Set(i, posn*nchars+idx, 1)
			}
		}
		return vis, nil

	default:
		return nil, fmt.Errorf("%w: unrecognized init method %q", ErrConfig, method)
	}
}

// chunkLengths samples one target length per row from a normal centered
// near two thirds of maxlen, clipped to [1, maxlen].
func chunkLengths(n, maxlen int) []int {
	dist := distuv.Normal{Mu: 0.66 * float64(maxlen), Sigma: 0.25 * float64(maxlen)}
	lengths := make([]int, n)
	for i := range lengths {
		lengths[i] = int(math.Min(math.Max(dist.Rand(), 1), float64(maxlen)))
	}
	return lengths
}
