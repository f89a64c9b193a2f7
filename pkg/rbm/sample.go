package rbm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Sample is one decoded sequence from a checkpoint batch. Energy is only
// meaningful when HasEnergy is set.
type Sample struct {
	Text      string
	Energy    float64
	HasEnergy bool
}

// SampleCallback receives each recorded checkpoint batch together with
// the iteration index it was taken at and a preformatted text rendering.
// Callbacks may log, print, or store the batch; they run synchronously
// inside the sampling loop.
type SampleCallback func(samples []Sample, iter int, text string)

// sampleOptions is used by Sample to configure default options.
type sampleOptions struct {
	startTemp    float64
	finalTemp    float64
	policy       AnnealPolicy
	initMethod   InitMethod
	source       ExampleSource
	sampleEnergy bool
	startingVis  *mat.Dense
	minLength    int
	maxLength    int
	callback     SampleCallback
}

// SampleOption is a function that configures sampling parameters. It's
// used as a variadic argument to Sampler.Sample.
type SampleOption func(*sampleOptions)

// WithTemperatureRange anneals the sampling temperature from start to
// final over the run. Equal values hold the temperature constant.
// Default: 1.0 to 1.0.
func WithTemperatureRange(start, final float64) SampleOption {
	return func(o *sampleOptions) {
		o.startTemp = start
		o.finalTemp = final
	}
}

// WithAnnealPolicy selects the temperature decay policy.
// Default: AnnealExp.
func WithAnnealPolicy(p AnnealPolicy) SampleOption {
	return func(o *sampleOptions) { o.policy = p }
}

// WithInitMethod selects how the visible layer is initialized.
// Default: InitBiases. Ignored when WithStartingState is supplied.
func WithInitMethod(m InitMethod) SampleOption {
	return func(o *sampleOptions) { o.initMethod = m }
}

// WithExampleSource supplies the training example source required by
// InitTrain and InitSilhouettes.
func WithExampleSource(src ExampleSource) SampleOption {
	return func(o *sampleOptions) { o.source = src }
}

// WithEnergy pairs each recorded sample with its free energy.
func WithEnergy(on bool) SampleOption {
	return func(o *sampleOptions) { o.sampleEnergy = on }
}

// WithStartingState supplies an externally prepared visible batch,
// bypassing the init method entirely.
func WithStartingState(vis *mat.Dense) SampleOption {
	return func(o *sampleOptions) { o.startingVis = vis }
}

// WithLengthRange biases the run toward sequences of minLength up to
// maxLength characters. A maxLength of 0 means the codec's maxlen.
// Setting both to 0 disables the constraint.
func WithLengthRange(minLength, maxLength int) SampleOption {
	return func(o *sampleOptions) {
		o.minLength = minLength
		o.maxLength = maxLength
	}
}

// WithCallback registers a callback invoked at every checkpoint. A nil
// callback leaves recording as a decode-only step.
func WithCallback(cb SampleCallback) SampleOption {
	return func(o *sampleOptions) { o.callback = cb }
}

// Sampler runs Gibbs chains over a model's visible layer and records the
// batch at chosen checkpoints.
type Sampler struct {
	model  *Model
	logger *slog.Logger
}

// NewSampler creates a Sampler for the given model.
func NewSampler(model *Model) *Sampler {
	return &Sampler{
		model:  model,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Sampler. By default, all logs are
// discarded.
func (s *Sampler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Sample advances n independent chains for up to iters Gibbs updates,
// recording the decoded batch whenever the iteration index matches the
// next entry of checkpoints. Checkpoint indices must be strictly
// increasing; the run terminates right after the last one is recorded,
// without running that iteration's transition. A final checkpoint at or
// past iters is never reached: the loop exhausts instead and the most
// recently recorded batch (possibly none) is returned.
//
// It returns the final visible state and the last recorded batch. While
// a length constraint is active the model's visible intercepts are
// mutated, so a model must not be shared across concurrent samplers.
func (s *Sampler) Sample(ctx context.Context, n, iters int, checkpoints []int, opts ...SampleOption) (*mat.Dense, []Sample, error) {
	options := &sampleOptions{
		startTemp:  1.0,
		finalTemp:  1.0,
		policy:     AnnealExp,
		initMethod: InitBiases,
	}
	for _, opt := range opts {
		opt(options)
	}

	sched, err := NewSchedule(options.startTemp, options.finalTemp, iters, options.policy)
	if err != nil {
		return nil, nil, err
	}
	if len(checkpoints) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one checkpoint index is required", ErrConfig)
	}
	for i, cp := range checkpoints {
		if cp < 0 || (i > 0 && cp <= checkpoints[i-1]) {
			return nil, nil, fmt.Errorf("%w: checkpoint indices must be non-negative and strictly increasing", ErrConfig)
		}
	}

	vis := options.startingVis
	if vis == nil {
		vis, err = StartingVisible(ctx, options.initMethod, n, s.model, options.source)
		if err != nil {
			return nil, nil, err
		}
	} else {
		rows, cols := vis.Dims()
		if rows != n || cols != s.model.codec.VisibleSize() {
			return nil, nil, fmt.Errorf("%w: starting state is (%d, %d), want (%d, %d)",
				ErrConfig, rows, cols, n, s.model.codec.VisibleSize())
		}
	}

	if options.minLength > 0 || options.maxLength > 0 {
		maxLength := options.maxLength
		if maxLength == 0 {
			maxLength = s.model.codec.MaxLen()
		}
		lc, err := ConstrainLength(s.model, options.minLength, maxLength)
		if err != nil {
			return nil, nil, err
		}
		defer lc.Release()
	}

	return s.run(ctx, vis, iters, checkpoints, sched, options)
}

// run contains the main sampling loop.
func (s *Sampler) run(ctx context.Context, vis *mat.Dense, iters int, checkpoints []int, sched Schedule, options *sampleOptions) (*mat.Dense, []Sample, error) {
	var last []Sample
	next := 0

	for i := 0; i < iters; i++ {
		temp := sched.At(i)

		if next < len(checkpoints) && i == checkpoints[next] {
			var energies []float64
			if options.sampleEnergy {
				energies = s.model.FreeEnergy(vis)
			}
			samples, text, err := recordSamples(s.model.codec, vis, energies)
			if err != nil {
				return nil, nil, err
			}
			if options.callback != nil {
				options.callback(samples, i, text)
			}
			s.logger.DebugContext(ctx, "Recorded sample batch",
				slog.Int("iteration", i),
				slog.Int("batch_size", len(samples)),
				slog.Float64("temperature", temp),
			)
			last = samples
			next++
			if next == len(checkpoints) {
				break
			}
		}

		vis = s.model.Gibbs(vis, temp)
	}

	s.logger.InfoContext(ctx, "Sampling completed",
		slog.Int("iterations", iters),
		slog.Int("checkpoints_recorded", next),
	)

	return vis, last, nil
}

// recordSamples decodes each row of a visible batch into a printable
// string, pairing it with its free energy when energies are supplied.
// Decoding is non-strict, so ambiguous rows decode to their most active
// characters instead of failing.
func recordSamples(codec *Codec, vis *mat.Dense, energies []float64) ([]Sample, string, error) {
	n, _ := vis.Dims()
	samples := make([]Sample, n)
	var builder strings.Builder
	for i := 0; i < n; i++ {
		text, err := codec.Decode(vis.RawRowView(i), true, false)
		if err != nil {
			return nil, "", err
		}
		if energies != nil {
			samples[i] = Sample{Text: text, Energy: energies[i], HasEnergy: true}
			fmt.Fprintf(&builder, "%s\t%.2f\n", text, energies[i])
		} else {
			samples[i] = Sample{Text: text}
			builder.WriteString(text)
			builder.WriteByte('\n')
		}
	}
	return samples, builder.String(), nil
}
